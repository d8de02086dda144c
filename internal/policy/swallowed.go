package policy

import (
	"context"
	"go/ast"
	"go/token"
	"strings"

	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "swallowed",
		Description: "forbid silently discarded errors and panics",
		Blocking:    true,
		Run:         runSwallowed,
	})
}

// swallowMarker exempts the marked line or the line directly below it.
const swallowMarker = "turnstile:allow-swallow"

type swallowHit struct {
	line int
	kind string
	msg  string
}

func findSwallowed(f *scan.File) ([]swallowHit, bool) {
	if f.IsGenerated() {
		return nil, false
	}
	allowed := map[int]bool{}
	for _, grp := range f.AST.Comments {
		for _, c := range grp.List {
			if strings.Contains(c.Text, swallowMarker) {
				allowed[f.Fset.Position(c.Pos()).Line] = true
			}
		}
	}
	lineOf := func(n ast.Node) int { return f.Fset.Position(n.Pos()).Line }
	exempt := func(line int) bool { return allowed[line] || allowed[line-1] }

	var hits []swallowHit
	ast.Inspect(f.AST, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.IfStmt:
			if isErrNotNil(n.Cond) && len(n.Body.List) == 0 && !exempt(lineOf(n)) {
				hits = append(hits, swallowHit{lineOf(n), "empty-handler",
					"error checked but the handler body is empty"})
			}
		case *ast.AssignStmt:
			if allBlank(n.Lhs) && len(n.Rhs) == 1 && !exempt(lineOf(n)) {
				if call, ok := n.Rhs[0].(*ast.CallExpr); ok {
					hits = append(hits, swallowHit{lineOf(n), "discarded-result",
						"result of " + callName(call) + " discarded"})
				}
			}
		case *ast.ExprStmt:
			if call, ok := n.X.(*ast.CallExpr); ok && isRecover(call) && !exempt(lineOf(n)) {
				hits = append(hits, swallowHit{lineOf(n), "discarded-recover",
					"recover() called without inspecting the panic"})
			}
		case *ast.DeferStmt:
			if isRecover(n.Call) && !exempt(lineOf(n)) {
				hits = append(hits, swallowHit{lineOf(n), "discarded-recover",
					"defer recover() discards the panic"})
			}
		}
		return true
	})
	return hits, len(hits) > 0
}

func runSwallowed(ctx context.Context, env *Env) (*verdict.Report, error) {
	rep := verdict.NewReport("swallowed")
	res, err := scan.Run(ctx, env.Target(), findSwallowed)
	if err != nil {
		return nil, err
	}
	noteSkipped(rep, res.Skipped)
	for _, f := range res.Facts {
		for _, h := range f.Value {
			rep.Blockf(f.Path, h.line, h.kind, "%s", h.msg)
		}
	}
	if len(rep.Blocking()) > 0 {
		rep.Notef("handle the error, or mark the line with // %s <reason>", swallowMarker)
	}
	return rep, nil
}

// isErrNotNil matches conditions of the shape `<errish> != nil`.
func isErrNotNil(cond ast.Expr) bool {
	bin, ok := cond.(*ast.BinaryExpr)
	if !ok || bin.Op != token.NEQ {
		return false
	}
	name, nilSide := rightmostName(bin.X), bin.Y
	if isNil(bin.X) {
		name, nilSide = rightmostName(bin.Y), bin.X
	}
	if !isNil(nilSide) {
		return false
	}
	lower := strings.ToLower(name)
	return lower == "err" || strings.HasSuffix(lower, "err") || strings.HasSuffix(lower, "error")
}

func isNil(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == "nil"
}

func rightmostName(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.SelectorExpr:
		return e.Sel.Name
	}
	return ""
}

func allBlank(lhs []ast.Expr) bool {
	for _, e := range lhs {
		id, ok := e.(*ast.Ident)
		if !ok || id.Name != "_" {
			return false
		}
	}
	return len(lhs) > 0
}

func isRecover(call *ast.CallExpr) bool {
	id, ok := call.Fun.(*ast.Ident)
	return ok && id.Name == "recover" && len(call.Args) == 0
}

func callName(call *ast.CallExpr) string {
	switch fun := call.Fun.(type) {
	case *ast.Ident:
		return fun.Name
	case *ast.SelectorExpr:
		return rightmostName(fun.X) + "." + fun.Sel.Name
	}
	return "call"
}
