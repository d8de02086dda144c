package policy

import (
	"context"
	"go/ast"
	"go/token"

	"turnstile/internal/baseline"
	"turnstile/internal/ratchet"
	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "size",
		Description: "ratchet down oversized files, long functions and deep branching",
		Blocking:    true,
		Run:         runSize,
	})
}

const sizeFile = "size.json"

type funcFact struct {
	name       string
	line       int
	lines      int
	complexity int
}

type sizeFact struct {
	lines int
	test  bool
	funcs []funcFact
}

func measureFile(f *scan.File) (sizeFact, bool) {
	if f.IsGenerated() {
		return sizeFact{}, false
	}
	fact := sizeFact{lines: f.LineCount(), test: f.IsTest()}
	for _, decl := range f.AST.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		start := f.Fset.Position(fn.Pos())
		end := f.Fset.Position(fn.End())
		fact.funcs = append(fact.funcs, funcFact{
			name:       fn.Name.Name,
			line:       start.Line,
			lines:      end.Line - start.Line + 1,
			complexity: complexity(fn.Body),
		})
	}
	return fact, true
}

// complexity counts branch points: 1 for the function itself plus one per
// if, loop, case/comm clause and short-circuit operator.
func complexity(body *ast.BlockStmt) int {
	n := 1
	ast.Inspect(body, func(node ast.Node) bool {
		switch node := node.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt, *ast.CaseClause, *ast.CommClause:
			n++
		case *ast.BinaryExpr:
			if node.Op == token.LAND || node.Op == token.LOR {
				n++
			}
		}
		return true
	})
	return n
}

type sizeViolation struct {
	path     string
	line     int
	category string
	msg      string
	args     []any
}

func sizeViolations(facts []scan.Fact[sizeFact], cfg struct {
	srcMax, testMax, funcMax, cplxMax int
}) []sizeViolation {
	var out []sizeViolation
	for _, f := range facts {
		limit := cfg.srcMax
		if f.Value.test {
			limit = cfg.testMax
		}
		if limit > 0 && f.Value.lines > limit {
			out = append(out, sizeViolation{f.Path, 0, "file-too-long",
				"%d lines, limit %d", []any{f.Value.lines, limit}})
		}
		for _, fn := range f.Value.funcs {
			if cfg.funcMax > 0 && fn.lines > cfg.funcMax {
				out = append(out, sizeViolation{f.Path, fn.line, "func-too-long",
					"%s is %d lines, limit %d", []any{fn.name, fn.lines, cfg.funcMax}})
			}
			if cfg.cplxMax > 0 && fn.complexity > cfg.cplxMax {
				out = append(out, sizeViolation{f.Path, fn.line, "func-too-branchy",
					"%s has complexity %d, limit %d", []any{fn.name, fn.complexity, cfg.cplxMax}})
			}
		}
	}
	return out
}

func runSize(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.Size
	rep := verdict.NewReport("size")

	res, err := scan.Run(ctx, env.Target(), measureFile)
	if err != nil {
		return nil, err
	}
	noteSkipped(rep, res.Skipped)

	violations := sizeViolations(res.Facts, struct{ srcMax, testMax, funcMax, cplxMax int }{
		cfg.MaxSourceLines, cfg.MaxTestLines, cfg.MaxFuncLines, cfg.MaxComplexity,
	})

	// Incremental mode is a hard gate on what was touched.
	if env.Changed != nil {
		for _, v := range violations {
			rep.Blockf(v.path, v.line, v.category, v.msg, v.args...)
		}
		return rep, nil
	}

	total := float64(len(violations))
	prior, err := baseline.Read[baseline.Totals](env.BaselineDir, sizeFile)
	if err != nil {
		return nil, err
	}
	if env.Init || prior == nil {
		if err := baseline.Write(env.BaselineDir, sizeFile, baseline.TotalsDoc(total, nil, nil)); err != nil {
			return nil, err
		}
		rep.Notef("baseline created at %.0f violation(s)", total)
		return rep, nil
	}

	d := ratchet.EvaluateTotal(ratchet.Config{Polarity: ratchet.LowerIsBetter}, &prior.Total, total)
	rep.Notef("%.0f violation(s), baseline %.0f", total, prior.Total)
	if !d.Passed() {
		rep.Blockf("", 0, "size-ratchet", "violations rose from %.0f to %.0f",
			prior.Total, total)
		const show = 20
		for i, v := range violations {
			if i >= show {
				rep.Notef("%d more violation(s) not shown", len(violations)-show)
				break
			}
			rep.Warnf(v.path, v.line, v.category, v.msg, v.args...)
		}
		return rep, nil
	}
	if d.Save {
		if err := baseline.Write(env.BaselineDir, sizeFile, baseline.TotalsDoc(total, nil, nil)); err != nil {
			return nil, err
		}
		rep.Notef("improved from %.0f, baseline advanced", prior.Total)
	}
	return rep, nil
}
