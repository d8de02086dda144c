package policy

import (
	"context"
	"go/ast"
	"strings"

	"turnstile/internal/format"
	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "skips",
		Description: "cap the share of test functions that skip themselves",
		Blocking:    true,
		Run:         runSkips,
	})
}

type skipFact struct {
	tests   int
	skipped []skippedTest
}

type skippedTest struct {
	name string
	line int
}

func findSkips(f *scan.File) (skipFact, bool) {
	var fact skipFact
	for _, decl := range f.AST.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || !strings.HasPrefix(fn.Name.Name, "Test") {
			continue
		}
		if fn.Type.Params == nil || len(fn.Type.Params.List) != 1 {
			continue
		}
		fact.tests++
		if fn.Body == nil {
			continue
		}
		found := false
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			if found {
				return false
			}
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			switch sel.Sel.Name {
			case "Skip", "Skipf", "SkipNow":
				found = true
			}
			return !found
		})
		if found {
			fact.skipped = append(fact.skipped, skippedTest{
				name: fn.Name.Name,
				line: f.Fset.Position(fn.Pos()).Line,
			})
		}
	}
	return fact, fact.tests > 0
}

func runSkips(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.Skips
	rep := verdict.NewReport("skips")

	t := env.Target()
	t.Include = []string{"**/*_test.go"}
	res, err := scan.Run(ctx, t, findSkips)
	if err != nil {
		return nil, err
	}
	noteSkipped(rep, res.Skipped)

	var tests, skipped int
	for _, f := range res.Facts {
		tests += f.Value.tests
		skipped += len(f.Value.skipped)
		for _, s := range f.Value.skipped {
			rep.Warnf(f.Path, s.line, "skipped-test", "%s skips itself", s.name)
		}
	}
	if tests == 0 {
		rep.Notef("no test functions found")
		return rep, nil
	}

	ratio := float64(skipped) / float64(tests) * 100
	rep.Notef("%d of %s skip (%s, limit %s)",
		skipped, format.Count(tests, "test", "tests"),
		format.Percent(ratio), format.Percent(cfg.MaxPercent))
	if ratio > cfg.MaxPercent {
		rep.Blockf("", 0, "skip-ratio", "%s of tests skip themselves, limit is %s",
			format.Percent(ratio), format.Percent(cfg.MaxPercent))
	}
	return rep, nil
}
