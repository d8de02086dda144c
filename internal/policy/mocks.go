package policy

import (
	"context"
	"go/ast"
	"path/filepath"
	"sort"

	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "mocks",
		Description: "forbid wildcard matchers and cap the mock tax per package",
		Blocking:    true,
		Run:         runMocks,
	})
}

type mockFact struct {
	dir       string
	test      bool
	loc       int
	wildcards []mockHit
	sleeps    []int
}

type mockHit struct {
	line int
	what string
}

func findMockFacts(f *scan.File) (mockFact, bool) {
	if f.IsGenerated() {
		return mockFact{}, false
	}
	fact := mockFact{
		dir:  filepath.ToSlash(filepath.Dir(f.Path)),
		test: f.IsTest(),
		loc:  f.LineCount(),
	}
	if !fact.test {
		return fact, true
	}
	ast.Inspect(f.AST, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.SelectorExpr:
			if x, ok := n.X.(*ast.Ident); ok && x.Name == "mock" && n.Sel.Name == "Anything" {
				fact.wildcards = append(fact.wildcards,
					mockHit{f.Fset.Position(n.Pos()).Line, "mock.Anything"})
			}
		case *ast.CallExpr:
			if sel, ok := n.Fun.(*ast.SelectorExpr); ok {
				x, isIdent := sel.X.(*ast.Ident)
				if !isIdent {
					return true
				}
				switch {
				case x.Name == "gomock" && sel.Sel.Name == "Any":
					fact.wildcards = append(fact.wildcards,
						mockHit{f.Fset.Position(n.Pos()).Line, "gomock.Any()"})
				case x.Name == "time" && sel.Sel.Name == "Sleep":
					fact.sleeps = append(fact.sleeps, f.Fset.Position(n.Pos()).Line)
				}
			}
		}
		return true
	})
	return fact, true
}

func runMocks(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.Mocks
	rep := verdict.NewReport("mocks")

	// Ratios are a whole-tree property, so always scan everything and
	// narrow the wildcard gate to the changed set afterwards.
	t := env.Target()
	t.Files = nil
	res, err := scan.Run(ctx, t, findMockFacts)
	if err != nil {
		return nil, err
	}
	noteSkipped(rep, res.Skipped)

	changed := env.ChangedSet()
	type dirLOC struct{ src, test int }
	byDir := map[string]*dirLOC{}
	for _, f := range res.Facts {
		d := byDir[f.Value.dir]
		if d == nil {
			d = &dirLOC{}
			byDir[f.Value.dir] = d
		}
		if f.Value.test {
			d.test += f.Value.loc
		} else {
			d.src += f.Value.loc
		}

		if changed != nil && !changed[f.Path] {
			continue
		}
		for _, h := range f.Value.wildcards {
			rep.Blockf(f.Path, h.line, "wildcard-matcher",
				"%s accepts anything, assert the real argument", h.what)
		}
		for _, line := range f.Value.sleeps {
			rep.Warnf(f.Path, line, "sleep-sync",
				"time.Sleep in a test, synchronize on a channel or condition instead")
		}
	}

	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		d := byDir[dir]
		if d.src == 0 || d.test == 0 {
			continue
		}
		ratio := float64(d.test) / float64(d.src)
		switch {
		case ratio > cfg.FailRatio:
			rep.Blockf(dir, 0, "mock-tax",
				"test code is %.1fx the source it covers (limit %.0fx)", ratio, cfg.FailRatio)
		case ratio > cfg.WarnRatio:
			rep.Warnf(dir, 0, "mock-tax",
				"test code is %.1fx the source it covers", ratio)
		}
	}
	return rep, nil
}
