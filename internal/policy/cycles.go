package policy

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"turnstile/internal/depgraph"
	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "cycles",
		Description: "forbid import cycles between packages in this module",
		Blocking:    true,
		Run:         runCycles,
	})
}

type importsFact struct {
	pkg     string
	imports []string
}

func runCycles(ctx context.Context, env *Env) (*verdict.Report, error) {
	rep := verdict.NewReport("cycles")
	mod, err := modulePath(env.Root)
	if err != nil {
		if missingGoMod(err) {
			rep.Notef("no go.mod found, nothing to check")
			return rep, nil
		}
		return nil, err
	}

	t := env.Target()
	t.Files = nil // cycles are a whole-module property, never narrowed
	res, err := scan.Run(ctx, t, func(f *scan.File) (importsFact, bool) {
		if f.IsTest() {
			return importsFact{}, false
		}
		fact := importsFact{pkg: packagePath(mod, f.Path)}
		for _, imp := range f.AST.Imports {
			target := strings.Trim(imp.Path.Value, `"`)
			if target == mod || strings.HasPrefix(target, mod+"/") {
				fact.imports = append(fact.imports, target)
			}
		}
		return fact, true
	})
	if err != nil {
		return nil, err
	}

	g := depgraph.New()
	for _, f := range res.Facts {
		g.AddNode(f.Value.pkg)
		for _, imp := range f.Value.imports {
			g.AddEdge(f.Value.pkg, imp)
		}
	}

	cycles := g.Cycles()
	maxShow := env.Cfg.Checks.Cycles.MaxDisplay
	for i, cyc := range cycles {
		if maxShow > 0 && i >= maxShow {
			rep.Notef("%d more cycle(s) not shown", len(cycles)-maxShow)
			break
		}
		rep.Blockf(cyc[0], 0, "import-cycle", "%s", strings.Join(shorten(mod, cyc), " -> "))
	}
	if len(cycles) == 0 {
		rep.Notef("%d package(s), no cycles", g.Len())
	}
	noteSkipped(rep, res.Skipped)
	return rep, nil
}

// packagePath maps a file path inside the module to its import path.
func packagePath(mod, file string) string {
	dir := filepath.ToSlash(filepath.Dir(file))
	if dir == "." {
		return mod
	}
	return path.Join(mod, dir)
}

// shorten trims the module prefix from cycle members for readable output.
func shorten(mod string, cycle []string) []string {
	out := make([]string, len(cycle))
	for i, p := range cycle {
		if p == mod {
			out[i] = "."
			continue
		}
		out[i] = strings.TrimPrefix(p, mod+"/")
	}
	return out
}
