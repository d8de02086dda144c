package policy

import (
	"context"
	"go/ast"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"turnstile/internal/baseline"
	"turnstile/internal/ratchet"
	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "orphans",
		Description: "ratchet down unimported packages and unreferenced exports",
		Blocking:    true,
		Run:         runOrphans,
	})
}

const orphansFile = "orphans.json"

type orphansDoc struct {
	Total       float64  `json:"total"`
	Packages    []string `json:"packages,omitempty"`
	Exports     []string `json:"exports,omitempty"`
	GeneratedAt string   `json:"generated_at"`
}

type orphanFact struct {
	pkg      string // import path of the package this file belongs to
	pkgName  string
	test     bool
	imports  []string    // module-internal imports
	exported []exportSym // top-level exported names, non-test files only
	uses     []symbolUse // cross-package selector references
}

type exportSym struct {
	name string
	line int
}

type symbolUse struct {
	pkg  string
	name string
}

func orphanFacts(mod string) scan.FactFunc[orphanFact] {
	return func(f *scan.File) (orphanFact, bool) {
		if f.IsGenerated() {
			return orphanFact{}, false
		}
		fact := orphanFact{
			pkg:     packagePath(mod, f.Path),
			pkgName: f.AST.Name.Name,
			test:    f.IsTest(),
		}
		aliases := map[string]string{}
		for _, imp := range f.AST.Imports {
			target := strings.Trim(imp.Path.Value, `"`)
			if target != mod && !strings.HasPrefix(target, mod+"/") {
				continue
			}
			fact.imports = append(fact.imports, target)
			name := path.Base(target)
			if imp.Name != nil {
				name = imp.Name.Name
			}
			if name != "_" && name != "." {
				aliases[name] = target
			}
		}
		if !fact.test {
			fact.exported = topLevelExports(f)
		}
		ast.Inspect(f.AST, func(n ast.Node) bool {
			sel, ok := n.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			if x, ok := sel.X.(*ast.Ident); ok {
				if target, known := aliases[x.Name]; known {
					fact.uses = append(fact.uses, symbolUse{target, sel.Sel.Name})
				}
			}
			return true
		})
		return fact, true
	}
}

func topLevelExports(f *scan.File) []exportSym {
	var out []exportSym
	add := func(id *ast.Ident) {
		if id.IsExported() {
			out = append(out, exportSym{id.Name, f.Fset.Position(id.Pos()).Line})
		}
	}
	for _, decl := range f.AST.Decls {
		switch decl := decl.(type) {
		case *ast.FuncDecl:
			if decl.Recv == nil {
				add(decl.Name)
			}
		case *ast.GenDecl:
			for _, spec := range decl.Specs {
				switch spec := spec.(type) {
				case *ast.TypeSpec:
					add(spec.Name)
				case *ast.ValueSpec:
					for _, name := range spec.Names {
						add(name)
					}
				}
			}
		}
	}
	return out
}

func runOrphans(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.Orphans
	rep := verdict.NewReport("orphans")
	mod, err := modulePath(env.Root)
	if err != nil {
		if missingGoMod(err) {
			rep.Notef("no go.mod found, nothing to check")
			return rep, nil
		}
		return nil, err
	}

	t := env.Target()
	t.Files = nil // reachability is a whole-module property
	res, err := scan.Run(ctx, t, orphanFacts(mod))
	if err != nil {
		return nil, err
	}
	noteSkipped(rep, res.Skipped)

	importedBy := map[string]bool{}
	mainPkgs := map[string]bool{}
	hasSource := map[string]bool{}
	used := map[string]bool{} // pkg + " " + name
	type export struct {
		pkg, name, file string
		line            int
	}
	var exports []export
	for _, f := range res.Facts {
		v := f.Value
		for _, imp := range v.imports {
			if imp != v.pkg {
				importedBy[imp] = true
			}
		}
		for _, u := range v.uses {
			if u.pkg != v.pkg {
				used[u.pkg+" "+u.name] = true
			}
		}
		if v.test {
			continue
		}
		hasSource[v.pkg] = true
		if v.pkgName == "main" {
			mainPkgs[v.pkg] = true
		}
		for _, e := range v.exported {
			exports = append(exports, export{v.pkg, e.name, f.Path, e.line})
		}
	}

	exemptGlob := func(p string) bool {
		rel := strings.TrimPrefix(strings.TrimPrefix(p, mod+"/"), mod)
		for _, g := range cfg.ExemptExports {
			if ok, _ := doublestar.Match(g, rel); ok {
				return true
			}
			if ok, _ := doublestar.Match(strings.TrimSuffix(g, "/**"), rel); ok {
				return true
			}
		}
		return false
	}

	var orphanPkgs []string
	orphanSet := map[string]bool{}
	for pkg := range hasSource {
		if pkg == mod || mainPkgs[pkg] || importedBy[pkg] || exemptGlob(pkg) {
			continue
		}
		orphanPkgs = append(orphanPkgs, pkg)
		orphanSet[pkg] = true
	}
	sort.Strings(orphanPkgs)

	var dead []export
	for _, e := range exports {
		if orphanSet[e.pkg] || mainPkgs[e.pkg] || e.pkg == mod {
			continue
		}
		if used[e.pkg+" "+e.name] || exemptGlob(e.file) {
			continue
		}
		dead = append(dead, e)
	}
	sort.Slice(dead, func(i, j int) bool {
		if dead[i].file != dead[j].file {
			return dead[i].file < dead[j].file
		}
		return dead[i].line < dead[j].line
	})

	total := float64(len(orphanPkgs) + len(dead))
	rep.Notef("%d orphan package(s), %d unreferenced export(s)", len(orphanPkgs), len(dead))

	prior, err := baseline.Read[orphansDoc](env.BaselineDir, orphansFile)
	if err != nil {
		return nil, err
	}
	writeDoc := func() error {
		doc := orphansDoc{Total: total, Packages: orphanPkgs, GeneratedAt: baseline.Stamp()}
		for _, e := range dead {
			doc.Exports = append(doc.Exports, e.pkg+"."+e.name)
		}
		return baseline.Write(env.BaselineDir, orphansFile, doc)
	}
	if env.Init || prior == nil {
		if err := writeDoc(); err != nil {
			return nil, err
		}
		rep.Notef("baseline created at %.0f", total)
		return rep, nil
	}

	d := ratchet.EvaluateTotal(ratchet.Config{Polarity: ratchet.LowerIsBetter}, &prior.Total, total)
	if !d.Passed() {
		rep.Blockf("", 0, "orphan-ratchet", "dead code rose from %.0f to %.0f",
			prior.Total, total)
		const show = 15
		shown := 0
		for _, pkg := range orphanPkgs {
			if shown >= show {
				break
			}
			rep.Warnf(strings.TrimPrefix(pkg, mod+"/"), 0, "orphan-package", "no package imports this")
			shown++
		}
		for _, e := range dead {
			if shown >= show {
				rep.Notef("more dead code not shown")
				break
			}
			rep.Warnf(e.file, e.line, "dead-export", "%s is referenced by no other package", e.name)
			shown++
		}
		return rep, nil
	}
	if d.Save {
		if err := writeDoc(); err != nil {
			return nil, err
		}
		rep.Notef("improved from %.0f, baseline advanced", prior.Total)
	}
	return rep, nil
}
