package policy

import (
	"context"
	"go/ast"
	"go/token"
	"sort"
	"strconv"
	"strings"

	"turnstile/internal/baseline"
	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "routes",
		Description: "every registered HTTP route needs a test that names it",
		Blocking:    true,
		Run:         runRoutes,
	})
}

const routesFile = "routes.json"

type routesDoc struct {
	Grandfathered []string `json:"grandfathered"`
	GeneratedAt   string   `json:"generated_at"`
}

// routeMethods maps registration selector names to the HTTP method they
// imply, covering net/http and the common router styles.
var routeMethods = map[string]string{
	"HandleFunc": "ANY", "Handle": "ANY",
	"Get": "GET", "GET": "GET",
	"Post": "POST", "POST": "POST",
	"Put": "PUT", "PUT": "PUT",
	"Patch": "PATCH", "PATCH": "PATCH",
	"Delete": "DELETE", "DELETE": "DELETE",
	"Head": "HEAD", "HEAD": "HEAD",
	"Options": "OPTIONS", "OPTIONS": "OPTIONS",
}

type routeReg struct {
	method string
	path   string
	line   int
}

type routeFact struct {
	test   bool
	src    string
	routes []routeReg
}

func routeFacts(f *scan.File) (routeFact, bool) {
	if f.IsTest() {
		return routeFact{test: true, src: string(f.Src)}, true
	}
	if f.IsGenerated() {
		return routeFact{}, false
	}
	var fact routeFact
	ast.Inspect(f.AST, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		method, ok := routeMethods[sel.Sel.Name]
		if !ok {
			return true
		}
		lit, ok := call.Args[0].(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return true
		}
		path, err := strconv.Unquote(lit.Value)
		if err != nil || !strings.HasPrefix(path, "/") {
			return true
		}
		fact.routes = append(fact.routes, routeReg{
			method: method,
			path:   path,
			line:   f.Fset.Position(call.Pos()).Line,
		})
		return true
	})
	return fact, len(fact.routes) > 0
}

func runRoutes(ctx context.Context, env *Env) (*verdict.Report, error) {
	rep := verdict.NewReport("routes")

	// Tests anywhere in the tree may cover a route, so the test corpus is
	// always collected from a full scan.
	t := env.Target()
	t.Files = nil
	res, err := scan.Run(ctx, t, routeFacts)
	if err != nil {
		return nil, err
	}
	noteSkipped(rep, res.Skipped)

	var testCorpus strings.Builder
	type reg struct {
		routeReg
		file string
	}
	var regs []reg
	changed := env.ChangedSet()
	for _, f := range res.Facts {
		if f.Value.test {
			testCorpus.WriteString(f.Value.src)
			continue
		}
		if changed != nil && !changed[f.Path] {
			continue
		}
		for _, r := range f.Value.routes {
			regs = append(regs, reg{r, f.Path})
		}
	}
	if len(regs) == 0 {
		rep.Notef("no route registrations in scope")
		return rep, nil
	}

	prior, err := baseline.Read[routesDoc](env.BaselineDir, routesFile)
	if err != nil {
		return nil, err
	}
	grandfathered := map[string]bool{}
	if prior != nil {
		for _, k := range prior.Grandfathered {
			grandfathered[k] = true
		}
	}

	corpus := testCorpus.String()
	var missing []reg
	for _, r := range regs {
		key := r.method + " " + r.path
		if grandfathered[key] || strings.Contains(corpus, r.path) {
			continue
		}
		missing = append(missing, r)
	}

	if env.Update {
		for _, r := range missing {
			grandfathered[r.method+" "+r.path] = true
		}
		doc := routesDoc{GeneratedAt: baseline.Stamp()}
		for k := range grandfathered {
			doc.Grandfathered = append(doc.Grandfathered, k)
		}
		sort.Strings(doc.Grandfathered)
		if err := baseline.Write(env.BaselineDir, routesFile, doc); err != nil {
			return nil, err
		}
		rep.Notef("%d route(s) grandfathered", len(missing))
		return rep, nil
	}

	for _, r := range missing {
		rep.Blockf(r.file, r.line, "untested-route",
			"%s %s appears in no test", r.method, r.path)
	}
	if len(missing) == 0 {
		rep.Notef("%d route(s) checked", len(regs))
	}
	return rep, nil
}
