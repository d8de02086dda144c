package policy

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"turnstile/internal/baseline"
	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "pairing",
		Description: "every I/O adapter needs a behavioral test against real I/O",
		Blocking:    true,
		Run:         runPairing,
	})
}

const pairingFile = "pairing.json"

type pairingDoc struct {
	Grandfathered []string `json:"grandfathered"`
	GeneratedAt   string   `json:"generated_at"`
}

type pairingFact struct {
	test        bool
	integration bool // test exercising real I/O, by name or build tag
	imports     []string
}

func pairingFacts(f *scan.File) (pairingFact, bool) {
	fact := pairingFact{test: f.IsTest()}
	if fact.test {
		name := filepath.Base(f.Path)
		fact.integration = strings.Contains(name, "integration") ||
			strings.Contains(string(f.Src), "//go:build integration")
		return fact, true
	}
	if f.IsGenerated() {
		return pairingFact{}, false
	}
	for _, imp := range f.AST.Imports {
		fact.imports = append(fact.imports, strings.Trim(imp.Path.Value, `"`))
	}
	return fact, true
}

// adapterReasons reports why a file counts as an I/O adapter, or none.
func adapterReasons(path string, imports []string, suffixes, ioImports []string) []string {
	var reasons []string
	base := filepath.Base(path)
	for _, s := range suffixes {
		if strings.HasSuffix(base, s) {
			reasons = append(reasons, "name ends in "+s)
			break
		}
	}
	for _, imp := range imports {
		for _, io := range ioImports {
			if imp == io {
				reasons = append(reasons, "imports "+io)
			}
		}
	}
	return reasons
}

func runPairing(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.Pairing
	rep := verdict.NewReport("pairing")

	// The covered set must always come from the whole tree, even when only
	// the changed files are on trial.
	t := env.Target()
	t.Files = nil
	res, err := scan.Run(ctx, t, pairingFacts)
	if err != nil {
		return nil, err
	}
	noteSkipped(rep, res.Skipped)

	testFiles := map[string]bool{}
	integrationDirs := map[string]bool{}
	type adapter struct {
		path    string
		reasons []string
	}
	var adapters []adapter
	changed := env.ChangedSet()
	for _, f := range res.Facts {
		if f.Value.test {
			testFiles[f.Path] = true
			if f.Value.integration {
				integrationDirs[filepath.ToSlash(filepath.Dir(f.Path))] = true
			}
			continue
		}
		if strings.HasPrefix(f.Path, "cmd/") {
			continue
		}
		if changed != nil && !changed[f.Path] {
			continue
		}
		if reasons := adapterReasons(f.Path, f.Value.imports, cfg.AdapterSuffixes, cfg.IOImports); len(reasons) > 0 {
			adapters = append(adapters, adapter{f.Path, reasons})
		}
	}
	if len(adapters) == 0 {
		rep.Notef("no I/O adapters in scope")
		return rep, nil
	}

	prior, err := baseline.Read[pairingDoc](env.BaselineDir, pairingFile)
	if err != nil {
		return nil, err
	}
	grandfathered := map[string]bool{}
	if prior != nil {
		for _, p := range prior.Grandfathered {
			grandfathered[p] = true
		}
	}

	var missing []adapter
	for _, a := range adapters {
		sibling := strings.TrimSuffix(a.path, ".go") + "_test.go"
		if testFiles[sibling] || integrationDirs[filepath.ToSlash(filepath.Dir(a.path))] {
			continue
		}
		if grandfathered[a.path] {
			continue
		}
		missing = append(missing, a)
	}

	if env.Update {
		for _, a := range missing {
			grandfathered[a.path] = true
		}
		doc := pairingDoc{GeneratedAt: baseline.Stamp()}
		for p := range grandfathered {
			doc.Grandfathered = append(doc.Grandfathered, p)
		}
		sort.Strings(doc.Grandfathered)
		if err := baseline.Write(env.BaselineDir, pairingFile, doc); err != nil {
			return nil, err
		}
		rep.Notef("%d adapter(s) grandfathered", len(missing))
		return rep, nil
	}

	for _, a := range missing {
		rep.Blockf(a.path, 0, "unpaired-adapter",
			"%s, but no behavioral test covers it", strings.Join(a.reasons, ", "))
	}
	if len(missing) > 0 {
		rep.Notef("add a sibling _test.go or an integration-tagged test in the package")
	} else {
		rep.Notef("%d adapter(s) checked", len(adapters))
	}
	return rep, nil
}
