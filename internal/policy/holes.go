package policy

import (
	"context"
	"go/ast"
	"sort"
	"strings"

	"turnstile/internal/baseline"
	"turnstile/internal/ratchet"
	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "holes",
		Description: "ratchet down type holes: any, interface{}, nolint directives",
		Blocking:    true,
		Run:         runHoles,
	})
}

const holesFile = "holes.json"

type holeFact struct {
	anyIdents int
	emptyIfce int
	nolint    int
}

func (h holeFact) total() float64 {
	return float64(h.anyIdents + h.emptyIfce + h.nolint)
}

func countHoles(f *scan.File) (holeFact, bool) {
	if f.IsTest() || f.IsGenerated() {
		return holeFact{}, false
	}
	var fact holeFact
	ast.Inspect(f.AST, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Ident:
			if n.Name == "any" {
				fact.anyIdents++
			}
		case *ast.InterfaceType:
			if n.Methods == nil || len(n.Methods.List) == 0 {
				fact.emptyIfce++
			}
		}
		return true
	})
	for _, grp := range f.AST.Comments {
		for _, c := range grp.List {
			fact.nolint += strings.Count(c.Text, "//nolint")
		}
	}
	return fact, true
}

func runHoles(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.Holes
	rep := verdict.NewReport("holes")

	res, err := scan.Run(ctx, env.Target(), countHoles)
	if err != nil {
		return nil, err
	}
	noteSkipped(rep, res.Skipped)

	files := make(map[string]float64, len(res.Facts))
	var anyN, ifceN, nolintN int
	for _, f := range res.Facts {
		files[f.Path] = f.Value.total()
		anyN += f.Value.anyIdents
		ifceN += f.Value.emptyIfce
		nolintN += f.Value.nolint
	}
	total := float64(anyN + ifceN + nolintN)
	rep.Notef("current: %.0f holes (any %d, interface{} %d, nolint %d)",
		total, anyN, ifceN, nolintN)

	prior, err := baseline.Read[baseline.Totals](env.BaselineDir, holesFile)
	if err != nil {
		return nil, err
	}

	rcfg := ratchet.Config{Polarity: ratchet.LowerIsBetter, Floor: cfg.NewFileMax, HasFloor: true}

	if env.Changed != nil {
		// Incremental mode judges only the touched files and never
		// rewrites the baseline from a partial scan.
		if prior == nil {
			rep.Notef("no baseline yet, run a full scan to adopt one")
			return rep, nil
		}
		d := ratchet.Evaluate(rcfg, prior.Files, files)
		for _, k := range d.Regressed {
			rep.Blockf(k.Key, 0, "hole-ratchet", "type holes rose from %.0f to %.0f",
				k.Prior, k.Current)
		}
		for _, k := range d.BelowFloor {
			rep.Blockf(k.Key, 0, "new-file-cap", "new file carries %.0f hole(s), cap is %.0f",
				k.Current, cfg.NewFileMax)
		}
		return rep, nil
	}

	if env.Init || prior == nil {
		doc := baseline.TotalsDoc(total, holeBreakdown(anyN, ifceN, nolintN), files)
		if err := baseline.Write(env.BaselineDir, holesFile, doc); err != nil {
			return nil, err
		}
		rep.Notef("baseline created at %.0f holes", total)
		return rep, nil
	}

	d := ratchet.EvaluateTotal(rcfg, &prior.Total, total)
	if !d.Passed() {
		rep.Blockf("", 0, "hole-ratchet", "type holes rose from %.0f to %.0f",
			prior.Total, total)
		for _, path := range grownFiles(prior.Files, files, 10) {
			rep.Warnf(path, 0, "hole-ratchet", "holes here rose from %.0f to %.0f",
				prior.Files[path], files[path])
		}
		return rep, nil
	}
	if d.Save {
		doc := baseline.TotalsDoc(total, holeBreakdown(anyN, ifceN, nolintN), files)
		if err := baseline.Write(env.BaselineDir, holesFile, doc); err != nil {
			return nil, err
		}
		rep.Notef("improved from %.0f, baseline advanced", prior.Total)
	}
	return rep, nil
}

func holeBreakdown(anyN, ifceN, nolintN int) map[string]float64 {
	return map[string]float64{
		"any":       float64(anyN),
		"interface": float64(ifceN),
		"nolint":    float64(nolintN),
	}
}

// grownFiles lists paths whose count exceeds the prior entry, worst first.
func grownFiles(prior, current map[string]float64, limit int) []string {
	var out []string
	for path, cur := range current {
		if cur > prior[path] {
			out = append(out, path)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di := current[out[i]] - prior[out[i]]
		dj := current[out[j]] - prior[out[j]]
		if di != dj {
			return di > dj
		}
		return out[i] < out[j]
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
