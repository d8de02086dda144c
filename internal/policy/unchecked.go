package policy

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"turnstile/internal/baseline"
	"turnstile/internal/ratchet"
	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "unchecked",
		Description: "ratchet down unchecked escape hatches by pattern category",
		Blocking:    true,
		Run:         runUnchecked,
	})
}

const uncheckedFile = "unchecked.json"

func runUnchecked(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.Unchecked
	rep := verdict.NewReport("unchecked")

	type pattern struct {
		name string
		re   *regexp.Regexp
	}
	patterns := make([]pattern, 0, len(cfg.Patterns))
	for name, expr := range cfg.Patterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", name, err)
		}
		patterns = append(patterns, pattern{name, re})
	}
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].name < patterns[j].name })

	t := env.Target()
	t.Files = nil // category totals are a whole-tree property
	res, err := scan.RunRaw(ctx, t, func(f *scan.File) (map[string]int, bool) {
		if f.IsTest() || f.IsGenerated() {
			return nil, false
		}
		counts := map[string]int{}
		for _, p := range patterns {
			if n := len(p.re.FindAllIndex(f.Src, -1)); n > 0 {
				counts[p.name] = n
			}
		}
		return counts, len(counts) > 0
	})
	if err != nil {
		return nil, err
	}
	noteSkipped(rep, res.Skipped)

	byCategory := map[string]float64{}
	var total float64
	for _, f := range res.Facts {
		for name, n := range f.Value {
			byCategory[name] += float64(n)
			total += float64(n)
		}
	}
	for _, p := range patterns {
		rep.Notef("%s: %.0f", p.name, byCategory[p.name])
	}

	prior, err := baseline.Read[baseline.Totals](env.BaselineDir, uncheckedFile)
	if err != nil {
		return nil, err
	}
	if env.Init || prior == nil {
		doc := baseline.TotalsDoc(total, byCategory, nil)
		if err := baseline.Write(env.BaselineDir, uncheckedFile, doc); err != nil {
			return nil, err
		}
		rep.Notef("baseline created at %.0f", total)
		return rep, nil
	}

	rcfg := ratchet.Config{Polarity: ratchet.LowerIsBetter}
	d := ratchet.EvaluateTotal(rcfg, &prior.Total, total)
	if !d.Passed() {
		rep.Blockf("", 0, "unchecked-ratchet", "escape hatches rose from %.0f to %.0f",
			prior.Total, total)
		for _, p := range patterns {
			if cur, prev := byCategory[p.name], prior.ByCategory[p.name]; cur > prev {
				rep.Warnf("", 0, p.name, "rose from %.0f to %.0f", prev, cur)
			}
		}
		return rep, nil
	}
	if d.Save {
		doc := baseline.TotalsDoc(total, byCategory, nil)
		if err := baseline.Write(env.BaselineDir, uncheckedFile, doc); err != nil {
			return nil, err
		}
		rep.Notef("improved from %.0f, baseline advanced", prior.Total)
	}
	return rep, nil
}
