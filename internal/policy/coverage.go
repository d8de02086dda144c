package policy

import (
	"context"
	"errors"
	"path/filepath"

	"turnstile/internal/baseline"
	"turnstile/internal/coverprofile"
	"turnstile/internal/format"
	"turnstile/internal/ratchet"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "coverage",
		Description: "ratchet test coverage per file and globally, never down",
		Blocking:    true,
		Run:         runCoverage,
	})
}

const coverageFile = "coverage.json"

func runCoverage(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.Coverage
	rep := verdict.NewReport("coverage")

	if cfg.Profile == "" {
		return nil, verdict.Operational(errors.New("no coverage profile configured"),
			"run `go test ./... -coverprofile=coverage.out` and pass --profile coverage.out")
	}
	profile := cfg.Profile
	if !filepath.IsAbs(profile) {
		profile = filepath.Join(env.Root, profile)
	}
	mod, err := modulePath(env.Root)
	if err != nil && !missingGoMod(err) {
		return nil, err
	}
	sum, err := coverprofile.Parse(profile, mod)
	if err != nil {
		return nil, verdict.Operational(err,
			"regenerate the profile with `go test ./... -coverprofile=coverage.out`")
	}

	prior, err := baseline.Read[baseline.Totals](env.BaselineDir, coverageFile)
	if err != nil {
		return nil, err
	}

	rcfg := ratchet.Config{
		Polarity:  ratchet.HigherIsBetter,
		Tolerance: cfg.Tolerance,
		Floor:     cfg.NewFloor,
		HasFloor:  true,
	}

	if env.Init || prior == nil {
		doc := baseline.TotalsDoc(sum.Global, nil, sum.Files)
		if err := baseline.Write(env.BaselineDir, coverageFile, doc); err != nil {
			return nil, err
		}
		rep.Notef("baseline created at global %s across %d file(s)",
			format.Percent(sum.Global), len(sum.Files))
		return rep, nil
	}

	files := ratchet.Evaluate(rcfg, prior.Files, sum.Files)
	priorGlobal := prior.Total
	global := ratchet.EvaluateTotal(rcfg, &priorGlobal, sum.Global)

	for _, k := range files.Regressed {
		rep.Blockf(k.Key, 0, "coverage-drop", "coverage fell from %s to %s",
			format.Percent(k.Prior), format.Percent(k.Current))
	}
	for _, k := range files.BelowFloor {
		rep.Blockf(k.Key, 0, "new-file-floor", "new file at %s, floor is %s",
			format.Percent(k.Current), format.Percent(cfg.NewFloor))
	}
	for _, k := range global.Regressed {
		rep.Blockf("", 0, "coverage-drop", "global coverage fell from %s to %s",
			format.Percent(k.Prior), format.Percent(k.Current))
	}
	if sum.Global+1e-9 < cfg.GlobalMin {
		rep.Blockf("", 0, "coverage-min", "global coverage %s below the %s minimum",
			format.Percent(sum.Global), format.Percent(cfg.GlobalMin))
	}

	if n := len(files.Improved); n > 0 {
		rep.Notef("%s improved", format.Count(n, "file", "files"))
	}
	rep.Notef("global coverage %s (baseline %s)",
		format.Percent(sum.Global), format.Percent(prior.Total))

	if rep.Passed() && (files.Save || global.Save) {
		doc := baseline.TotalsDoc(global.Total(), nil, files.Next)
		if err := baseline.Write(env.BaselineDir, coverageFile, doc); err != nil {
			return nil, err
		}
		rep.Notef("baseline advanced")
	}
	return rep, nil
}
