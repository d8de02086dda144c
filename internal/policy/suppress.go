package policy

import (
	"context"
	"strings"

	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "suppress",
		Description: "forbid new lint-suppression directives in changed files",
		Blocking:    true,
		Run:         runSuppress,
	})
}

type suppressHit struct {
	line      int
	directive string
}

func runSuppress(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.Suppress
	rep := verdict.NewReport("suppress")
	if env.Changed == nil {
		rep.Notef("no changed-file set given, nothing to check")
		return rep, nil
	}

	res, err := scan.RunRaw(ctx, env.Target(), func(f *scan.File) ([]suppressHit, bool) {
		if f.IsGenerated() {
			return nil, false
		}
		var hits []suppressHit
		for i, line := range strings.Split(string(f.Src), "\n") {
			for _, dir := range cfg.Directives {
				if strings.Contains(line, dir) && !strings.Contains(line, cfg.Amnesty) {
					hits = append(hits, suppressHit{line: i + 1, directive: dir})
					break
				}
			}
		}
		return hits, len(hits) > 0
	})
	if err != nil {
		return nil, err
	}
	noteSkipped(rep, res.Skipped)

	for _, f := range res.Facts {
		for _, h := range f.Value {
			rep.Blockf(f.Path, h.line, "suppression",
				"%s directive in a changed file, fix the finding instead", h.directive)
		}
	}
	if len(rep.Blocking()) > 0 {
		rep.Notef("pre-existing directives may carry the %q suffix", cfg.Amnesty)
	}
	return rep, nil
}
