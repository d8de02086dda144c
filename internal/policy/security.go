package policy

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "security",
		Description: "require review acknowledgment when security-critical code changes",
		Blocking:    true,
		Run:         runSecurity,
	})
}

type securityHit struct {
	line int
	why  string
}

func runSecurity(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.Security
	rep := verdict.NewReport("security")
	if env.Changed == nil {
		rep.Notef("no changed-file set given, nothing to check")
		return rep, nil
	}

	res, err := scan.RunRaw(ctx, env.Target(), func(f *scan.File) ([]securityHit, bool) {
		var hits []securityHit
		for _, g := range cfg.SensitiveGlobs {
			if ok, _ := doublestar.Match(g, f.Path); ok {
				hits = append(hits, securityHit{0, "path matches sensitive pattern " + g})
				break
			}
		}
		for i, line := range strings.Split(string(f.Src), "\n") {
			if strings.Contains(line, cfg.Marker) {
				hits = append(hits, securityHit{i + 1, "marked " + cfg.Marker})
			}
		}
		return hits, len(hits) > 0
	})
	if err != nil {
		return nil, err
	}
	noteSkipped(rep, res.Skipped)

	acked := env.env(cfg.AckEnv) == "true"
	for _, f := range res.Facts {
		for _, h := range f.Value {
			if acked {
				rep.Warnf(f.Path, h.line, "security-review", "%s, change acknowledged", h.why)
			} else {
				rep.Blockf(f.Path, h.line, "security-review",
					"%s, human review required", h.why)
			}
		}
	}
	if len(rep.Blocking()) > 0 {
		rep.Notef("after review, set %s=true to acknowledge", cfg.AckEnv)
	}
	return rep, nil
}
