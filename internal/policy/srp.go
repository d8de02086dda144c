package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"turnstile/internal/scan"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "srp",
		Description: "hard size gate: one file, one responsibility",
		Blocking:    true,
		Run:         runSRP,
	})
}

type srpExemption struct {
	Path          string `json:"path"`
	Justification string `json:"justification"`
	ExpiresAt     string `json:"expiresAt,omitempty"`
}

// loadExemptions returns the still-valid exempt paths and the expired ones.
func loadExemptions(path string, today time.Time) (exempt map[string]bool, expired []srpExemption, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read exemptions %s: %w", path, err)
	}
	var entries []srpExemption
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("parse exemptions %s: %w", path, err)
	}
	exempt = map[string]bool{}
	for _, e := range entries {
		if e.ExpiresAt != "" {
			day := strings.SplitN(e.ExpiresAt, "T", 2)[0]
			when, perr := time.Parse("2006-01-02", day)
			if perr != nil || when.Before(today.Truncate(24*time.Hour)) {
				expired = append(expired, e)
				continue
			}
		}
		exempt[filepath.ToSlash(e.Path)] = true
	}
	return exempt, expired, nil
}

func runSRP(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.SRP
	rep := verdict.NewReport("srp")

	exemptPath := cfg.ExemptionsFile
	if exemptPath != "" && !filepath.IsAbs(exemptPath) {
		exemptPath = filepath.Join(env.Root, exemptPath)
	}
	exempt, expired, err := loadExemptions(exemptPath, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	for _, e := range expired {
		rep.Warnf(e.Path, 0, "exemption-expired",
			"exemption expired %s (%s)", e.ExpiresAt, e.Justification)
	}

	res, err := scan.Run(ctx, env.Target(), measureFile)
	if err != nil {
		return nil, err
	}
	noteSkipped(rep, res.Skipped)

	violations := sizeViolations(res.Facts, struct{ srcMax, testMax, funcMax, cplxMax int }{
		cfg.MaxSourceLines, cfg.MaxTestLines, cfg.MaxFuncLines, 0,
	})
	for _, v := range violations {
		if exempt[v.path] {
			continue
		}
		rep.Blockf(v.path, v.line, v.category, v.msg, v.args...)
	}
	if len(rep.Blocking()) > 0 && cfg.ExemptionsFile != "" {
		rep.Notef("split the file, or add a justified entry to %s", cfg.ExemptionsFile)
	}
	return rep, nil
}
