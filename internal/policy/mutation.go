package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"turnstile/internal/format"
	"turnstile/internal/verdict"
)

func init() {
	Register(Check{
		Name:        "mutation",
		Description: "require a minimum mutation score on the files in scope",
		Blocking:    true,
		Run:         runMutation,
	})
}

// mutationReport is the tool-agnostic shape turnstile consumes: whatever
// mutation tool ran, it reports killed/total mutants per file.
type mutationReport struct {
	Files map[string]mutationCounts `json:"files"`
}

type mutationCounts struct {
	Killed int `json:"killed"`
	Total  int `json:"total"`
}

// mutationAmnesty maps a category name to path patterns excluded from the
// gate. Additions are expected to go through review.
type mutationAmnesty map[string][]string

func (a mutationAmnesty) exempt(path string) bool {
	for _, patterns := range a {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, path); ok {
				return true
			}
		}
	}
	return false
}

func runMutation(ctx context.Context, env *Env) (*verdict.Report, error) {
	cfg := env.Cfg.Checks.Mutation
	rep := verdict.NewReport("mutation")

	if cfg.Report == "" {
		return nil, verdict.Operational(errors.New("no mutation report configured"),
			"run your mutation tool and pass --report <file> with per-file killed/total counts")
	}
	reportPath := cfg.Report
	if !filepath.IsAbs(reportPath) {
		reportPath = filepath.Join(env.Root, reportPath)
	}
	data, err := os.ReadFile(reportPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, verdict.Operational(fmt.Errorf("mutation report %s not found", cfg.Report),
			"run your mutation tool first, then re-run this check")
	}
	if err != nil {
		return nil, err
	}
	var report mutationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, verdict.Operational(fmt.Errorf("parse mutation report %s: %w", cfg.Report, err),
			"the report must be JSON of the form {\"files\": {\"path\": {\"killed\": n, \"total\": n}}}")
	}

	amnesty := mutationAmnesty{}
	if cfg.AmnestyFile != "" {
		amnestyPath := cfg.AmnestyFile
		if !filepath.IsAbs(amnestyPath) {
			amnestyPath = filepath.Join(env.Root, amnestyPath)
		}
		raw, err := os.ReadFile(amnestyPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read amnesty %s: %w", cfg.AmnestyFile, err)
		}
		if err == nil {
			if err := json.Unmarshal(raw, &amnesty); err != nil {
				return nil, fmt.Errorf("parse amnesty %s: %w", cfg.AmnestyFile, err)
			}
		}
	}

	changed := env.ChangedSet()
	var killed, total int
	paths := make([]string, 0, len(report.Files))
	for p := range report.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if changed != nil && !changed[p] {
			continue
		}
		if amnesty.exempt(p) {
			rep.Notef("%s under amnesty", p)
			continue
		}
		c := report.Files[p]
		killed += c.Killed
		total += c.Total
		if c.Total > 0 {
			score := float64(c.Killed) / float64(c.Total) * 100
			if score < cfg.MinScore {
				rep.Warnf(p, 0, "mutation-score", "%s (%d/%d killed)",
					format.Percent(score), c.Killed, c.Total)
			}
		}
	}

	if total == 0 {
		rep.Notef("no mutants in scope")
		return rep, nil
	}
	score := float64(killed) / float64(total) * 100
	rep.Notef("score %s (%d/%d killed), threshold %s",
		format.Percent(score), killed, total, format.Percent(cfg.MinScore))
	if score < cfg.MinScore {
		rep.Blockf("", 0, "mutation-score",
			"mutation score %s below the %s threshold: surviving mutants mean untested behavior",
			format.Percent(score), format.Percent(cfg.MinScore))
	}
	return rep, nil
}
