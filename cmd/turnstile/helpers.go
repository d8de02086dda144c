package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"turnstile/internal/baseline"
	"turnstile/internal/config"
	"turnstile/internal/format"
	"turnstile/internal/gitdiff"
	"turnstile/internal/logging"
	"turnstile/internal/policy"
	"turnstile/internal/store"
	"turnstile/internal/wiring"
)

// project is the resolved invocation context shared by every subcommand.
type project struct {
	Root string
	Cfg  *config.Config
}

// loadProject resolves --root and merges the on-disk config over defaults.
func loadProject() (*project, error) {
	root, err := filepath.Abs(rootFlags.root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &project{Root: root, Cfg: cfg}, nil
}

// env assembles the policy environment. Changed stays nil unless a command
// resolves a change set explicitly.
func (p *project) env() *policy.Env {
	return &policy.Env{
		Root:        p.Root,
		Cfg:         p.Cfg,
		BaselineDir: baseline.Dir(p.Root, dirOrDefault(p.Cfg.BaselineDir)),
		Logger:      logging.New("check"),
	}
}

func dirOrDefault(cfgDir string) string {
	if rootFlags.baselineDir != "" {
		return rootFlags.baselineDir
	}
	return cfgDir
}

// changedFiles resolves the change set against base (or the configured
// diff base). Outside a git repository it degrades to nil: changed-scoped
// checks then report that there was nothing to judge.
func (p *project) changedFiles(cmd *cobra.Command, base string, staged bool) []string {
	if base == "" {
		base = p.Cfg.DiffBase
	}
	var (
		files []string
		err   error
	)
	if staged {
		files, err = gitdiff.StagedFiles(cmd.Context(), p.Root)
	} else {
		files, err = gitdiff.ChangedFiles(cmd.Context(), p.Root, base)
	}
	if err != nil {
		logging.New("gitdiff").Warn("change set unavailable", "base", base, "error", err)
		return nil
	}
	return files
}

// openStore opens the SQLite cache. Callers must Close. A nil store is
// tolerated by every check, so failures degrade with a warning.
func (p *project) openStore() *store.Store {
	path := p.Cfg.DBPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.Root, path)
	}
	db, err := store.Open(path)
	if err != nil {
		logging.New("store").Warn("cache unavailable", "path", path, "error", err)
		return nil
	}
	return db
}

func outputMode() (format.Mode, error) {
	return format.ParseMode(rootFlags.format)
}

// runOne executes a registered check and renders its report. The returned
// error carries the exit code: nil pass, ExitError{1} on violations, the
// check's own error otherwise.
func runOne(cmd *cobra.Command, name string, env *policy.Env) error {
	c, ok := policy.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown check %q", name)
	}
	mode, err := outputMode()
	if err != nil {
		return err
	}
	rep, err := c.Run(cmd.Context(), env)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), rep.Render(mode))
	return rep.Err()
}

// renderOutcomes prints one summary line per passing check and the full
// table for each failing one.
func renderOutcomes(cmd *cobra.Command, outcomes []wiring.Outcome) error {
	mode, err := outputMode()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			fmt.Fprintf(out, "%s: ERROR: %v\n", o.Check, o.Err)
		case o.Report.Passed() && len(o.Report.Warnings()) == 0:
			fmt.Fprintln(out, o.Report.Summary())
		default:
			fmt.Fprint(out, o.Report.Render(mode))
		}
	}
	return wiring.Combined(outcomes)
}
