// Package policy implements the governance checks. Each check turns
// scanner facts into a verdict, usually by ratcheting a metric against a
// persisted baseline. The mechanisms live in internal/scan and
// internal/ratchet; this package holds only what makes each policy itself.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"turnstile/internal/config"
	"turnstile/internal/logging"
	"turnstile/internal/scan"
	"turnstile/internal/store"
	"turnstile/internal/verdict"
)

// Env is everything a check needs to run. Commands build one from flags
// and config; tests build one by hand.
type Env struct {
	Root        string
	Cfg         *config.Config
	BaselineDir string
	Changed     []string // nil = full scan; empty = changed mode with nothing changed
	Init        bool     // adopt current metrics as the new baseline
	Update      bool     // rewrite grandfather lists (pairing, routes)
	Offline     bool     // never touch the network (deps)
	DB          *store.Store
	Logger      *slog.Logger
	Getenv      func(string) string
}

// Check is one registered policy.
type Check struct {
	Name        string
	Description string
	Blocking    bool // false = advisory only, never fails `run`
	Run         func(ctx context.Context, env *Env) (*verdict.Report, error)
}

var registry = map[string]Check{}

// Register adds a check; duplicate names are a programming error.
func Register(c Check) {
	if _, ok := registry[c.Name]; ok {
		panic(fmt.Sprintf("policy: duplicate check %q", c.Name))
	}
	registry[c.Name] = c
}

// All returns every registered check sorted by name.
func All() []Check {
	out := make([]Check, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a check by name.
func Lookup(name string) (Check, bool) {
	c, ok := registry[name]
	return c, ok
}

// Names returns the sorted check names.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.Name
	}
	return names
}

// Target builds the scan target for this run: the configured globs, with
// the changed-file list narrowing the scope in incremental mode.
func (e *Env) Target() scan.Target {
	return scan.Target{
		Root:    e.Root,
		Include: e.Cfg.Include,
		Exclude: e.Cfg.Exclude,
		Files:   e.Changed,
	}
}

// ChangedSet returns the changed files as a set, or nil in full-scan mode.
func (e *Env) ChangedSet() map[string]bool {
	if e.Changed == nil {
		return nil
	}
	set := make(map[string]bool, len(e.Changed))
	for _, p := range e.Changed {
		set[p] = true
	}
	return set
}

// Log returns the env logger scoped to a check, defaulting to the global.
func (e *Env) Log(check string) *slog.Logger {
	if e.Logger != nil {
		return e.Logger.With(slog.String("component", check))
	}
	return logging.New(check)
}

// env reads an environment variable, through Getenv when one is set.
func (e *Env) env(key string) string {
	if e.Getenv != nil {
		return e.Getenv(key)
	}
	return os.Getenv(key)
}

// noteSkipped appends the standard skipped-files note when a scan had
// unparseable files.
func noteSkipped(rep *verdict.Report, skipped []string) {
	if n := len(skipped); n > 0 {
		rep.Notef("%d file(s) skipped (unreadable or invalid syntax)", n)
	}
}
