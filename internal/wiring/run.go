// Package wiring composes the check registry into whole-run operations.
// The run command, watch mode, and CI entry points all fan checks out
// through RunChecks and reduce the outcomes with Combined.
package wiring

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"turnstile/internal/format"
	"turnstile/internal/policy"
	"turnstile/internal/verdict"
)

// Outcome is one check's result within a combined run. Err carries run
// failures (operational problems); policy violations live in Report.
type Outcome struct {
	Check  string
	Report *verdict.Report
	Err    error
}

// RunChecks runs the named checks concurrently against one Env, at most
// parallel at a time (0 means GOMAXPROCS). Check failures land in the
// outcomes; only an unknown name fails the call itself. Outcomes keep the
// order of names.
func RunChecks(ctx context.Context, env *policy.Env, names []string, parallel int) ([]Outcome, error) {
	checks := make([]policy.Check, len(names))
	for i, name := range names {
		c, ok := policy.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown check %q (known: %s)", name, strings.Join(policy.Names(), ", "))
		}
		checks[i] = c
	}
	if parallel <= 0 {
		parallel = runtime.GOMAXPROCS(0)
	}

	outcomes := make([]Outcome, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, c := range checks {
		g.Go(func() error {
			rep, err := c.Run(gctx, env)
			outcomes[i] = Outcome{Check: c.Name, Report: rep, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, nil
}

// Combined reduces outcomes to the process-level error. Operational
// failures dominate policy violations; a fully passing run returns nil.
func Combined(outcomes []Outcome) error {
	worst := verdict.ExitPass
	var failed []string
	for _, o := range outcomes {
		code := verdict.ExitPass
		switch {
		case o.Err != nil:
			code = verdict.ExitOperational
			var exit *verdict.ExitError
			if errors.As(o.Err, &exit) {
				code = exit.Code
			}
		case o.Report != nil && !o.Report.Passed():
			code = verdict.ExitViolation
		}
		if code != verdict.ExitPass {
			failed = append(failed, o.Check)
		}
		if code > worst {
			worst = code
		}
	}
	if worst == verdict.ExitPass {
		return nil
	}
	return &verdict.ExitError{
		Code: worst,
		Msg: fmt.Sprintf("%s failed: %s",
			format.Count(len(failed), "check", "checks"), strings.Join(failed, ", ")),
	}
}
