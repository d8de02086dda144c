package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"turnstile/internal/policy"
	"turnstile/internal/wiring"
)

var runFlags struct {
	only     []string
	skip     []string
	parallel int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every configured check and combine the verdicts",
	Long: "Fans the checks out across workers and prints one report per check.\n" +
		"The exit code is the worst individual outcome: an operational error\n" +
		"beats a violation, a violation beats a pass.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		names, err := selectChecks(runFlags.only, runFlags.skip)
		if err != nil {
			return err
		}
		env := p.env()
		if db := p.openStore(); db != nil {
			defer db.Close()
			env.DB = db
		}
		outcomes, err := wiring.RunChecks(cmd.Context(), env, names, runFlags.parallel)
		if err != nil {
			return err
		}
		return renderOutcomes(cmd, outcomes)
	},
}

// selectChecks narrows the registry to --only, or drops --skip from it.
// Both reject names the registry does not know.
func selectChecks(only, skip []string) ([]string, error) {
	if len(only) > 0 && len(skip) > 0 {
		return nil, fmt.Errorf("--only and --skip are mutually exclusive")
	}
	if len(only) > 0 {
		for _, n := range only {
			if _, ok := policy.Lookup(n); !ok {
				return nil, fmt.Errorf("unknown check %q (known: %v)", n, policy.Names())
			}
		}
		return only, nil
	}
	drop := make(map[string]bool, len(skip))
	for _, n := range skip {
		if _, ok := policy.Lookup(n); !ok {
			return nil, fmt.Errorf("unknown check %q (known: %v)", n, policy.Names())
		}
		drop[n] = true
	}
	var names []string
	for _, n := range policy.Names() {
		if !drop[n] {
			names = append(names, n)
		}
	}
	return names, nil
}

func init() {
	f := runCmd.Flags()
	f.StringSliceVar(&runFlags.only, "only", nil, "Run only these checks")
	f.StringSliceVar(&runFlags.skip, "skip", nil, "Run everything except these checks")
	f.IntVar(&runFlags.parallel, "parallel", 0, "Worker count (0 uses GOMAXPROCS)")
	rootCmd.AddCommand(runCmd)
}
