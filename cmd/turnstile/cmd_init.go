package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"turnstile/internal/config"
)

var initFlags struct {
	force bool
}

// initBaselineChecks are the ratchets seeded by `init`. Coverage joins them
// only when a profile file is present, the rest need nothing but the tree.
var initBaselineChecks = []string{"holes", "unchecked", "size", "orphans"}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config and adopt initial baselines",
	Long: "Creates .turnstile.yaml with the compiled defaults, then runs each\n" +
		"ratcheting check in adopt mode so the current state of the tree becomes\n" +
		"the baseline future runs tighten against.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()

		path, err := config.WriteDefault(rootFlags.root)
		switch {
		case errors.Is(err, os.ErrExist) && !initFlags.force:
			fmt.Fprintf(out, "config: %s already exists (keeping it, use --force to overwrite)\n", path)
		case errors.Is(err, os.ErrExist):
			if err := os.Remove(path); err != nil {
				return err
			}
			if path, err = config.WriteDefault(rootFlags.root); err != nil {
				return err
			}
			fmt.Fprintf(out, "config: rewrote %s\n", path)
		case err != nil:
			return err
		default:
			fmt.Fprintf(out, "config: wrote %s\n", path)
		}

		p, err := loadProject()
		if err != nil {
			return err
		}

		checks := initBaselineChecks
		profile := p.Cfg.Checks.Coverage.Profile
		if profile != "" {
			if !filepath.IsAbs(profile) {
				profile = filepath.Join(p.Root, profile)
			}
			if _, err := os.Stat(profile); err == nil {
				checks = append(checks, "coverage")
			} else {
				fmt.Fprintf(out, "coverage: no profile at %s, baseline skipped\n", profile)
			}
		}

		for _, name := range checks {
			env := p.env()
			env.Init = true
			if err := runOne(cmd, name, env); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
