// turnstile gates CI on code-governance policies: ratcheted baselines,
// AST-level source checks, import-cycle detection, and registry-verified
// dependencies. Exit 0 means pass, 1 means a policy blocked, 2 means the
// check itself could not run.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"turnstile/internal/logging"
	"turnstile/internal/verdict"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	root        string
	format      string
	logLevel    string
	logFormat   string
	baselineDir string
}

var rootCmd = &cobra.Command{
	Use:   "turnstile",
	Short: "Ratcheted code-governance gates for CI",
	Long: "Turnstile runs a catalog of governance checks against a Go repository:\n" +
		"coverage and type-hole ratchets, import-cycle and swallowed-error gates,\n" +
		"dependency verification, and more. Ratchets only ever tighten: improvements\n" +
		"advance the baseline, regressions block.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level, err := logging.ParseLevel(rootFlags.logLevel)
		if err != nil {
			return err
		}
		logging.Init(level, rootFlags.logFormat, cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.root, "root", "C", ".", "Project root to check")
	pf.StringVar(&rootFlags.format, "format", "ascii", "Report format: ascii or markdown")
	pf.StringVar(&rootFlags.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&rootFlags.baselineDir, "baseline-dir", "", "Baseline directory (default .turnstile/baselines)")
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit code. Anything that is not a
// tagged policy outcome counts as an operational failure.
func exitCode(err error) int {
	var exit *verdict.ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return verdict.ExitOperational
}
