package main

import "github.com/spf13/cobra"

var depsFlags struct {
	minAge  int
	timeout int
	offline bool
}

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Verify every direct dependency exists and has aged on the registry",
	Long: "Looks each direct go.mod requirement up on the module proxy: the module\n" +
		"must exist and its first release must be old enough. Trusted prefixes and\n" +
		"exempted paths skip the lookup; results are cached locally. Lookup\n" +
		"failures degrade to trusted, so a proxy outage never blocks a merge.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		dc := &p.Cfg.Checks.Deps
		if cmd.Flags().Changed("min-age") {
			dc.MinAgeDays = depsFlags.minAge
		}
		if cmd.Flags().Changed("timeout") {
			dc.TimeoutSeconds = depsFlags.timeout
		}
		env := p.env()
		env.Offline = depsFlags.offline
		if db := p.openStore(); db != nil {
			defer db.Close()
			env.DB = db
		}
		return runOne(cmd, "deps", env)
	},
}

func init() {
	f := depsCmd.Flags()
	f.IntVar(&depsFlags.minAge, "min-age", 30, "Minimum days since a module's first release")
	f.IntVar(&depsFlags.timeout, "timeout", 10, "Registry lookup timeout in seconds")
	f.BoolVar(&depsFlags.offline, "offline", false, "Skip registry lookups (cache hits still verify)")
	rootCmd.AddCommand(depsCmd)
}
