package main

import "github.com/spf13/cobra"

var coverageFlags struct {
	profile   string
	globalMin float64
	newFloor  float64
	tolerance float64
	initBase  bool
}

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Ratchet per-file and global test coverage, never down",
	Long: "Reads a Go cover profile and compares every file against the baseline.\n" +
		"Coverage may only rise: drops beyond tolerance block, improvements advance\n" +
		"the baseline, and new files must start at or above the floor.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		cc := &p.Cfg.Checks.Coverage
		if cmd.Flags().Changed("profile") {
			cc.Profile = coverageFlags.profile
		}
		if cmd.Flags().Changed("global-min") {
			cc.GlobalMin = coverageFlags.globalMin
		}
		if cmd.Flags().Changed("new-floor") {
			cc.NewFloor = coverageFlags.newFloor
		}
		if cmd.Flags().Changed("tolerance") {
			cc.Tolerance = coverageFlags.tolerance
		}
		env := p.env()
		env.Init = coverageFlags.initBase
		return runOne(cmd, "coverage", env)
	},
}

func init() {
	f := coverageCmd.Flags()
	f.StringVar(&coverageFlags.profile, "profile", "", "Cover profile path (from go test -coverprofile)")
	f.Float64Var(&coverageFlags.globalMin, "global-min", 70, "Minimum acceptable global coverage percent")
	f.Float64Var(&coverageFlags.newFloor, "new-floor", 80, "Minimum coverage percent for files new to the baseline")
	f.Float64Var(&coverageFlags.tolerance, "tolerance", 0.2, "Permitted per-key drop in percentage points")
	f.BoolVar(&coverageFlags.initBase, "init", false, "Adopt the current coverage as the baseline")
	rootCmd.AddCommand(coverageCmd)
}
