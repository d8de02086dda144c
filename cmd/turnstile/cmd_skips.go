package main

import "github.com/spf13/cobra"

var skipsFlags struct {
	maxPercent float64
}

var skipsCmd = &cobra.Command{
	Use:   "skips",
	Short: "Cap the share of tests that skip themselves",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("max") {
			p.Cfg.Checks.Skips.MaxPercent = skipsFlags.maxPercent
		}
		return runOne(cmd, "skips", p.env())
	},
}

func init() {
	skipsCmd.Flags().Float64Var(&skipsFlags.maxPercent, "max", 5, "Maximum skipped-test percentage")
	rootCmd.AddCommand(skipsCmd)
}
