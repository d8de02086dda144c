package main

import "github.com/spf13/cobra"

var cyclesFlags struct {
	maxDisplay int
}

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Fail on import cycles inside the module",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("max-display") {
			p.Cfg.Checks.Cycles.MaxDisplay = cyclesFlags.maxDisplay
		}
		return runOne(cmd, "cycles", p.env())
	},
}

func init() {
	cyclesCmd.Flags().IntVar(&cyclesFlags.maxDisplay, "max-display", 5, "Cap on cycles listed in the report")
	rootCmd.AddCommand(cyclesCmd)
}
