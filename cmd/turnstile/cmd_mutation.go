package main

import "github.com/spf13/cobra"

var mutationFlags struct {
	report   string
	minScore float64
}

var mutationCmd = &cobra.Command{
	Use:   "mutation",
	Short: "Gate changed packages on their mutation score",
	Long: "Reads a mutation-test report and fails when the files touched by the\n" +
		"current diff score below the minimum overall. Paths matched by the\n" +
		"amnesty file are left out of the score.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		mc := &p.Cfg.Checks.Mutation
		if cmd.Flags().Changed("report") {
			mc.Report = mutationFlags.report
		}
		if cmd.Flags().Changed("min-score") {
			mc.MinScore = mutationFlags.minScore
		}
		env := p.env()
		env.Changed = p.changedFiles(cmd, "", false)
		return runOne(cmd, "mutation", env)
	},
}

func init() {
	f := mutationCmd.Flags()
	f.StringVar(&mutationFlags.report, "report", "", "Path to the mutation-test JSON report")
	f.Float64Var(&mutationFlags.minScore, "min-score", 70, "Minimum mutation score for changed packages")
	rootCmd.AddCommand(mutationCmd)
}
