package main

import "github.com/spf13/cobra"

var mocksFlags struct {
	warnRatio float64
	failRatio float64
	base      string
}

var mocksCmd = &cobra.Command{
	Use:   "mocks",
	Short: "Gate wildcard matchers and runaway test-to-source ratios",
	Long: "Blocks wildcard matchers (mock.Anything, gomock.Any()) in changed files,\n" +
		"warns on sleep-based synchronization, and rates each package's\n" +
		"test-to-source line ratio against the warn and fail thresholds.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		mc := &p.Cfg.Checks.Mocks
		if cmd.Flags().Changed("warn-ratio") {
			mc.WarnRatio = mocksFlags.warnRatio
		}
		if cmd.Flags().Changed("fail-ratio") {
			mc.FailRatio = mocksFlags.failRatio
		}
		env := p.env()
		if cmd.Flags().Changed("base") {
			env.Changed = p.changedFiles(cmd, mocksFlags.base, false)
		}
		return runOne(cmd, "mocks", env)
	},
}

func init() {
	f := mocksCmd.Flags()
	f.Float64Var(&mocksFlags.warnRatio, "warn-ratio", 2, "Test-to-source ratio that draws a warning")
	f.Float64Var(&mocksFlags.failRatio, "fail-ratio", 3, "Test-to-source ratio that blocks")
	f.StringVar(&mocksFlags.base, "base", "", "Limit wildcard blocking to files changed against this ref")
	rootCmd.AddCommand(mocksCmd)
}
