package main

import "github.com/spf13/cobra"

var securityFlags struct {
	base string
}

var securityCmd = &cobra.Command{
	Use:   "security",
	Short: "Require review acknowledgment for changes to sensitive code",
	Long: "Flags changed files that match the sensitive globs or carry the\n" +
		"security-critical marker. Setting the acknowledgment environment\n" +
		"variable downgrades the block to a warning for this run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		env := p.env()
		env.Changed = p.changedFiles(cmd, securityFlags.base, false)
		return runOne(cmd, "security", env)
	},
}

func init() {
	securityCmd.Flags().StringVar(&securityFlags.base, "base", "", "Diff base ref (defaults to the configured diff_base)")
	rootCmd.AddCommand(securityCmd)
}
