package main

import "github.com/spf13/cobra"

var suppressFlags struct {
	base string
}

var suppressCmd = &cobra.Command{
	Use:   "suppress",
	Short: "Fail on new suppression directives in changed files",
	Long: "Scans the files changed against the diff base for forbidden directives\n" +
		"(//nolint, //lint:ignore, #nosec). Pre-existing suppressions elsewhere are\n" +
		"tolerated; new code fixes findings instead of silencing them.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		env := p.env()
		env.Changed = p.changedFiles(cmd, suppressFlags.base, false)
		return runOne(cmd, "suppress", env)
	},
}

func init() {
	suppressCmd.Flags().StringVar(&suppressFlags.base, "base", "", "Diff base ref (default from config, origin/main)")
	rootCmd.AddCommand(suppressCmd)
}
