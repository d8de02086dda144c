package main

import "github.com/spf13/cobra"

var swallowedFlags struct {
	changedOnly bool
}

var swallowedCmd = &cobra.Command{
	Use:   "swallowed",
	Short: "Fail on silently swallowed errors",
	Long: "Flags empty `if err != nil` branches, call results discarded into\n" +
		"blanks, and discarded recover() values. A line (or its predecessor)\n" +
		"carrying `// turnstile:allow-swallow <reason>` is exempt.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		env := p.env()
		if swallowedFlags.changedOnly {
			env.Changed = p.changedFiles(cmd, "", false)
		}
		return runOne(cmd, "swallowed", env)
	},
}

func init() {
	swallowedCmd.Flags().BoolVar(&swallowedFlags.changedOnly, "changed-only", false, "Scan only files changed against the diff base")
	rootCmd.AddCommand(swallowedCmd)
}
