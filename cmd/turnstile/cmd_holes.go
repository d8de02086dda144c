package main

import "github.com/spf13/cobra"

var holesFlags struct {
	changedOnly bool
	update      bool
	initBase    bool
}

var holesCmd = &cobra.Command{
	Use:   "holes",
	Short: "Ratchet the count of any, interface{}, and //nolint down",
	Long: "Counts type holes with the Go parser: identifiers resolving to any,\n" +
		"empty interface types, and //nolint directives. The total may only fall.\n" +
		"With --changed-only, touched files are judged against their own baseline\n" +
		"entries instead of the whole-tree total.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		env := p.env()
		env.Init = holesFlags.initBase || holesFlags.update
		if holesFlags.changedOnly {
			env.Changed = p.changedFiles(cmd, "", false)
		}
		return runOne(cmd, "holes", env)
	},
}

func init() {
	f := holesCmd.Flags()
	f.BoolVar(&holesFlags.changedOnly, "changed-only", false, "Judge only files changed against the diff base")
	f.BoolVar(&holesFlags.update, "update-baseline", false, "Rewrite the baseline at the current count")
	f.BoolVar(&holesFlags.initBase, "init", false, "Adopt the current count as the baseline")
	rootCmd.AddCommand(holesCmd)
}
