package main

import "github.com/spf13/cobra"

var uncheckedFlags struct {
	initBase bool
}

var uncheckedCmd = &cobra.Command{
	Use:   "unchecked",
	Short: "Ratchet pattern-counted type-safety escapes down",
	Long: "Counts configured escape-hatch patterns (//nolint, interface{},\n" +
		"unsafe.Pointer, reflection) per category across the tree. The total may\n" +
		"only fall; the per-category breakdown is reported for context.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		env := p.env()
		env.Init = uncheckedFlags.initBase
		return runOne(cmd, "unchecked", env)
	},
}

func init() {
	uncheckedCmd.Flags().BoolVar(&uncheckedFlags.initBase, "init", false, "Adopt the current counts as the baseline")
	rootCmd.AddCommand(uncheckedCmd)
}
