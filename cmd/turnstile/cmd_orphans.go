package main

import "github.com/spf13/cobra"

var orphansFlags struct {
	initBase bool
}

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Ratchet unreferenced packages and dead exports down",
	Long: "Builds the module's import graph and flags packages nothing imports\n" +
		"plus exported identifiers never referenced outside their package. Main\n" +
		"packages, the module root, and configured globs are exempt.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		env := p.env()
		env.Init = orphansFlags.initBase
		return runOne(cmd, "orphans", env)
	},
}

func init() {
	orphansCmd.Flags().BoolVar(&orphansFlags.initBase, "init", false, "Adopt the current counts as the baseline")
	rootCmd.AddCommand(orphansCmd)
}
