package main

import "github.com/spf13/cobra"

var srpFlags struct {
	exemptions string
}

var srpCmd = &cobra.Command{
	Use:   "srp",
	Short: "Hard-gate oversized files and functions, with expiring exemptions",
	Long: "Enforces the single-responsibility size limits as a hard gate. Files\n" +
		"listed in the exemptions file are shielded until their expiry date;\n" +
		"expired entries surface as warnings and stop shielding.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("exemptions") {
			p.Cfg.Checks.SRP.ExemptionsFile = srpFlags.exemptions
		}
		return runOne(cmd, "srp", p.env())
	},
}

func init() {
	srpCmd.Flags().StringVar(&srpFlags.exemptions, "exemptions", "", "Exemptions file (default .turnstile/srp-exemptions.json)")
	rootCmd.AddCommand(srpCmd)
}
