package main

import "github.com/spf13/cobra"

var pairingFlags struct {
	update bool
}

var pairingCmd = &cobra.Command{
	Use:   "pairing",
	Short: "Ratchet I/O adapters that ship without a test file",
	Long: "Finds source files that look like I/O adapters, by filename suffix or by\n" +
		"importing I/O packages, and checks each has a sibling _test.go. The\n" +
		"unpaired count ratchets downward against the baseline.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		env := p.env()
		env.Update = pairingFlags.update
		return runOne(cmd, "pairing", env)
	},
}

func init() {
	pairingCmd.Flags().BoolVar(&pairingFlags.update, "update-baseline", false, "Adopt the current unpaired count as the new baseline")
	rootCmd.AddCommand(pairingCmd)
}
