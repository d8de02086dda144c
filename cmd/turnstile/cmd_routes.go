package main

import "github.com/spf13/cobra"

var routesFlags struct {
	update bool
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Ratchet HTTP routes that have no matching test",
	Long: "Collects route registrations (mux handlers, router method calls) and\n" +
		"looks for a test referencing each path. The untested-route count\n" +
		"ratchets downward against the baseline.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		env := p.env()
		env.Update = routesFlags.update
		return runOne(cmd, "routes", env)
	},
}

func init() {
	routesCmd.Flags().BoolVar(&routesFlags.update, "update-baseline", false, "Adopt the current untested-route count as the new baseline")
	rootCmd.AddCommand(routesCmd)
}
