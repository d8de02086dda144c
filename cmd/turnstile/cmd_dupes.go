package main

import "github.com/spf13/cobra"

var dupesFlags struct {
	window      int
	maxClones   int
	changedOnly bool
}

var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "Detect copy-pasted blocks with a sliding line window",
	Long: "Hashes normalized sliding windows of source lines and reports blocks that\n" +
		"appear in more than one place. More duplicate groups than --max-clones\n" +
		"blocks the run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		dc := &p.Cfg.Checks.Dupes
		if cmd.Flags().Changed("window") {
			dc.WindowLines = dupesFlags.window
		}
		if cmd.Flags().Changed("max-clones") {
			dc.MaxClones = dupesFlags.maxClones
		}
		env := p.env()
		if dupesFlags.changedOnly {
			env.Changed = p.changedFiles(cmd, "", false)
		}
		return runOne(cmd, "dupes", env)
	},
}

func init() {
	f := dupesCmd.Flags()
	f.IntVar(&dupesFlags.window, "window", 7, "Sliding window size in normalized lines")
	f.IntVar(&dupesFlags.maxClones, "max-clones", 0, "Duplicate groups tolerated before blocking")
	f.BoolVar(&dupesFlags.changedOnly, "changed-only", false, "Report only clones touching files changed since the diff base")
	rootCmd.AddCommand(dupesCmd)
}
