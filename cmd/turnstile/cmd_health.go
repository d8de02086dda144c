package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"turnstile/internal/baseline"
	"turnstile/internal/format"
	"turnstile/internal/health"
	"turnstile/internal/logging"
	"turnstile/internal/scan"
	"turnstile/internal/store"
	"turnstile/internal/verdict"
)

var healthFlags struct {
	out string
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Collect and report aggregate code-health metrics",
	Long: "Tracks repository-wide metrics (file count, LOC, any usage, nolint\n" +
		"directives, test/source ratio) over time. Unlike the checks, health\n" +
		"does not ratchet: collect snapshots the tree, report applies fixed\n" +
		"thresholds.",
}

var healthCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Snapshot the current tree and append it to the history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		s, err := health.Collect(cmd.Context(), scan.Target{
			Root:    p.Root,
			Include: p.Cfg.Include,
			Exclude: p.Cfg.Exclude,
		})
		if err != nil {
			return err
		}
		dir := healthDir(p)
		if err := baseline.Write(dir, health.CurrentFile, s); err != nil {
			return err
		}
		if db := p.openStore(); db != nil {
			defer db.Close()
			payload, err := json.Marshal(s)
			if err == nil {
				err = db.AppendMetrics(store.MetricsRun{
					RunID:   s.RunID,
					TakenAt: s.TakenAt,
					Payload: payload,
				}, p.Cfg.Checks.Health.History)
			}
			if err != nil {
				logging.New("health").Warn("metrics history not updated", "error", err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "health: snapshot %s written to %s\n", s.RunID, dir)
		return nil
	},
}

var healthReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the latest snapshot against the thresholds",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		dir := healthDir(p)
		s, err := baseline.Read[health.Snapshot](dir, health.CurrentFile)
		if err != nil {
			return err
		}
		if s == nil {
			return verdict.Operational(
				fmt.Errorf("no health snapshot in %s", dir),
				"run `turnstile health collect` first",
			)
		}
		mode, err := outputMode()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), health.Table(s, mode))
		if path := os.Getenv("GITHUB_STEP_SUMMARY"); path != "" {
			if err := appendStepSummary(path, s); err != nil {
				logging.New("health").Warn("step summary not written", "error", err)
			}
		}
		rep := health.Evaluate(s)
		fmt.Fprintln(cmd.OutOrStdout(), rep.Summary())
		return rep.Err()
	},
}

// healthDir resolves the metrics directory against the project root, with
// --out taking precedence over the configured dir.
func healthDir(p *project) string {
	dir := p.Cfg.Checks.Health.Dir
	if healthFlags.out != "" {
		dir = healthFlags.out
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(p.Root, dir)
	}
	return dir
}

// appendStepSummary appends the markdown metric table to the CI job summary
// file GitHub Actions exposes via GITHUB_STEP_SUMMARY.
func appendStepSummary(path string, s *health.Snapshot) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "## Code Health\n\n%s\n", health.Table(s, format.Markdown)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	healthCollectCmd.Flags().StringVar(&healthFlags.out, "out", "", "Metrics directory (defaults to the configured health.dir)")
	healthCmd.AddCommand(healthCollectCmd)
	healthCmd.AddCommand(healthReportCmd)
	rootCmd.AddCommand(healthCmd)
}
