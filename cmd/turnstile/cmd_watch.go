package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"turnstile/internal/logging"
	"turnstile/internal/watch"
	"turnstile/internal/wiring"
)

var watchFlags struct {
	debounce int
	only     []string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the fast checks whenever source files change",
	Long: "Watches the tree and re-runs the configured watch checks after each\n" +
		"burst of .go file changes. Violations print but never exit; stop with\n" +
		"Ctrl-C.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		names := p.Cfg.Checks.Watch.Checks
		if len(watchFlags.only) > 0 {
			names = watchFlags.only
		}
		if _, err := selectChecks(names, nil); err != nil {
			return err
		}
		debounce := time.Duration(p.Cfg.Checks.Watch.DebounceMillis) * time.Millisecond
		if cmd.Flags().Changed("debounce") {
			debounce = time.Duration(watchFlags.debounce) * time.Millisecond
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "watching %s (%v)\n", p.Root, names)
		return watch.Run(ctx, watch.Options{
			Root:     p.Root,
			Debounce: debounce,
			Logger:   logging.New("watch"),
			OnChange: func(ctx context.Context) {
				outcomes, err := wiring.RunChecks(ctx, p.env(), names, 0)
				if err != nil {
					fmt.Fprintln(out, err)
					return
				}
				if err := renderOutcomes(cmd, outcomes); err != nil {
					fmt.Fprintln(out, err)
				}
			},
		})
	},
}

func init() {
	f := watchCmd.Flags()
	f.IntVar(&watchFlags.debounce, "debounce", 500, "Quiet period in milliseconds before re-running")
	f.StringSliceVar(&watchFlags.only, "only", nil, "Checks to run instead of the configured watch set")
	rootCmd.AddCommand(watchCmd)
}
