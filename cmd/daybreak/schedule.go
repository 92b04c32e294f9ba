package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/daybreak/internal/common"
	"github.com/seenimoa/daybreak/internal/generator"
	"github.com/seenimoa/daybreak/internal/scheduler"
)

// --- Schedule Command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the report on the configured cron schedule",
	Long: `Run in the foreground and generate the report on schedule.cron
(six fields, seconds first) in schedule.timezone. Triggers on weekends and
market holidays are skipped. Stop with Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		common.PrintBanner(version)

		loc, err := time.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			return err
		}
		cal, err := cfg.NewCalendar()
		if err != nil {
			return err
		}

		g, store, err := generator.FromConfig(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		s, err := scheduler.New(cfg.Schedule.Cron, loc, cal, func(ctx context.Context, now time.Time) error {
			_, err := g.Run(ctx, generator.Options{Now: now})
			return err
		}, logger)
		if err != nil {
			return err
		}
		return s.Run(ctx)
	},
}
