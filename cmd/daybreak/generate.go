package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/daybreak/internal/generator"
)

// --- Generate Command ---

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate today's report",
	Long: `Generate the report for the most recent closed trading session.

Examples:
  daybreak generate
  daybreak generate --preview
  daybreak generate --run-at 06:30 --no-email
  daybreak generate --as-of 2025-07-03`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runAt, _ := cmd.Flags().GetString("run-at")
		asOf, _ := cmd.Flags().GetString("as-of")
		preview, _ := cmd.Flags().GetBool("preview")
		noEmail, _ := cmd.Flags().GetBool("no-email")

		res, err := runGenerate(ctx, generator.Options{
			RunAt:     runAt,
			AsOf:      asOf,
			Preview:   preview,
			SkipEmail: noEmail,
			Out:       cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}
		if preview {
			return nil
		}

		fmt.Fprintf(os.Stderr, "📈 Closes for %s: %d ok, %d failed\n",
			res.TradingDay, res.Batch.Succeeded(), res.Batch.Failed())
		for sym, ferr := range res.Batch.Errors() {
			fmt.Fprintf(os.Stderr, "   ⚠️  %s: %v\n", sym, ferr)
		}
		fmt.Fprintf(os.Stderr, "📝 %s\n", res.MarkdownPath)
		if res.PDFPath != "" {
			fmt.Fprintf(os.Stderr, "📄 %s\n", res.PDFPath)
		}
		if res.Emailed {
			fmt.Fprintf(os.Stderr, "✉️  emailed to %d recipient(s)\n", len(cfg.Email.To))
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().String("run-at", "", "simulate the run time of day (HH:MM, market time)")
	generateCmd.Flags().String("as-of", "", "report the closes of this date or the session before it (YYYY-MM-DD)")
	generateCmd.Flags().Bool("preview", false, "print the Markdown report to stdout, write no files")
	generateCmd.Flags().Bool("no-email", false, "skip email delivery")
}

func runGenerate(ctx context.Context, opts generator.Options) (*generator.Result, error) {
	g, store, err := generator.FromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return g.Run(ctx, opts)
}
