// Package generator runs one end-to-end report: resolve the trading day,
// fetch closes, write the narrative, render, save and mail.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/seenimoa/daybreak/internal/calendar"
	"github.com/seenimoa/daybreak/internal/common"
	"github.com/seenimoa/daybreak/internal/mailer"
	"github.com/seenimoa/daybreak/internal/marketdata"
	"github.com/seenimoa/daybreak/internal/report"
)

// BatchFetcher fetches closes for many symbols on one trading day.
type BatchFetcher interface {
	FetchMany(ctx context.Context, symbols []string, day calendar.TradingDay) *marketdata.Batch
}

// PDFRenderer renders report data to PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, d report.Data) ([]byte, error)
}

// Sender delivers a report email.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Generator produces the daily report.
type Generator struct {
	Calendar  *calendar.Calendar
	Fetcher   BatchFetcher
	Indices   []marketdata.IndexSymbol
	Completer report.Completer // nil disables the narrative
	PDF       PDFRenderer      // nil disables PDF output
	Mailer    Sender           // nil disables email
	OutputDir string
	Title     string
	Logger    arbor.ILogger
	Clock     func() time.Time
}

// Options controls a single run.
type Options struct {
	Now       time.Time // reference time; zero means the clock
	RunAt     string    // "HH:MM" in market time, simulates the run time today
	AsOf      string    // "YYYY-MM-DD", report closes for this date (or the session before it)
	Preview   bool      // write Markdown to Out, no files or email
	SkipEmail bool
	Out       io.Writer
}

// Result summarizes a run.
type Result struct {
	RunID        string
	TradingDay   calendar.TradingDay
	RunDate      calendar.TradingDay
	Batch        *marketdata.Batch
	Narrative    report.Narrative
	Markdown     string
	MarkdownPath string
	PDFPath      string
	Emailed      bool
}

// Run generates one report. A date resolution failure is fatal; per-symbol
// fetch failures, narrative, PDF and email failures are logged and the run continues.
func (g *Generator) Run(ctx context.Context, opts Options) (*Result, error) {
	logger, runID := common.WithRunID(g.logger())
	cal := g.Calendar
	if cal == nil {
		cal = calendar.New()
	}

	now, err := g.referenceTime(cal, opts)
	if err != nil {
		return nil, err
	}

	tradeDay, err := g.resolve(cal, now, opts.AsOf)
	if err != nil {
		return nil, err
	}
	res := &Result{RunID: runID, TradingDay: tradeDay, RunDate: cal.Today(now)}

	logger.Info().
		Str("trading_day", tradeDay.String()).
		Str("run_date", res.RunDate.String()).
		Int("symbols", len(g.Indices)).
		Msg("Generating report")

	symbols := make([]string, 0, len(g.Indices))
	for _, idx := range g.Indices {
		symbols = append(symbols, idx.Symbol)
	}
	res.Batch = g.Fetcher.FetchMany(ctx, symbols, tradeDay)
	if res.Batch.Succeeded() == 0 && len(symbols) > 0 {
		logger.Warn().Msg("No market data available, report will show N/A for every index")
	}

	rows := report.BuildRows(g.Indices, res.Batch)

	narrative, err := report.GenerateNarrative(ctx, g.Completer, tradeDay, rows, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Narrative generation failed, using placeholder")
	}
	res.Narrative = narrative

	title := g.Title
	if title == "" {
		title = "Daybreak Edition"
	}
	data := report.NewData(title, now, tradeDay, normalizeRunAt(opts.RunAt), rows, narrative)

	md, err := report.RenderMarkdown(data)
	if err != nil {
		return res, err
	}
	res.Markdown = md

	if opts.Preview {
		out := opts.Out
		if out == nil {
			out = os.Stdout
		}
		_, err := io.WriteString(out, md)
		return res, err
	}

	if err := os.MkdirAll(g.OutputDir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}
	res.MarkdownPath = filepath.Join(g.OutputDir, report.FileName(res.RunDate, report.FormatMarkdown))
	if err := os.WriteFile(res.MarkdownPath, []byte(md), 0o644); err != nil {
		return res, fmt.Errorf("write markdown: %w", err)
	}
	logger.Info().Str("path", res.MarkdownPath).Msg("Markdown report written")

	var pdf []byte
	if g.PDF != nil {
		pdf, err = g.PDF.Render(ctx, data)
		switch {
		case errors.Is(err, report.ErrPDFDisabled):
			pdf = nil
		case err != nil:
			logger.Warn().Err(err).Msg("PDF generation failed, Markdown report kept")
			pdf = nil
		default:
			res.PDFPath = filepath.Join(g.OutputDir, report.FileName(res.RunDate, report.FormatPDF))
			if err := os.WriteFile(res.PDFPath, pdf, 0o644); err != nil {
				logger.Warn().Err(err).Msg("Failed to write PDF report")
				res.PDFPath = ""
			} else {
				logger.Info().Str("path", res.PDFPath).Msg("PDF report written")
			}
		}
	}

	if g.Mailer != nil && !opts.SkipEmail {
		if err := g.email(ctx, data, res.RunDate, pdf, now); err != nil {
			logger.Error().Err(err).Msg("Failed to send report email")
		} else {
			res.Emailed = true
		}
	}

	logger.Info().
		Int("ok", res.Batch.Succeeded()).
		Int("failed", res.Batch.Failed()).
		Bool("placeholder_narrative", narrative.Placeholder).
		Msg("Report complete")
	return res, nil
}

func (g *Generator) email(ctx context.Context, data report.Data, runDate calendar.TradingDay, pdf []byte, now time.Time) error {
	html, err := report.RenderHTML(data)
	if err != nil {
		return err
	}
	msg := mailer.Message{
		Subject: mailer.Subject(data.ReportDate),
		HTML:    html,
		Date:    now,
	}
	if len(pdf) > 0 {
		msg.Attachments = append(msg.Attachments, mailer.Attachment{
			Filename:    report.FileName(runDate, report.FormatPDF),
			ContentType: "application/pdf",
			Content:     pdf,
		})
	}
	return g.Mailer.Send(ctx, msg)
}

func (g *Generator) logger() arbor.ILogger {
	if g.Logger == nil {
		return common.NewSilentLogger()
	}
	return g.Logger
}

// referenceTime returns the run time in market time, applying --run-at.
func (g *Generator) referenceTime(cal *calendar.Calendar, opts Options) (time.Time, error) {
	now := opts.Now
	if now.IsZero() {
		if g.Clock != nil {
			now = g.Clock()
		} else {
			now = time.Now()
		}
	}
	now = now.In(cal.Location())

	if opts.RunAt == "" {
		return now, nil
	}
	hm, err := time.Parse("15:04", opts.RunAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --run-at %q: want HH:MM", opts.RunAt)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), hm.Hour(), hm.Minute(), 0, 0, cal.Location()), nil
}

// resolve picks the trading day. An explicit as-of date resolves as if the
// report ran after that day's close.
func (g *Generator) resolve(cal *calendar.Calendar, now time.Time, asOf string) (calendar.TradingDay, error) {
	if asOf == "" {
		return cal.Resolve(now)
	}
	day, err := calendar.ParseTradingDay(asOf)
	if err != nil {
		return calendar.TradingDay{}, fmt.Errorf("invalid --as-of %q: %w", asOf, err)
	}
	return cal.Resolve(cal.MarketClose(day))
}

// normalizeRunAt renders "HH:MM" as "03:04 PM" for the report header.
func normalizeRunAt(runAt string) string {
	if runAt == "" {
		return ""
	}
	t, err := time.Parse("15:04", runAt)
	if err != nil {
		return runAt
	}
	return t.Format(report.GeneratedAtLayout)
}
