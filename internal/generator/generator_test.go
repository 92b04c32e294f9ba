package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/daybreak/internal/calendar"
	"github.com/seenimoa/daybreak/internal/config"
	"github.com/seenimoa/daybreak/internal/mailer"
	"github.com/seenimoa/daybreak/internal/marketdata"
	"github.com/seenimoa/daybreak/internal/report"
)

// ════════════════════════════════════════════════════════════════════
// Fakes
// ════════════════════════════════════════════════════════════════════

type seriesSource struct {
	closes map[string][2]string // symbol -> {latest, prior}
	calls  int
}

func (s *seriesSource) Name() string { return "fake" }

func (s *seriesSource) QueryDailySeries(_ context.Context, symbol string) ([]byte, error) {
	s.calls++
	c, ok := s.closes[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: unknown symbol", marketdata.ErrProvider)
	}
	return []byte(fmt.Sprintf(`{"Time Series (Daily)": {
		"2025-07-03": {"4. close": %q},
		"2025-07-02": {"4. close": %q}
	}}`, c[0], c[1])), nil
}

type fakePDF struct{ err error }

func (f fakePDF) Render(context.Context, report.Data) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.3 fake"), nil
}

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

type fakeCompleter struct{ err error }

func (fakeCompleter) Name() string { return "fake" }

func (f fakeCompleter) Complete(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "MORNING_BRIEF:\nStocks edged higher before the holiday.\n\nPOSITIONING_TIPS:\n| Signal | Action | Rationale |\n|---|---|---|\n| Trend | Hold SPY | Steady gains |", nil
}

// Monday after the July 4th weekend, 07:00 ET.
var monday = time.Date(2025, 7, 7, 7, 0, 0, 0, calendar.Eastern)

func newTestGenerator(t *testing.T, src *seriesSource) (*Generator, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	fetcher := marketdata.NewFetcher(src, marketdata.NewMemoryStore(),
		marketdata.WithPacer(marketdata.NewPacer(0)))
	return &Generator{
		Calendar:  calendar.New(),
		Fetcher:   fetcher,
		Indices:   config.DefaultIndices()[:3],
		Completer: fakeCompleter{},
		PDF:       fakePDF{},
		Mailer:    sender,
		OutputDir: t.TempDir(),
		Title:     "Daybreak Edition",
	}, sender
}

func healthySource() *seriesSource {
	return &seriesSource{closes: map[string][2]string{
		"SPY": {"110.00", "100.00"},
		"QQQ": {"500.00", "505.00"},
		"DIA": {"440.00", "440.00"},
	}}
}

// ════════════════════════════════════════════════════════════════════
// Tests
// ════════════════════════════════════════════════════════════════════

func TestRunWritesReportAndEmails(t *testing.T) {
	g, sender := newTestGenerator(t, healthySource())

	res, err := g.Run(context.Background(), Options{Now: monday})
	require.NoError(t, err)

	assert.Equal(t, "2025-07-03", res.TradingDay.String())
	assert.Equal(t, "2025-07-07", res.RunDate.String())
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 3, res.Batch.Succeeded())

	assert.Equal(t, filepath.Join(g.OutputDir, "daybreak_2025-07-07.md"), res.MarkdownPath)
	md, err := os.ReadFile(res.MarkdownPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "Closing data for 2025-07-03")
	assert.Contains(t, string(md), "| SPY | $110.00 | +10.00 | +10.00% | ▲ |")
	assert.Contains(t, string(md), "Stocks edged higher before the holiday.")

	assert.FileExists(t, filepath.Join(g.OutputDir, "daybreak_2025-07-07.pdf"))

	require.True(t, res.Emailed)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "Daybreak Edition — Monday, July 7, 2025", msg.Subject)
	assert.Contains(t, msg.HTML, "<h1>Daybreak Edition</h1>")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "daybreak_2025-07-07.pdf", msg.Attachments[0].Filename)
}

func TestRunPartialFailure(t *testing.T) {
	src := healthySource()
	delete(src.closes, "QQQ")
	g, _ := newTestGenerator(t, src)

	res, err := g.Run(context.Background(), Options{Now: monday, SkipEmail: true})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Batch.Succeeded())
	assert.Equal(t, 1, res.Batch.Failed())
	assert.Contains(t, res.Markdown, "| QQQ | N/A | N/A | N/A |  |")
	assert.Contains(t, res.Markdown, "*Data unavailable for: QQQ.*")
	assert.False(t, res.Emailed)
}

func TestRunTwiceUsesCache(t *testing.T) {
	src := healthySource()
	g, _ := newTestGenerator(t, src)

	_, err := g.Run(context.Background(), Options{Now: monday, Preview: true, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)

	_, err = g.Run(context.Background(), Options{Now: monday, Preview: true, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
}

func TestRunPreview(t *testing.T) {
	g, sender := newTestGenerator(t, healthySource())
	var out bytes.Buffer

	res, err := g.Run(context.Background(), Options{Now: monday, Preview: true, Out: &out})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.String(), "# Daybreak Edition"))
	assert.Empty(t, res.MarkdownPath)
	assert.Empty(t, sender.sent)
	entries, err := os.ReadDir(g.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunAtAndAsOf(t *testing.T) {
	g, _ := newTestGenerator(t, healthySource())

	// A 17:00 run on Thursday reports Thursday's closes.
	thursday := time.Date(2025, 7, 3, 9, 0, 0, 0, calendar.Eastern)
	res, err := g.Run(context.Background(), Options{Now: thursday, RunAt: "17:00", Preview: true, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, "2025-07-03", res.TradingDay.String())
	assert.Contains(t, res.Markdown, "Generated 05:00 PM ET")
	assert.Contains(t, res.Markdown, "Simulated run at 05:00 PM ET.")

	// The holiday resolves to the session before it.
	res, err = g.Run(context.Background(), Options{Now: monday, AsOf: "2025-07-04", Preview: true, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, "2025-07-03", res.TradingDay.String())

	_, err = g.Run(context.Background(), Options{Now: monday, RunAt: "7am"})
	assert.ErrorContains(t, err, "--run-at")
	_, err = g.Run(context.Background(), Options{Now: monday, AsOf: "07/03/2025"})
	assert.ErrorContains(t, err, "--as-of")
}

func TestRunDateResolutionErrorIsFatal(t *testing.T) {
	src := healthySource()
	g, sender := newTestGenerator(t, src)
	g.Calendar = calendar.New(calendar.WithMaxLookback(1))

	sunday := time.Date(2025, 7, 6, 7, 0, 0, 0, calendar.Eastern)
	_, err := g.Run(context.Background(), Options{Now: sunday})

	var dre *calendar.DateResolutionError
	require.ErrorAs(t, err, &dre)
	assert.Zero(t, src.calls)
	assert.Empty(t, sender.sent)
}

func TestRunDegradesGracefully(t *testing.T) {
	g, sender := newTestGenerator(t, healthySource())
	g.Completer = fakeCompleter{err: errors.New("overloaded")}
	g.PDF = fakePDF{err: errors.New("no fonts")}
	sender.err = errors.New("smtp down")

	res, err := g.Run(context.Background(), Options{Now: monday})
	require.NoError(t, err)

	assert.True(t, res.Narrative.Placeholder)
	assert.FileExists(t, res.MarkdownPath)
	assert.Empty(t, res.PDFPath)
	assert.False(t, res.Emailed)
	require.Len(t, sender.sent, 1)
	assert.Empty(t, sender.sent[0].Attachments)
}

func TestRunWithPDFDisabled(t *testing.T) {
	g, _ := newTestGenerator(t, healthySource())
	g.PDF = report.NewPDFRenderer(report.EngineNone, nil)
	g.Mailer = nil

	res, err := g.Run(context.Background(), Options{Now: monday})
	require.NoError(t, err)
	assert.Empty(t, res.PDFPath)
	assert.NoFileExists(t, filepath.Join(g.OutputDir, "daybreak_2025-07-07.pdf"))
}

func TestLLMConfigPicksProviderKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Provider = "gemini"
	cfg.LLM.AnthropicKey = "a-key"
	cfg.LLM.GeminiKey = "g-key"
	assert.Equal(t, "g-key", LLMConfig(cfg).APIKey)

	cfg.LLM.Provider = "anthropic"
	assert.Equal(t, "a-key", LLMConfig(cfg).APIKey)
}
