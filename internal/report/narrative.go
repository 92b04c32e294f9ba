package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/seenimoa/daybreak/internal/calendar"
	"github.com/seenimoa/daybreak/internal/common"
)

// Section markers the model is asked to emit.
const (
	briefMarker = "MORNING_BRIEF:"
	tipsMarker  = "POSITIONING_TIPS:"
)

// Narrative is the AI-written part of the report.
type Narrative struct {
	MorningBrief    string
	PositioningTips string // Markdown table
	Placeholder     bool
}

// Completer is the text generation capability the narrative needs.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

const unavailableTipsTable = "| Signal | Action | Rationale |\n" +
	"|--------|--------|-----------|\n" +
	"| *Data unavailable* | — | — |"

// PlaceholderNarrative is used when the provider fails or is disabled.
func PlaceholderNarrative(reason string) Narrative {
	if reason == "" {
		reason = "narrative service unavailable"
	}
	return Narrative{
		MorningBrief: "*Markets closed the prior session. Full narrative unavailable — " + reason + ".*",
		PositioningTips: "| Signal | Action | Rationale |\n" +
			"|--------|--------|-----------|\n" +
			"| *Unavailable* | — | " + reason + " |",
		Placeholder: true,
	}
}

// BuildPrompt asks for a brief and a tips table grounded on the rows.
func BuildPrompt(tradeDate calendar.TradingDay, rows []Row) string {
	var lines strings.Builder
	for _, r := range rows {
		pct := NotAvailable
		closeText := NotAvailable
		if r.Available {
			pct = FormatPercent(r.PercentChange)
			closeText = FormatClose(r.Close)
		}
		fmt.Fprintf(&lines, "  - %s (%s, %s): %s (%s)\n", r.Name, r.Symbol, r.Group, closeText, pct)
	}

	return fmt.Sprintf(`You are a concise financial analyst writing a pre-market briefing for serious US traders.

Market closes for %s:
%s
Write two sections:

%s
A 3-4 sentence narrative summary of the session. Mention the major moves, any notable divergences between US/Europe/Asia, and set the tone for today. Be factual and professional. Do not use bullet points.

%s
A markdown table with exactly this header and 3-5 data rows:
| Signal | Action | Rationale |
|--------|--------|-----------|
Use real ETF tickers (SPY, QQQ, DIA, EWG, EWJ, GLD, TLT, etc.). Keep each cell concise (under 12 words). Base tips on the actual market data provided. Ignore indices marked N/A.

Output ONLY the two sections above with their labels. No preamble or extra commentary.`,
		tradeDate, lines.String(), briefMarker, tipsMarker)
}

// ParseNarrative splits a model response into its two sections. Without the
// tips marker the whole text is the brief and the tips table says so.
func ParseNarrative(raw string) Narrative {
	raw = strings.TrimSpace(raw)
	if brief, tips, ok := strings.Cut(raw, tipsMarker); ok {
		return Narrative{
			MorningBrief:    strings.TrimSpace(strings.Replace(brief, briefMarker, "", 1)),
			PositioningTips: strings.TrimSpace(tips),
		}
	}
	return Narrative{
		MorningBrief:    strings.TrimSpace(strings.Replace(raw, briefMarker, "", 1)),
		PositioningTips: unavailableTipsTable,
	}
}

// GenerateNarrative asks c for the narrative. Any failure yields the
// placeholder together with the error so the caller can log it.
func GenerateNarrative(ctx context.Context, c Completer, tradeDate calendar.TradingDay, rows []Row, logger arbor.ILogger) (Narrative, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if c == nil {
		return PlaceholderNarrative("narrative generation disabled"), nil
	}

	logger.Info().Str("provider", c.Name()).Msg("Generating narrative")
	text, err := c.Complete(ctx, BuildPrompt(tradeDate, rows))
	if err != nil {
		return PlaceholderNarrative(c.Name() + " API error"), fmt.Errorf("narrative: %w", err)
	}
	n := ParseNarrative(text)
	if n.MorningBrief == "" {
		return PlaceholderNarrative(c.Name() + " returned no brief"), fmt.Errorf("narrative: empty morning brief")
	}
	return n, nil
}
