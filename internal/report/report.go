// Package report renders the Daybreak report: Markdown for the archive,
// HTML for email and PDF for distribution.
package report

import (
	"strings"
	"time"

	"github.com/seenimoa/daybreak/internal/calendar"
	"github.com/seenimoa/daybreak/internal/marketdata"
)

// ════════════════════════════════════════════════════════════════════
// Report Data: Flattened for template rendering
// ════════════════════════════════════════════════════════════════════

// ReportFormat specifies an output format.
type ReportFormat string

const (
	FormatMarkdown ReportFormat = "md"
	FormatPDF      ReportFormat = "pdf"
	FormatHTML     ReportFormat = "html"
)

// Date layouts used in the report header.
const (
	ReportDateLayout  = "Monday, January 2, 2006"
	GeneratedAtLayout = "03:04 PM"
)

// Row is one index line of the market table.
type Row struct {
	Symbol    string
	Name      string
	Group     marketdata.Group
	Available bool

	Close         float64
	Change        float64
	PercentChange float64
	AsOf          calendar.TradingDay

	CloseText   string
	ChangeText  string
	PercentText string
	Arrow       string
}

// GroupRows is the table section for one region.
type GroupRows struct {
	Group marketdata.Group
	Rows  []Row
}

// Data is the template model for every output format.
type Data struct {
	Title       string
	ReportDate  string // "Monday, July 7, 2025"
	TradeDate   calendar.TradingDay
	GeneratedAt string // "07:00 AM" or the simulated run time
	RunAt       string // set when the run time was simulated
	Rows        []Row
	Narrative   Narrative
}

// NewData fills the header fields from the run time (already in market time).
func NewData(title string, now time.Time, tradeDate calendar.TradingDay, runAt string, rows []Row, n Narrative) Data {
	generated := now.Format(GeneratedAtLayout)
	if runAt != "" {
		generated = runAt
	}
	return Data{
		Title:       title,
		ReportDate:  now.Format(ReportDateLayout),
		TradeDate:   tradeDate,
		GeneratedAt: generated,
		RunAt:       runAt,
		Rows:        rows,
		Narrative:   n,
	}
}

// BuildRows joins the configured indices with the batch outcome, keeping
// configuration order. Failed symbols get N/A cells.
func BuildRows(indices []marketdata.IndexSymbol, batch *marketdata.Batch) []Row {
	rows := make([]Row, 0, len(indices))
	for _, idx := range indices {
		row := Row{Symbol: idx.Symbol, Name: idx.Name, Group: idx.Group}

		var res marketdata.Result
		var ok bool
		if batch != nil {
			res, ok = batch.Get(idx.Symbol)
		}
		if ok && res.OK() {
			rec := res.Record
			row.Available = true
			row.Close = rec.Close
			row.Change = rec.Change
			row.PercentChange = rec.PercentChange
			row.AsOf = rec.AsOf
			row.CloseText = FormatClose(rec.Close)
			row.ChangeText = FormatChange(rec.Change)
			row.PercentText = FormatPercent(rec.PercentChange)
			row.Arrow = Arrow(rec.Change)
		} else {
			row.CloseText = NotAvailable
			row.ChangeText = NotAvailable
			row.PercentText = NotAvailable
		}
		rows = append(rows, row)
	}
	return rows
}

// Groups splits rows by region in report order, dropping empty regions.
func (d Data) Groups() []GroupRows {
	var out []GroupRows
	for _, g := range marketdata.Groups() {
		var rows []Row
		for _, r := range d.Rows {
			if r.Group == g {
				rows = append(rows, r)
			}
		}
		if len(rows) > 0 {
			out = append(out, GroupRows{Group: g, Rows: rows})
		}
	}
	return out
}

// Unavailable returns the symbols without data.
func (d Data) Unavailable() []string {
	var out []string
	for _, r := range d.Rows {
		if !r.Available {
			out = append(out, r.Symbol)
		}
	}
	return out
}

// BriefParagraphs splits the morning brief on blank lines.
func (d Data) BriefParagraphs() []string {
	var out []string
	for _, p := range strings.Split(d.Narrative.MorningBrief, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FileName returns the output file name for the run date, e.g. daybreak_2025-07-07.md.
func FileName(runDate calendar.TradingDay, format ReportFormat) string {
	return "daybreak_" + runDate.String() + "." + string(format)
}
