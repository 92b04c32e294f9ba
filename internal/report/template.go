package report

// MarkdownTemplate is the archived report. Templates are Go constants so the
// binary has no file dependencies.
const MarkdownTemplate = `# {{.Title}}

**{{.ReportDate}}** | Closing data for {{.TradeDate}} | Generated {{.GeneratedAt}} ET
{{- if .RunAt}}

> Simulated run at {{.RunAt}} ET.
{{- end}}

---

## Global Markets
{{range .Groups}}
### {{.Group}}

| Index | Symbol | Close | Change | % Change | |
|-------|--------|------:|-------:|---------:|:-:|
{{- range .Rows}}
| {{.Name}} | {{.Symbol}} | {{.CloseText}} | {{.ChangeText}} | {{.PercentText}} | {{.Arrow}} |
{{- end}}
{{end}}
{{- with .Unavailable}}
*Data unavailable for: {{join . ", "}}.*
{{end}}
## Morning Brief

{{.Narrative.MorningBrief}}

## Positioning Tips

{{.Narrative.PositioningTips}}

---

*Prices: Alpha Vantage daily closes of ETF proxies. Narrative is AI-generated and is not investment advice.*
`

// HTMLTemplate is the email body and the page printed by the chromium PDF
// engine. Styles are inline-friendly for mail clients.
const HTMLTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}} — {{.ReportDate}}</title>
<style>
  body { font-family: -apple-system, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: #1a1a2e; background: #ffffff; max-width: 760px; margin: 0 auto; padding: 20px; line-height: 1.5; }
  .masthead { border-bottom: 3px solid #f59e0b; padding-bottom: 10px; margin-bottom: 16px; }
  .masthead h1 { margin: 0; font-size: 26px; color: #0f172a; }
  .masthead .meta { color: #6b7280; font-size: 13px; margin-top: 4px; }
  .notice { background: #fef3c7; border-left: 4px solid #f59e0b; padding: 6px 10px; font-size: 13px; margin: 10px 0; }
  h2 { font-size: 18px; border-bottom: 2px solid #e5e7eb; padding-bottom: 4px; margin-top: 24px; }
  h3 { font-size: 14px; color: #374151; margin: 14px 0 6px; text-transform: uppercase; letter-spacing: 0.05em; }
  table { width: 100%; border-collapse: collapse; font-size: 13px; }
  th, td { padding: 6px 8px; border-bottom: 1px solid #e5e7eb; text-align: left; }
  th { background: #f8fafc; font-weight: 600; }
  td.num { text-align: right; font-variant-numeric: tabular-nums; }
  .up { color: #16a34a; }
  .down { color: #dc2626; }
  .na { color: #9ca3af; }
  .brief p { margin: 8px 0; }
  .footer { color: #9ca3af; font-size: 11px; margin-top: 28px; border-top: 1px solid #e5e7eb; padding-top: 8px; }
</style>
</head>
<body>
<div class="masthead">
  <h1>{{.Title}}</h1>
  <div class="meta">{{.ReportDate}} &middot; Closing data for {{.TradeDate}} &middot; Generated {{.GeneratedAt}} ET</div>
</div>
{{- if .RunAt}}
<div class="notice">Simulated run at {{.RunAt}} ET.</div>
{{- end}}

<h2>Global Markets</h2>
{{- range .Groups}}
<h3>{{.Group}}</h3>
<table>
  <tr><th>Index</th><th>Symbol</th><th>Close</th><th>Change</th><th>% Change</th><th></th></tr>
  {{- range .Rows}}
  {{- if .Available}}
  <tr class="{{if ge .Change 0.0}}up{{else}}down{{end}}"><td>{{.Name}}</td><td>{{.Symbol}}</td><td class="num">{{.CloseText}}</td><td class="num">{{.ChangeText}}</td><td class="num">{{.PercentText}}</td><td>{{.Arrow}}</td></tr>
  {{- else}}
  <tr class="na"><td>{{.Name}}</td><td>{{.Symbol}}</td><td class="num">{{.CloseText}}</td><td class="num">{{.ChangeText}}</td><td class="num">{{.PercentText}}</td><td></td></tr>
  {{- end}}
  {{- end}}
</table>
{{- end}}

<h2>Morning Brief</h2>
<div class="brief">
{{.BriefHTML}}
</div>

<h2>Positioning Tips</h2>
{{.TipsHTML}}

<div class="footer">Prices: Alpha Vantage daily closes of ETF proxies. Narrative is AI-generated and is not investment advice.</div>
</body>
</html>
`
