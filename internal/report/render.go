package report

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var (
	markdownTmpl = template.Must(template.New("markdown").
			Funcs(template.FuncMap{"join": strings.Join}).
			Parse(MarkdownTemplate))

	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(HTMLTemplate))
)

// newMarkdown returns the GFM-flavoured converter shared by the HTML and PDF paths.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
}

// RenderMarkdown renders the archived Markdown report.
func RenderMarkdown(d Data) (string, error) {
	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// htmlView adds the pre-rendered narrative fragments to Data.
type htmlView struct {
	Data
	BriefHTML htmltemplate.HTML
	TipsHTML  htmltemplate.HTML
}

// RenderHTML renders the standalone HTML report used for email and printing.
// Narrative Markdown (the brief and the tips table) is converted with goldmark;
// goldmark's default renderer drops raw HTML from model output.
func RenderHTML(d Data) (string, error) {
	brief, err := markdownToHTML(d.Narrative.MorningBrief)
	if err != nil {
		return "", err
	}
	tips, err := markdownToHTML(d.Narrative.PositioningTips)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	view := htmlView{
		Data:      d,
		BriefHTML: htmltemplate.HTML(brief),
		TipsHTML:  htmltemplate.HTML(tips),
	}
	if err := htmlTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

func markdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := newMarkdown().Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}
