package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pageWidthMM  = 210.0
	marginMM     = 15.0
	contentWidth = pageWidthMM - 2*marginMM
	bodySize     = 10.0
	lineHeight   = 5.0
)

// Core PDF fonts are cp1252; the arrows have no glyph there.
var glyphReplacer = strings.NewReplacer("▲", "Up", "▼", "Down")

// renderNativePDF draws a Markdown document with fpdf.
func renderNativePDF(markdown, title string) (out []byte, err error) {
	// fpdf panics on some malformed input; a failed PDF must not take the run down.
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("render pdf: %v", rec)
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", bodySize)

	source := []byte(markdown)
	doc := newMarkdown().Parser().Parse(text.NewReader(source))

	r := &nativeRenderer{
		pdf:    pdf,
		source: source,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		size:   bodySize,
	}
	if err := ast.Walk(doc, r.walk); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type nativeRenderer struct {
	pdf    *fpdf.Fpdf
	source []byte
	tr     func(string) string

	size   float64
	bold   bool
	italic bool
	quote  bool
}

func (r *nativeRenderer) text(s string) string {
	return r.tr(glyphReplacer.Replace(s))
}

func (r *nativeRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic || r.quote {
		style += "I"
	}
	r.pdf.SetFont("Helvetica", style, r.size)
}

func (r *nativeRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		r.heading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			r.pdf.Ln(lineHeight + 2)
		}
	case ast.KindText:
		if entering {
			t := n.(*ast.Text)
			r.pdf.Write(lineHeight, r.text(string(t.Segment.Value(r.source))))
			switch {
			case t.HardLineBreak():
				r.pdf.Ln(lineHeight)
			case t.SoftLineBreak():
				r.pdf.Write(lineHeight, " ")
			}
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case ast.KindBlockquote:
		r.quote = entering
		if entering {
			r.pdf.SetTextColor(120, 53, 15)
		} else {
			r.pdf.SetTextColor(0, 0, 0)
		}
		r.updateFont()
	case ast.KindTextBlock:
		if !entering {
			r.pdf.Ln(lineHeight)
		}
	case ast.KindListItem:
		if entering {
			r.pdf.SetX(marginMM + 4)
			r.pdf.Write(lineHeight, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			y := r.pdf.GetY() + 1
			r.pdf.SetDrawColor(200, 200, 200)
			r.pdf.Line(marginMM, y, pageWidthMM-marginMM, y)
			r.pdf.Ln(4)
		}
	case extast.KindTable:
		if entering {
			r.table(n.(*extast.Table))
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *nativeRenderer) heading(n *ast.Heading, entering bool) {
	if !entering {
		r.pdf.Ln(lineHeight + 2)
		r.size = bodySize
		r.pdf.SetTextColor(0, 0, 0)
		r.updateFont()
		return
	}
	switch n.Level {
	case 1:
		r.size = 20
		r.pdf.SetTextColor(15, 23, 42)
	case 2:
		r.pdf.Ln(2)
		r.size = 14
	default:
		r.size = 11
		r.pdf.SetTextColor(55, 65, 81)
	}
	r.pdf.SetFont("Helvetica", "B", r.size)
}

type tableCell struct {
	text  string
	align string
}

func (r *nativeRenderer) table(n *extast.Table) {
	var rows [][]tableCell
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		// The header node holds its cells directly; body rows are TableRow nodes.
		switch child.(type) {
		case *extast.TableHeader, *extast.TableRow:
			rows = append(rows, r.cells(child))
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	widths := r.columnWidths(rows)
	r.pdf.Ln(1)
	for i, row := range rows {
		header := i == 0
		if header {
			r.pdf.SetFont("Helvetica", "B", 9)
			r.pdf.SetFillColor(241, 245, 249)
		} else {
			r.pdf.SetFont("Helvetica", "", 9)
		}

		lines := make([][]string, len(row))
		maxLines := 1
		for j, c := range row {
			if j >= len(widths) {
				break
			}
			// Translated text is cp1252 bytes, so split by byte rather than rune.
			for _, line := range r.pdf.SplitLines([]byte(r.text(c.text)), widths[j]-2) {
				lines[j] = append(lines[j], string(line))
			}
			if len(lines[j]) > maxLines {
				maxLines = len(lines[j])
			}
		}
		rowHeight := float64(maxLines)*4.5 + 1.5

		_, pageHeight := r.pdf.GetPageSize()
		if r.pdf.GetY()+rowHeight > pageHeight-marginMM {
			r.pdf.AddPage()
		}

		x, y := marginMM, r.pdf.GetY()
		for j, c := range row {
			if j >= len(widths) {
				break
			}
			style := "D"
			if header {
				style = "FD"
			}
			r.pdf.SetDrawColor(226, 232, 240)
			r.pdf.Rect(x, y, widths[j], rowHeight, style)

			switch strings.TrimSpace(c.text) {
			case "▲":
				r.pdf.SetTextColor(22, 163, 74)
			case "▼":
				r.pdf.SetTextColor(220, 38, 38)
			}
			for k, line := range lines[j] {
				r.pdf.SetXY(x+1, y+0.75+float64(k)*4.5)
				r.pdf.CellFormat(widths[j]-2, 4.5, line, "", 0, c.align, false, 0, "")
			}
			r.pdf.SetTextColor(0, 0, 0)
			x += widths[j]
		}
		r.pdf.SetXY(marginMM, y+rowHeight)
	}
	r.pdf.Ln(3)
	r.updateFont()
}

func (r *nativeRenderer) cells(row ast.Node) []tableCell {
	var out []tableCell
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cell, ok := c.(*extast.TableCell)
		if !ok {
			continue
		}
		align := "L"
		switch cell.Alignment {
		case extast.AlignRight:
			align = "R"
		case extast.AlignCenter:
			align = "C"
		}
		out = append(out, tableCell{text: nodeText(cell, r.source), align: align})
	}
	return out
}

// columnWidths sizes columns by their widest cell, scaled to the content width.
func (r *nativeRenderer) columnWidths(rows [][]tableCell) []float64 {
	cols := len(rows[0])
	widths := make([]float64, cols)
	r.pdf.SetFont("Helvetica", "B", 9)
	for _, row := range rows {
		for j := 0; j < cols && j < len(row); j++ {
			w := r.pdf.GetStringWidth(r.text(row[j].text)) + 4
			if w > widths[j] {
				widths[j] = w
			}
		}
	}

	total := 0.0
	for j := range widths {
		if widths[j] < 8 {
			widths[j] = 8
		}
		total += widths[j]
	}
	scale := contentWidth / total
	for j := range widths {
		widths[j] *= scale
	}
	return widths
}

// nodeText concatenates the text segments below n.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
