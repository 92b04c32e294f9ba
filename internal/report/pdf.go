package report

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/daybreak/internal/common"
)

// ════════════════════════════════════════════════════════════════════
// PDF Generator: native (fpdf) or chromium headless
// ════════════════════════════════════════════════════════════════════

// PDFEngine specifies which engine produces the PDF.
type PDFEngine string

const (
	EngineAuto     PDFEngine = "auto"     // chromium when installed, otherwise native
	EngineNative   PDFEngine = "native"   // Markdown AST drawn with fpdf
	EngineChromium PDFEngine = "chromium" // HTML report printed by headless Chrome
	EngineNone     PDFEngine = "none"     // skip PDF
)

// ErrPDFDisabled is returned by Render when the engine is "none".
var ErrPDFDisabled = errors.New("pdf generation disabled")

var chromiumBinaries = []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}

// DetectPDFEngine picks chromium when a browser binary is on PATH.
func DetectPDFEngine() PDFEngine {
	if findChromium() != "" {
		return EngineChromium
	}
	return EngineNative
}

func findChromium() string {
	for _, name := range chromiumBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// PDFRenderer turns report data into PDF bytes.
type PDFRenderer struct {
	engine  PDFEngine
	timeout time.Duration
	logger  arbor.ILogger
}

// NewPDFRenderer creates a renderer. "auto" and "" are resolved immediately.
func NewPDFRenderer(engine PDFEngine, logger arbor.ILogger) *PDFRenderer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if engine == "" || engine == EngineAuto {
		engine = DetectPDFEngine()
	}
	return &PDFRenderer{engine: engine, timeout: 60 * time.Second, logger: logger}
}

// Engine returns the resolved engine.
func (r *PDFRenderer) Engine() PDFEngine { return r.engine }

// Render produces the PDF document.
func (r *PDFRenderer) Render(ctx context.Context, d Data) ([]byte, error) {
	switch r.engine {
	case EngineNone:
		return nil, ErrPDFDisabled
	case EngineNative:
		md, err := RenderMarkdown(d)
		if err != nil {
			return nil, err
		}
		return renderNativePDF(md, d.Title)
	case EngineChromium:
		html, err := RenderHTML(d)
		if err != nil {
			return nil, err
		}
		out, err := r.renderChromium(ctx, html)
		if err != nil {
			r.logger.Warn().Err(err).Msg("Chromium PDF export failed, falling back to native engine")
			md, mdErr := RenderMarkdown(d)
			if mdErr != nil {
				return nil, mdErr
			}
			return renderNativePDF(md, d.Title)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported PDF engine: %s", r.engine)
	}
}

func (r *PDFRenderer) renderChromium(ctx context.Context, html string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if bin := findChromium(); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27). // A4, inches
				WithPaperHeight(11.69).
				WithMarginTop(0.4).
				WithMarginBottom(0.4).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chromium print: %w", err)
	}
	r.logger.Debug().Int("bytes", len(pdf)).Msg("Chromium PDF rendered")
	return pdf, nil
}
