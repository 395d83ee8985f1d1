// Package pdfreport prints a rendered college report to PDF with headless
// Chromium.
package pdfreport

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/joelkehle/college-assistant/internal/collegesearch"
)

// ErrNoBrowser is returned when no Chromium or Chrome binary can be found.
var ErrNoBrowser = errors.New("no chromium or chrome binary found")

const pageCSS = `body{font-family:-apple-system,"Segoe UI",Helvetica,Arial,sans-serif;color:#1c1917;margin:0;padding:0.6rem;}
.wrap{max-width:1000px;margin:0 auto;}
.meta{color:#44403c;font-size:0.8rem;margin-bottom:0.8rem;}
.notice{background:#fef3c7;border:1px solid #fcd34d;color:#78350f;padding:0.3rem 0.5rem;}
table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:0.8rem;}
th,td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
thead th{background:#f1f5f9;font-weight:700;}
a{color:#1d4ed8;}
html,body,*{-webkit-print-color-adjust:exact;print-color-adjust:exact;}
@media print{@page{size:auto;margin:12mm;}}`

// Layout is a page size and its margins, in inches.
type Layout struct {
	Width, Height            float64
	Top, Bottom, Left, Right float64
}

// A4 leaves room at the bottom for the page-number footer.
var A4 = Layout{Width: 8.27, Height: 11.69, Top: 0.5, Bottom: 0.75, Left: 0.45, Right: 0.45}

// Letter is US letter with the same margins as A4.
var Letter = Layout{Width: 8.5, Height: 11, Top: 0.5, Bottom: 0.75, Left: 0.45, Right: 0.45}

const pageFooter = `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
	`<span class="title"></span> &middot; page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`

type Renderer struct {
	chromePath string
	timeout    time.Duration
	layout     Layout
}

// NewRenderer uses chromePath when set, otherwise the first browser found on
// the usual install paths or $PATH. Pages are A4 until WithLayout says
// otherwise.
func NewRenderer(chromePath string) *Renderer {
	if strings.TrimSpace(chromePath) == "" {
		chromePath = detectChromePath()
	}
	return &Renderer{chromePath: chromePath, timeout: 30 * time.Second, layout: A4}
}

func (r *Renderer) WithLayout(l Layout) *Renderer {
	r.layout = l
	return r
}

func (r *Renderer) Available() bool { return r.chromePath != "" }

// Render prints the result's report as a PDF.
func (r *Renderer) Render(ctx context.Context, result collegesearch.PipelineResult) ([]byte, error) {
	if !r.Available() {
		return nil, ErrNoBrowser
	}
	doc, err := BuildDocument(result)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	browserCtx, closeBrowser := r.browser(ctx)
	defer closeBrowser()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("data:text/html;base64,"+base64.StdEncoding.EncodeToString([]byte(doc))),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) (err error) {
			pdf, _, err = r.printParams().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return pdf, nil
}

// browser starts a headless Chromium bound to ctx. The returned func stops it.
func (r *Renderer) browser(ctx context.Context) (context.Context, func()) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.ExecPath(r.chromePath),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	return taskCtx, func() {
		cancelTask()
		cancelAlloc()
	}
}

func (r *Renderer) printParams() *page.PrintToPDFParams {
	l := r.layout
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate(`<div></div>`).
		WithFooterTemplate(pageFooter).
		WithPaperWidth(l.Width).
		WithPaperHeight(l.Height).
		WithMarginTop(l.Top).
		WithMarginBottom(l.Bottom).
		WithMarginLeft(l.Left).
		WithMarginRight(l.Right)
}

// BuildDocument wraps the HTML report in a standalone page with print styles
// and a header naming the model and result source.
func BuildDocument(result collegesearch.PipelineResult) (string, error) {
	body, err := collegesearch.RenderReportHTML(collegesearch.BuildReportMarkdown(result))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("<!doctype html><html><head><meta charset='utf-8'><title>College Report</title><style>")
	b.WriteString(pageCSS)
	b.WriteString("</style></head><body><div class='wrap'>")
	b.WriteString(metaHTML(result))
	b.WriteString(body)
	b.WriteString("</div></body></html>")
	return b.String(), nil
}

func metaHTML(result collegesearch.PipelineResult) string {
	var out strings.Builder
	out.WriteString("<div class='meta'>")
	if m := strings.TrimSpace(result.Metadata.Model); m != "" {
		out.WriteString("<div><strong>Model:</strong> " + html.EscapeString(m) + "</div>")
	}
	if result.Source != "" {
		out.WriteString("<div><strong>Source:</strong> " + html.EscapeString(string(result.Source)) + "</div>")
	}
	if result.DataUnavailable {
		out.WriteString("<div class='notice'>Institution data was unavailable for this request.</div>")
	}
	out.WriteString("</div>")
	return out.String()
}

func detectChromePath() string {
	for _, p := range []string{"/usr/bin/chromium-browser", "/usr/bin/chromium", "/usr/bin/google-chrome"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, name := range []string{"chromium", "google-chrome", "chrome"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}
