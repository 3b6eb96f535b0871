package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PDFRenderer prints the HTML page through a headless Chrome.
type PDFRenderer struct {
	// ChromePath overrides the browser binary; empty means auto-detect.
	ChromePath string
	Timeout    time.Duration
}

// A4 in inches, with 15mm margins.
const (
	a4Width  = 8.27
	a4Height = 11.69
	margin   = 0.59
)

// Render writes the exam as a PDF to w.
func (p PDFRenderer) Render(ctx context.Context, w io.Writer, doc Document) error {
	var html bytes.Buffer
	if err := HTML(ctx, &html, doc); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	pdf, err := p.print(ctx, html.String())
	if err != nil {
		return err
	}
	_, err = w.Write(pdf)
	return err
}

func (p PDFRenderer) print(ctx context.Context, htmlContent string) ([]byte, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := chromedp.DefaultExecAllocatorOptions[:]
	if p.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(p.ChromePath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	start := time.Now()
	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := cdppage.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return cdppage.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = cdppage.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	slog.Debug("printed pdf", "bytes", len(pdf), "duration", time.Since(start))
	return pdf, nil
}
