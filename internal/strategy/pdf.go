package strategy

import (
	"context"
	"encoding/csv"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/trunov/converthub/internal/routing"
)

// pdfExtractStrategy extracts page text with ledongthuc/pdf and hands it to
// a format-specific sink. This is the naive end of the PDF fallback chains:
// it preserves text, not layout.
type pdfExtractStrategy struct {
	id   routing.StrategyID
	sink func(pages []string, outputPath string) error
}

func (p *pdfExtractStrategy) ID() routing.StrategyID { return p.id }

func (p *pdfExtractStrategy) Convert(ctx context.Context, inputPath, outputPath string) error {
	f, r, err := pdf.Open(inputPath)
	if err != nil {
		return &Error{Strategy: p.id, Kind: KindInvalidInput, Err: fmt.Errorf("open pdf: %w", err)}
	}
	defer f.Close()

	var pages []string
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return &Error{Strategy: p.id, Kind: KindExecutionFailed, Err: fmt.Errorf("extract page %d: %w", i, err)}
		}
		pages = append(pages, text)
	}
	if len(pages) == 0 {
		return &Error{Strategy: p.id, Kind: KindExecutionFailed, Err: fmt.Errorf("no extractable text in %d pages", total)}
	}
	return p.sink(pages, outputPath)
}

func writeText(pages []string, outputPath string) error {
	return os.WriteFile(outputPath, []byte(strings.Join(pages, "\n\n")), 0644)
}

func writePagesHTML(pages []string, outputPath string) error {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i, page := range pages {
		b.WriteString(fmt.Sprintf("<div class='page'><h3>Page %d</h3><p>%s</p></div>",
			i+1, strings.ReplaceAll(html.EscapeString(page), "\n", "<br>")))
	}
	b.WriteString("</body></html>")
	return os.WriteFile(outputPath, []byte(b.String()), 0644)
}

func writeLinesCSV(pages []string, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := w.Write([]string{line}); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func writeMinimalDocx(pages []string, outputPath string) error {
	return docxFromText(strings.Join(pages, "\n\n"), outputPath)
}
