package strategy

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"sort"
	"strings"

	xhtml "golang.org/x/net/html"

	"github.com/trunov/converthub/internal/routing"
)

// textStrategy wraps a whole-file transform for the text and tabular pairs.
type textStrategy struct {
	id routing.StrategyID
	fn func(input []byte, outputPath string) error
}

func (t *textStrategy) ID() routing.StrategyID { return t.id }

func (t *textStrategy) Convert(ctx context.Context, inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return t.fn(data, outputPath)
}

func textToHTML(input []byte, outputPath string) error {
	content := fmt.Sprintf("<html><body><pre>%s</pre></body></html>", html.EscapeString(string(input)))
	return os.WriteFile(outputPath, []byte(content), 0644)
}

func textToCSV(input []byte, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	for _, line := range strings.Split(string(input), "\n") {
		if err := w.Write([]string{strings.TrimRight(line, "\r")}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func textToJSON(input []byte, outputPath string) error {
	lines := strings.Split(strings.ReplaceAll(string(input), "\r\n", "\n"), "\n")
	out, err := json.MarshalIndent(map[string][]string{"lines": lines}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, out, 0644)
}

func csvToJSON(input []byte, outputPath string) error {
	records, err := readCSV(input)
	if err != nil {
		return err
	}
	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, out, 0644)
}

func jsonToCSV(input []byte, outputPath string) error {
	var rows []map[string]any
	if err := json.Unmarshal(input, &rows); err != nil {
		// A single object becomes a one-row table.
		var row map[string]any
		if err2 := json.Unmarshal(input, &row); err2 != nil {
			return &Error{Strategy: routing.StrategyJSONCSV, Kind: KindInvalidInput, Err: err}
		}
		rows = []map[string]any{row}
	}
	if len(rows) == 0 {
		return &Error{Strategy: routing.StrategyJSONCSV, Kind: KindInvalidInput, Err: fmt.Errorf("empty json document")}
	}

	colSet := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			colSet[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(colSet))
	for k := range colSet {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return err
	}
	for _, row := range rows {
		rec := make([]string, len(cols))
		for i, col := range cols {
			if v, ok := row[col]; ok {
				rec[i] = fmt.Sprint(v)
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func csvToHTML(input []byte, outputPath string) error {
	records, err := readCSV(input)
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("<html><body><table border=\"1\">")
	for i, rec := range records {
		cell := "td"
		if i == 0 {
			cell = "th"
		}
		b.WriteString("<tr>")
		for _, v := range rec {
			b.WriteString(fmt.Sprintf("<%s>%s</%s>", cell, html.EscapeString(v), cell))
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table></body></html>")
	return os.WriteFile(outputPath, []byte(b.String()), 0644)
}

func textToPDF(input []byte, outputPath string) error {
	return pdfFromText(string(input), outputPath)
}

func textToDocx(input []byte, outputPath string) error {
	return docxFromText(string(input), outputPath)
}

func readCSV(input []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(input))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, &Error{Strategy: routing.StrategyCSVJSON, Kind: KindInvalidInput, Err: err}
	}
	if len(records) == 0 {
		return nil, &Error{Strategy: routing.StrategyCSVJSON, Kind: KindInvalidInput, Err: fmt.Errorf("empty csv document")}
	}
	return records, nil
}

// htmlTextStrategy strips markup and keeps the text nodes, in document order.
type htmlTextStrategy struct{}

func (htmlTextStrategy) ID() routing.StrategyID { return routing.StrategyHTMLText }

func (htmlTextStrategy) Convert(ctx context.Context, inputPath, outputPath string) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var b strings.Builder
	z := xhtml.NewTokenizer(f)
	skip := 0
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			text := strings.TrimSpace(b.String())
			if text == "" {
				return &Error{Strategy: routing.StrategyHTMLText, Kind: KindInvalidInput, Err: fmt.Errorf("no text content")}
			}
			return os.WriteFile(outputPath, []byte(text+"\n"), 0644)
		case xhtml.StartTagToken:
			name, _ := z.TagName()
			if n := string(name); n == "script" || n == "style" {
				skip++
			}
		case xhtml.EndTagToken:
			name, _ := z.TagName()
			if n := string(name); (n == "script" || n == "style") && skip > 0 {
				skip--
			}
		case xhtml.TextToken:
			if skip > 0 {
				continue
			}
			if text := strings.TrimSpace(string(z.Text())); text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
	}
}
