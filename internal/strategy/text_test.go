package strategy

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

func TestTextToHTMLEscapesMarkup(t *testing.T) {
	out := outPath(t, "out.html")
	require.NoError(t, textToHTML([]byte("a < b & c"), out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<pre>a &lt; b &amp; c</pre>")
}

func TestTextToJSONLines(t *testing.T) {
	out := outPath(t, "out.json")
	require.NoError(t, textToJSON([]byte("first\r\nsecond\nthird"), out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc map[string][]string
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, []string{"first", "second", "third"}, doc["lines"])
}

func TestCSVToJSON(t *testing.T) {
	out := outPath(t, "out.json")
	input := "name,age\nalice,30\nbob,41\n"
	require.NoError(t, csvToJSON([]byte(input), out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var rows []map[string]string
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0]["name"])
	assert.Equal(t, "41", rows[1]["age"])
}

func TestJSONToCSVArray(t *testing.T) {
	out := outPath(t, "out.csv")
	input := `[{"name":"alice","age":30},{"name":"bob","city":"riga"}]`
	require.NoError(t, jsonToCSV([]byte(input), out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	// Header is the sorted union of all keys.
	assert.Equal(t, []string{"age", "city", "name"}, records[0])
	require.Len(t, records, 3)
	assert.Equal(t, []string{"30", "", "alice"}, records[1])
	assert.Equal(t, []string{"", "riga", "bob"}, records[2])
}

func TestJSONToCSVSingleObject(t *testing.T) {
	out := outPath(t, "out.csv")
	require.NoError(t, jsonToCSV([]byte(`{"k":"v"}`), out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "k\nv\n", string(data))
}

func TestJSONToCSVInvalidInput(t *testing.T) {
	out := outPath(t, "out.csv")

	err := jsonToCSV([]byte("not json at all"), out)
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, KindInvalidInput, serr.Kind)

	err = jsonToCSV([]byte("[]"), out)
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, KindInvalidInput, serr.Kind)
}

func TestCSVToHTMLTable(t *testing.T) {
	out := outPath(t, "out.html")
	require.NoError(t, csvToHTML([]byte("h1,h2\n<x>,b\n"), out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<th>h1</th>")
	assert.Contains(t, html, "<td>&lt;x&gt;</td>")
}

func TestCSVInvalidInput(t *testing.T) {
	out := outPath(t, "out.json")

	err := csvToJSON([]byte(""), out)
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, KindInvalidInput, serr.Kind)
}

func TestHTMLTextStrategyStripsMarkup(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.html")
	out := filepath.Join(dir, "out.txt")
	page := `<html><head><style>body { color: red }</style>
<script>alert("hi")</script></head>
<body><h1>Title</h1><p>Some <b>bold</b> text.</p></body></html>`
	require.NoError(t, os.WriteFile(in, []byte(page), 0644))

	require.NoError(t, htmlTextStrategy{}.Convert(context.Background(), in, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "bold")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color: red")
}

func TestHTMLTextStrategyRejectsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.html")
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(in, []byte("<html><body></body></html>"), 0644))

	err := htmlTextStrategy{}.Convert(context.Background(), in, out)
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, KindInvalidInput, serr.Kind)
}

func TestDocxFromTextProducesValidPackage(t *testing.T) {
	out := outPath(t, "out.docx")
	require.NoError(t, docxFromText("line one\nline <two> & three", out))

	r, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer r.Close()

	names := make(map[string]bool)
	var document string
	for _, f := range r.File {
		names[f.Name] = true
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			require.NoError(t, err)
			var b bytes.Buffer
			_, err = b.ReadFrom(rc)
			rc.Close()
			require.NoError(t, err)
			document = b.String()
		}
	}
	assert.True(t, names["[Content_Types].xml"])
	assert.True(t, names["_rels/.rels"])
	assert.Contains(t, document, "line one")
	assert.Contains(t, document, "line &lt;two&gt; &amp; three")
}

func TestPDFFromTextStructure(t *testing.T) {
	out := outPath(t, "out.pdf")
	require.NoError(t, pdfFromText("Hello PDF world", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	pdf := string(data)
	assert.True(t, strings.HasPrefix(pdf, "%PDF-1.4"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(pdf), "%%EOF"))
	assert.Contains(t, pdf, "(Hello PDF world) Tj")
	assert.Contains(t, pdf, "/Type /Catalog")
	assert.Contains(t, pdf, "xref")
}

func TestPDFFromTextPaginatesLongInput(t *testing.T) {
	out := outPath(t, "out.pdf")
	require.NoError(t, pdfFromText(strings.Repeat("line\n", 120), out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	// 121 lines at 54 per page means three page objects.
	assert.Contains(t, string(data), "/Count 3")
}

func TestPDFFromTextEscapesDelimiters(t *testing.T) {
	out := outPath(t, "out.pdf")
	require.NoError(t, pdfFromText(`(parens) and \backslash`, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `(\(parens\) and \\backslash) Tj`)
}

func TestWrapLines(t *testing.T) {
	long := strings.Repeat("a", pdfMaxLineLen+10)
	lines := wrapLines("short\n" + long)
	require.Len(t, lines, 3)
	assert.Equal(t, "short", lines[0])
	assert.Len(t, lines[1], pdfMaxLineLen)
	assert.Len(t, lines[2], 10)
}
