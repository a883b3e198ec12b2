package strategy

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

const (
	pdfLinesPerPage = 54
	pdfMaxLineLen   = 95
)

// pdfFromText writes a minimal valid PDF: Helvetica, one text block per
// page, long lines wrapped by character count. Like docxFromText, this is
// the naive end of a fallback chain, not a typesetter.
func pdfFromText(text string, outputPath string) error {
	lines := wrapLines(strings.ReplaceAll(text, "\r\n", "\n"))
	if len(lines) == 0 {
		lines = []string{""}
	}

	var pages [][]string
	for len(lines) > pdfLinesPerPage {
		pages = append(pages, lines[:pdfLinesPerPage])
		lines = lines[pdfLinesPerPage:]
	}
	pages = append(pages, lines)

	// Object layout: 1 catalog, 2 page tree, 3 font, then a page object and
	// a content stream per page.
	objCount := 3 + 2*len(pages)
	objects := make([]string, objCount+1)

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects[1] = "<< /Type /Catalog /Pages 2 0 R >>"
	objects[2] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))
	objects[3] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"

	for i, page := range pages {
		pageObj := 4 + 2*i
		contentObj := pageObj + 1
		objects[pageObj] = fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentObj)

		var stream strings.Builder
		stream.WriteString("BT /F1 11 Tf 14 TL 50 742 Td\n")
		for j, line := range page {
			if j > 0 {
				stream.WriteString("T*\n")
			}
			stream.WriteString(fmt.Sprintf("(%s) Tj\n", escapePDFString(line)))
		}
		stream.WriteString("ET")
		objects[contentObj] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", stream.Len(), stream.String())
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, objCount+1)
	for n := 1; n <= objCount; n++ {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, objects[n])
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", objCount+1)
	for n := 1; n <= objCount; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", objCount+1, xref)

	return os.WriteFile(outputPath, buf.Bytes(), 0644)
}

func wrapLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for len(line) > pdfMaxLineLen {
			out = append(out, line[:pdfMaxLineLen])
			line = line[pdfMaxLineLen:]
		}
		out = append(out, line)
	}
	return out
}

func escapePDFString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	s = strings.ReplaceAll(s, ")", `\)`)
	return s
}
