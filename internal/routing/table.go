// Package routing holds the static mapping from a (source, destination)
// format pair to the ordered list of conversion strategies to attempt.
// Order encodes fidelity preference: the richest converter comes first,
// naive text extraction last. The table is data, not control flow; adding
// a pair or reordering a fallback touches nothing but this file.
package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/trunov/converthub/internal/entities"
)

// StrategyID names one registered conversion strategy.
type StrategyID string

const (
	StrategyImaging    StrategyID = "imaging"
	StrategyMagick     StrategyID = "magick"
	StrategyPDFText    StrategyID = "pdf-text"
	StrategyPDFHTML    StrategyID = "pdf-html"
	StrategyPDFCSV     StrategyID = "pdf-csv"
	StrategyPDFDocx    StrategyID = "pdf-docx"
	StrategyPdftotext  StrategyID = "pdftotext"
	StrategySoffice    StrategyID = "soffice"
	StrategyFFmpeg     StrategyID = "ffmpeg"
	StrategyTextPDF    StrategyID = "text-pdf"
	StrategyTextDocx   StrategyID = "text-docx"
	StrategyHTMLText   StrategyID = "html-text"
	StrategyTextHTML   StrategyID = "text-html"
	StrategyTextCSV    StrategyID = "text-csv"
	StrategyTextJSON   StrategyID = "text-json"
	StrategyCSVJSON    StrategyID = "csv-json"
	StrategyJSONCSV    StrategyID = "json-csv"
	StrategyCSVHTML    StrategyID = "csv-html"
)

// Pair is a normalized (source, destination) format pair.
type Pair struct {
	Source      string
	Destination string
}

func (p Pair) String() string { return p.Source + "->" + p.Destination }

// Normalize canonicalizes a format tag: trims, upper-cases, drops a leading
// dot and folds the JPEG alias into JPG.
func Normalize(format string) string {
	f := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if f == "JPEG" {
		f = "JPG"
	}
	return f
}

var rasterFormats = []string{"JPG", "PNG", "BMP", "GIF", "TIFF", "WEBP"}

var audioFormats = []string{"MP3", "WAV", "FLAC", "OGG", "AAC"}

var videoFormats = []string{"MP4", "AVI", "MOV", "MKV", "WEBM"}

// pairs is the authoritative routing table. The explicit entries cover the
// document and data formats; image, audio and video families are filled in
// by init since every in-family combination routes the same way.
var pairs = map[Pair][]StrategyID{
	// PDF: library extraction first, external tools as fallbacks.
	{"PDF", "TXT"}:  {StrategyPDFText, StrategyPdftotext},
	{"PDF", "HTML"}: {StrategySoffice, StrategyPDFHTML},
	{"PDF", "CSV"}:  {StrategyPDFCSV},
	{"PDF", "DOCX"}: {StrategySoffice, StrategyPDFDocx},
	{"PDF", "JPG"}:  {StrategySoffice, StrategyMagick},
	{"PDF", "PNG"}:  {StrategySoffice, StrategyMagick},

	// Office documents via LibreOffice headless.
	{"DOCX", "PDF"}:  {StrategySoffice},
	{"DOCX", "TXT"}:  {StrategySoffice},
	{"DOCX", "HTML"}: {StrategySoffice},
	{"DOC", "PDF"}:   {StrategySoffice},
	{"DOC", "TXT"}:   {StrategySoffice},
	{"ODT", "PDF"}:   {StrategySoffice},
	{"ODT", "DOCX"}:  {StrategySoffice},
	{"RTF", "PDF"}:   {StrategySoffice},
	{"RTF", "DOCX"}:  {StrategySoffice},
	{"PPTX", "PDF"}:  {StrategySoffice},
	{"XLSX", "CSV"}:  {StrategySoffice},
	{"XLSX", "PDF"}:  {StrategySoffice},
	{"CSV", "XLSX"}:  {StrategySoffice},

	// Text and markup.
	{"TXT", "PDF"}:   {StrategySoffice, StrategyTextPDF},
	{"TXT", "DOCX"}:  {StrategySoffice, StrategyTextDocx},
	{"TXT", "HTML"}:  {StrategyTextHTML},
	{"TXT", "CSV"}:   {StrategyTextCSV},
	{"TXT", "JSON"}:  {StrategyTextJSON},
	{"HTML", "PDF"}:  {StrategySoffice, StrategyTextPDF},
	{"HTML", "TXT"}:  {StrategyHTMLText},
	{"HTML", "DOCX"}: {StrategySoffice, StrategyTextDocx},

	// Tabular data.
	{"CSV", "JSON"}: {StrategyCSVJSON},
	{"CSV", "HTML"}: {StrategyCSVHTML},
	{"JSON", "CSV"}: {StrategyJSONCSV},

	// SVG rasterization.
	{"SVG", "PNG"}: {StrategyMagick},
	{"SVG", "JPG"}: {StrategyMagick},
	{"SVG", "PDF"}: {StrategyMagick},
}

func init() {
	for _, src := range rasterFormats {
		for _, dst := range rasterFormats {
			if src == dst {
				continue
			}
			pairs[Pair{src, dst}] = []StrategyID{StrategyImaging, StrategyMagick}
		}
		pairs[Pair{src, "PDF"}] = []StrategyID{StrategyMagick}
	}
	for _, src := range audioFormats {
		for _, dst := range audioFormats {
			if src == dst {
				continue
			}
			pairs[Pair{src, dst}] = []StrategyID{StrategyFFmpeg}
		}
	}
	for _, src := range videoFormats {
		for _, dst := range videoFormats {
			if src == dst {
				continue
			}
			pairs[Pair{src, dst}] = []StrategyID{StrategyFFmpeg}
		}
		// Audio extraction.
		pairs[Pair{src, "MP3"}] = []StrategyID{StrategyFFmpeg}
		pairs[Pair{src, "WAV"}] = []StrategyID{StrategyFFmpeg}
	}
}

// Table answers strategy lookups and produces the advertised capability
// listing from the same data, so the two can never diverge.
type Table struct {
	pairs map[Pair][]StrategyID
}

func NewTable() *Table {
	return &Table{pairs: pairs}
}

// StrategiesFor returns the ordered strategy list for a pair.
func (t *Table) StrategiesFor(source, destination string) ([]StrategyID, error) {
	p := Pair{Normalize(source), Normalize(destination)}
	ids, ok := t.pairs[p]
	if !ok || len(ids) == 0 {
		return nil, fmt.Errorf("%s to %s: %w", p.Source, p.Destination, entities.ErrUnsupportedConversion)
	}
	out := make([]StrategyID, len(ids))
	copy(out, ids)
	return out, nil
}

// SupportedPairs returns every pair in the table, sorted.
func (t *Table) SupportedPairs() []Pair {
	out := make([]Pair, 0, len(t.pairs))
	for p := range t.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Destination < out[j].Destination
	})
	return out
}

// FormatSupport groups destinations per source for the /formats listing.
type FormatSupport struct {
	Source       string   `json:"source"`
	Destinations []string `json:"destinations"`
}

// Formats derives the externally advertised capability listing.
func (t *Table) Formats() []FormatSupport {
	bySource := make(map[string][]string)
	for _, p := range t.SupportedPairs() {
		bySource[p.Source] = append(bySource[p.Source], p.Destination)
	}
	sources := make([]string, 0, len(bySource))
	for s := range bySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	out := make([]FormatSupport, 0, len(sources))
	for _, s := range sources {
		out = append(out, FormatSupport{Source: s, Destinations: bySource[s]})
	}
	return out
}
