// Package strategy runs one named conversion at a time: a call into an
// external tool or library with a bounded time budget, reporting success or
// a classified failure without ever throwing control out of the dispatch
// loop.
package strategy

import (
	"context"
	"fmt"

	"github.com/trunov/converthub/internal/routing"
)

// FailureKind classifies why a strategy attempt failed.
type FailureKind string

const (
	KindToolMissing     FailureKind = "tool_missing"
	KindTimeout         FailureKind = "timeout"
	KindExecutionFailed FailureKind = "execution_failed"
	KindInvalidInput    FailureKind = "invalid_input"
)

// Error is a classified strategy failure.
type Error struct {
	Strategy routing.StrategyID
	Kind     FailureKind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Strategy, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Strategy is one named way to perform a specific format conversion.
type Strategy interface {
	ID() routing.StrategyID

	// Convert reads inputPath and writes exactly one artifact to outputPath.
	// Implementations honor ctx cancellation; partial output cleanup is the
	// Executor's job.
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// Registry maps strategy IDs to implementations.
type Registry struct {
	m map[routing.StrategyID]Strategy
}

func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{m: make(map[routing.StrategyID]Strategy, len(strategies))}
	for _, s := range strategies {
		r.m[s.ID()] = s
	}
	return r
}

func (r *Registry) Lookup(id routing.StrategyID) (Strategy, bool) {
	s, ok := r.m[id]
	return s, ok
}

// DefaultRegistry wires every built-in strategy.
func DefaultRegistry() *Registry {
	return NewRegistry(
		// Libraries.
		&imagingStrategy{},
		&pdfExtractStrategy{id: routing.StrategyPDFText, sink: writeText},
		&pdfExtractStrategy{id: routing.StrategyPDFHTML, sink: writePagesHTML},
		&pdfExtractStrategy{id: routing.StrategyPDFCSV, sink: writeLinesCSV},
		&pdfExtractStrategy{id: routing.StrategyPDFDocx, sink: writeMinimalDocx},
		&htmlTextStrategy{},
		// Text and tabular writers.
		&textStrategy{id: routing.StrategyTextHTML, fn: textToHTML},
		&textStrategy{id: routing.StrategyTextCSV, fn: textToCSV},
		&textStrategy{id: routing.StrategyTextJSON, fn: textToJSON},
		&textStrategy{id: routing.StrategyCSVJSON, fn: csvToJSON},
		&textStrategy{id: routing.StrategyJSONCSV, fn: jsonToCSV},
		&textStrategy{id: routing.StrategyCSVHTML, fn: csvToHTML},
		&textStrategy{id: routing.StrategyTextPDF, fn: textToPDF},
		&textStrategy{id: routing.StrategyTextDocx, fn: textToDocx},
		// External tools.
		&sofficeStrategy{},
		&commandStrategy{
			id:  routing.StrategyPdftotext,
			bin: "pdftotext",
			args: func(in, out string) []string {
				return []string{"-layout", in, out}
			},
		},
		&commandStrategy{
			id:  routing.StrategyFFmpeg,
			bin: "ffmpeg",
			args: func(in, out string) []string {
				return []string{"-y", "-i", in, out}
			},
		},
		&commandStrategy{
			id:  routing.StrategyMagick,
			bin: "convert",
			args: func(in, out string) []string {
				return []string{in, out}
			},
		},
	)
}
