package entities

import "errors"

// Structural errors that cross component boundaries. Per-strategy failures
// never surface here; the dispatcher absorbs them and reports only the
// terminal job error.
var (
	ErrUnsupportedConversion = errors.New("unsupported conversion")
	ErrNotFound              = errors.New("not found")
	ErrNotReady              = errors.New("conversion not completed yet")
)
