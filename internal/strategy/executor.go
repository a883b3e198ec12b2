package strategy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/trunov/converthub/internal/routing"
)

// Executor runs a single strategy under a wall-clock timeout and classifies
// the outcome. A nil return means exactly one artifact exists at outputPath;
// any failure leaves no partial artifact behind.
type Executor struct {
	reg *Registry
}

func NewExecutor(reg *Registry) *Executor {
	return &Executor{reg: reg}
}

func (e *Executor) Execute(ctx context.Context, id routing.StrategyID, inputPath, outputPath string, timeout time.Duration) *Error {
	s, ok := e.reg.Lookup(id)
	if !ok {
		return &Error{Strategy: id, Kind: KindToolMissing, Err: fmt.Errorf("strategy %q not registered", id)}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.Convert(ctx, inputPath, outputPath)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		// Command strategies are killed through the context; a library call
		// may run on in the background, but its result is discarded.
		err = ctx.Err()
	}

	if err == nil {
		if fi, statErr := os.Stat(outputPath); statErr != nil || fi.Size() == 0 {
			os.Remove(outputPath)
			return &Error{Strategy: id, Kind: KindExecutionFailed, Err: errors.New("strategy reported success but produced no usable output")}
		}
		return nil
	}

	os.Remove(outputPath)
	return classify(id, err)
}

func classify(id routing.StrategyID, err error) *Error {
	var serr *Error
	if errors.As(err, &serr) {
		return serr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Strategy: id, Kind: KindTimeout, Err: err}
	case errors.Is(err, exec.ErrNotFound):
		return &Error{Strategy: id, Kind: KindToolMissing, Err: err}
	default:
		return &Error{Strategy: id, Kind: KindExecutionFailed, Err: err}
	}
}
