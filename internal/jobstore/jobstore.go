// Package jobstore tracks the lifecycle of every submitted conversion job.
// The state machine rules live in the store itself, so every implementation
// enforces them: pending -> converting -> completed|error, terminal states
// never regress, progress only moves forward while converting.
package jobstore

import (
	"context"
	"errors"

	"github.com/trunov/converthub/internal/entities"
)

// ErrTerminalState reports an attempt to mutate a job that already reached
// completed or error. That is a programming error in the caller, not a
// recoverable fault.
var ErrTerminalState = errors.New("job is in a terminal state")

type JobStore interface {
	Create(ctx context.Context, job *entities.Job) error
	Get(ctx context.Context, id string) (entities.Job, error)
	List(ctx context.Context) ([]entities.Job, error)

	// Delete removes the job and returns its final record so the caller can
	// release the input reference and remove the owned output file.
	Delete(ctx context.Context, id string) (entities.Job, error)

	MarkConverting(ctx context.Context, id string) error
	SetProgress(ctx context.Context, id string, progress int) error
	Complete(ctx context.Context, id, outputPath, methodUsed string) error
	Fail(ctx context.Context, id, reason string) error

	CountByStatus(ctx context.Context) (map[entities.JobStatus]int, error)

	// Updates emits a copy of every job that changed state. Consumers that
	// fall behind miss updates rather than blocking the store.
	Updates() <-chan entities.Job
}
