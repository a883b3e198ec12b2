// Package dispatch walks a job's strategy list in table order, first
// success wins. Jobs run in parallel on a bounded worker pool; strategies
// within one job are strictly sequential.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/trunov/converthub/internal/entities"
	"github.com/trunov/converthub/internal/jobstore"
	"github.com/trunov/converthub/internal/routing"
	"github.com/trunov/converthub/internal/strategy"
)

var ErrQueueFull = errors.New("dispatch queue is full")

// Mirror receives completed outputs for replication to remote storage.
type Mirror interface {
	MirrorFile(ctx context.Context, key, path string) error
}

type Config struct {
	Workers         int
	QueueSize       int
	StrategyTimeout time.Duration
	OutputDir       string
}

type Dispatcher struct {
	cfg    Config
	jobs   jobstore.JobStore
	table  *routing.Table
	exec   *strategy.Executor
	mirror Mirror // optional

	queue chan string
	wg    sync.WaitGroup
}

func New(cfg Config, jobs jobstore.JobStore, table *routing.Table, exec *strategy.Executor, mirror Mirror) (*Dispatcher, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.StrategyTimeout <= 0 {
		cfg.StrategyTimeout = 60 * time.Second
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	d := &Dispatcher{
		cfg:    cfg,
		jobs:   jobs,
		table:  table,
		exec:   exec,
		mirror: mirror,
		queue:  make(chan string, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	log.Printf("[dispatch] worker pool started (workers=%d queue=%d timeout=%v)",
		cfg.Workers, cfg.QueueSize, cfg.StrategyTimeout)
	return d, nil
}

// Enqueue schedules a pending job without blocking. A full queue is
// reported to the caller rather than stalling the upload request.
func (d *Dispatcher) Enqueue(jobID string) error {
	select {
	case d.queue <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close drains the queue and waits for in-flight dispatches to finish.
func (d *Dispatcher) Close() {
	close(d.queue)
	d.wg.Wait()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	log.Printf("[dispatch] worker #%d started", id)
	for jobID := range d.queue {
		d.run(context.Background(), jobID)
	}
	log.Printf("[dispatch] worker #%d stopped", id)
}

func (d *Dispatcher) run(ctx context.Context, jobID string) {
	job, err := d.jobs.Get(ctx, jobID)
	if err != nil {
		// Deleted between submit and dispatch; nothing to do.
		return
	}

	strategies, err := d.table.StrategiesFor(job.SourceFormat, job.DestinationFormat)
	if err != nil {
		// Guarded again here in case the table changed between submission
		// checks; no strategy is attempted.
		d.fail(ctx, jobID, fmt.Sprintf("conversion from %s to %s is not supported",
			job.SourceFormat, job.DestinationFormat))
		return
	}

	if err := d.jobs.MarkConverting(ctx, jobID); err != nil {
		// Deleted or already terminal; either way this dispatch is stale.
		return
	}

	outputPath := filepath.Join(d.cfg.OutputDir, jobID+"."+strings.ToLower(job.DestinationFormat))

	var failures []string
	for i, sid := range strategies {
		ferr := d.exec.Execute(ctx, sid, job.InputPath, outputPath, d.cfg.StrategyTimeout)
		if ferr == nil {
			if err := d.jobs.Complete(ctx, jobID, outputPath, string(sid)); err != nil {
				// Job deleted mid-conversion: a normal outcome, not a fault.
				// The result is discarded along with its artifact.
				log.Printf("[dispatch] job %s finished but record is gone: %v", jobID, err)
				os.Remove(outputPath)
				return
			}
			log.Printf("[dispatch] job %s completed via %s", jobID, sid)
			d.mirrorOutput(ctx, jobID, outputPath)
			return
		}

		log.Printf("[dispatch] job %s: strategy %d/%d failed: %v", jobID, i+1, len(strategies), ferr)
		failures = append(failures, ferr.Error())

		// Purely a UX signal, never reaches 100 on the failure path.
		if i+1 < len(strategies) {
			if err := d.jobs.SetProgress(ctx, jobID, 100*(i+1)/len(strategies)); err != nil {
				if errors.Is(err, entities.ErrNotFound) {
					return
				}
			}
		}
	}

	d.fail(ctx, jobID, summarize(failures))
}

func (d *Dispatcher) fail(ctx context.Context, jobID, reason string) {
	if err := d.jobs.Fail(ctx, jobID, reason); err != nil {
		if !errors.Is(err, entities.ErrNotFound) {
			log.Printf("[dispatch] job %s: fail transition rejected: %v", jobID, err)
		}
		return
	}
	sentry.CaptureMessage(fmt.Sprintf("conversion job %s failed: %s", jobID, reason))
}

func (d *Dispatcher) mirrorOutput(ctx context.Context, jobID, outputPath string) {
	if d.mirror == nil {
		return
	}
	key := "converted/" + filepath.Base(outputPath)
	if err := d.mirror.MirrorFile(ctx, key, outputPath); err != nil {
		// Mirroring is best effort; the local artifact is authoritative.
		log.Printf("[dispatch] job %s: mirror failed: %v", jobID, err)
	}
}

// summarize folds per-strategy failures into the single terminal message.
func summarize(failures []string) string {
	switch len(failures) {
	case 0:
		return "no conversion strategies available"
	case 1:
		return "conversion failed: " + failures[0]
	default:
		return fmt.Sprintf("all %d strategies failed: last: %s (earlier: %s)",
			len(failures), failures[len(failures)-1], strings.Join(failures[:len(failures)-1], "; "))
	}
}
