// Package use_case is the service facade the transport layer talks to:
// submit, poll, download, delete, plus the administrative operations.
package use_case

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/trunov/converthub/internal/contentstore"
	"github.com/trunov/converthub/internal/entities"
	"github.com/trunov/converthub/internal/jobstore"
	"github.com/trunov/converthub/internal/lifecycle"
	"github.com/trunov/converthub/internal/routing"
)

// Dispatcher schedules a pending job for background conversion.
type Dispatcher interface {
	Enqueue(jobID string) error
}

type UseCase struct {
	jobs       jobstore.JobStore
	content    *contentstore.Store
	table      *routing.Table
	lifecycle  *lifecycle.Manager
	dispatcher Dispatcher
}

func New(jobs jobstore.JobStore, content *contentstore.Store, table *routing.Table, lc *lifecycle.Manager, dispatcher Dispatcher) *UseCase {
	return &UseCase{
		jobs:       jobs,
		content:    content,
		table:      table,
		lifecycle:  lc,
		dispatcher: dispatcher,
	}
}

// Submit registers the upload (deduplicated), creates a pending job and
// schedules dispatch. An unsupported pair is rejected before any byte is
// persisted.
func (c *UseCase) Submit(ctx context.Context, data []byte, filename, sourceFormat, destinationFormat string) (string, error) {
	src := routing.Normalize(sourceFormat)
	dst := routing.Normalize(destinationFormat)
	if _, err := c.table.StrategiesFor(src, dst); err != nil {
		return "", err
	}

	hash, err := c.content.Put(data)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	inputPath, err := c.content.Acquire(hash)
	if err != nil {
		return "", fmt.Errorf("acquire upload: %w", err)
	}

	job := &entities.Job{
		ID:                uuid.New().String(),
		SourceFormat:      src,
		DestinationFormat: dst,
		InputHash:         hash,
		InputPath:         inputPath,
		OriginalFilename:  filename,
	}
	if err := c.jobs.Create(ctx, job); err != nil {
		c.content.Release(hash)
		return "", fmt.Errorf("create job: %w", err)
	}

	if err := c.dispatcher.Enqueue(job.ID); err != nil {
		// The job exists but will never run; fail it so the caller sees a
		// well-formed terminal status instead of a forever-pending job.
		if ferr := c.jobs.Fail(ctx, job.ID, err.Error()); ferr != nil {
			log.Printf("[use-case] job %s: fail after enqueue error: %v", job.ID, ferr)
		}
		return job.ID, nil
	}

	log.Printf("[use-case] job %s submitted (%s -> %s, input %s)", job.ID, src, dst, hash[:12])
	return job.ID, nil
}

func (c *UseCase) GetStatus(ctx context.Context, jobID string) (entities.Job, error) {
	return c.jobs.Get(ctx, jobID)
}

// GetOutput opens the converted artifact for streaming and derives a
// download filename from the original upload name.
func (c *UseCase) GetOutput(ctx context.Context, jobID string) (io.ReadCloser, string, error) {
	job, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, "", err
	}
	if job.Status != entities.StatusCompleted {
		return nil, "", fmt.Errorf("job %s is %s: %w", jobID, job.Status, entities.ErrNotReady)
	}
	f, err := os.Open(job.OutputPath)
	if err != nil {
		return nil, "", fmt.Errorf("job %s output: %w", jobID, entities.ErrNotFound)
	}
	return f, downloadFilename(job), nil
}

// DeleteJob removes the job record, releases its input reference exactly
// once and deletes the owned output file. An in-flight dispatch notices the
// missing record and discards its own result.
func (c *UseCase) DeleteJob(ctx context.Context, jobID string) error {
	job, err := c.jobs.Delete(ctx, jobID)
	if err != nil {
		return err
	}
	if err := c.content.Release(job.InputHash); err != nil && !errors.Is(err, entities.ErrNotFound) {
		log.Printf("[use-case] job %s: release input: %v", jobID, err)
	}
	if job.OutputPath != "" {
		if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
			log.Printf("[use-case] job %s: remove output: %v", jobID, err)
		}
	}
	return nil
}

func (c *UseCase) ListJobs(ctx context.Context) ([]entities.Job, error) {
	return c.jobs.List(ctx)
}

// ListSupportedConversions derives the capability listing from the routing
// table; it can never disagree with what the dispatcher accepts.
func (c *UseCase) ListSupportedConversions() []routing.FormatSupport {
	return c.table.Formats()
}

func (c *UseCase) Cleanup(ctx context.Context) entities.CleanupResult {
	return c.lifecycle.Cleanup(ctx)
}

func (c *UseCase) StorageStats(ctx context.Context) (entities.StorageStats, error) {
	return c.lifecycle.Stats(ctx)
}

func downloadFilename(job entities.Job) string {
	base := "converted_file"
	if job.OriginalFilename != "" {
		name := filepath.Base(job.OriginalFilename)
		base = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return base + "." + strings.ToLower(job.DestinationFormat)
}
