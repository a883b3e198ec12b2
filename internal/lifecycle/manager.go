// Package lifecycle garbage-collects content-store entries that no job
// references anymore and aggregates storage statistics.
package lifecycle

import (
	"context"
	"log"

	"github.com/trunov/converthub/internal/contentstore"
	"github.com/trunov/converthub/internal/entities"
)

// JobCounter is the slice of the job store this package needs.
type JobCounter interface {
	CountByStatus(ctx context.Context) (map[entities.JobStatus]int, error)
}

type Manager struct {
	content *contentstore.Store
	jobs    JobCounter
}

func NewManager(content *contentstore.Store, jobs JobCounter) *Manager {
	return &Manager{content: content, jobs: jobs}
}

// Cleanup removes every unreferenced entry. Idempotent and safe to run on
// any schedule, concurrently with uploads: the content store's own lock
// protects entries that get re-acquired during the scan.
func (m *Manager) Cleanup(ctx context.Context) entities.CleanupResult {
	res := m.content.RemoveUnreferenced()
	if res.EntriesRemoved > 0 {
		log.Printf("[lifecycle] cleanup removed %d entries (%d bytes)", res.EntriesRemoved, res.BytesFreed)
	}
	return res
}

func (m *Manager) Stats(ctx context.Context) (entities.StorageStats, error) {
	counts, err := m.jobs.CountByStatus(ctx)
	if err != nil {
		return entities.StorageStats{}, err
	}
	return entities.StorageStats{
		Content:      m.content.Stats(),
		JobsByStatus: counts,
	}, nil
}
