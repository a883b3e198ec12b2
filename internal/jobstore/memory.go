package jobstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trunov/converthub/internal/entities"
)

// Memory is the default, in-process job store: a map guarded by a RWMutex
// plus a buffered update channel for status notifications.
type Memory struct {
	mu      sync.RWMutex
	jobs    map[string]*entities.Job
	updates chan entities.Job
}

func NewMemory() *Memory {
	return &Memory{
		jobs:    make(map[string]*entities.Job),
		updates: make(chan entities.Job, 100),
	}
}

var _ JobStore = (*Memory)(nil)

func (m *Memory) Create(_ context.Context, job *entities.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	now := time.Now()
	job.Status = entities.StatusPending
	job.Progress = 0
	job.CreatedAt = now
	job.UpdatedAt = now
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (entities.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return entities.Job{}, fmt.Errorf("job %s: %w", id, entities.ErrNotFound)
	}
	return *job, nil
}

func (m *Memory) List(_ context.Context) ([]entities.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entities.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) (entities.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return entities.Job{}, fmt.Errorf("job %s: %w", id, entities.ErrNotFound)
	}
	delete(m.jobs, id)
	return *job, nil
}

func (m *Memory) MarkConverting(_ context.Context, id string) error {
	return m.transition(id, func(job *entities.Job) error {
		if job.Status != entities.StatusPending {
			return fmt.Errorf("job %s: cannot start converting from %s", id, job.Status)
		}
		job.Status = entities.StatusConverting
		job.Progress = 0
		return nil
	})
}

func (m *Memory) SetProgress(_ context.Context, id string, progress int) error {
	return m.transition(id, func(job *entities.Job) error {
		if job.Status != entities.StatusConverting {
			return fmt.Errorf("job %s: progress only moves while converting", id)
		}
		// Monotone: a stale report never winds progress back.
		if progress > job.Progress {
			if progress > 100 {
				progress = 100
			}
			job.Progress = progress
		}
		return nil
	})
}

func (m *Memory) Complete(_ context.Context, id, outputPath, methodUsed string) error {
	return m.transition(id, func(job *entities.Job) error {
		if job.Status != entities.StatusConverting {
			return fmt.Errorf("job %s: cannot complete from %s", id, job.Status)
		}
		job.Status = entities.StatusCompleted
		job.Progress = 100
		job.OutputPath = outputPath
		job.MethodUsed = methodUsed
		return nil
	})
}

func (m *Memory) Fail(_ context.Context, id, reason string) error {
	return m.transition(id, func(job *entities.Job) error {
		// Failure is reachable from pending (unsupported pair, full queue)
		// as well as from converting (exhausted strategies).
		job.Status = entities.StatusError
		job.Error = reason
		return nil
	})
}

func (m *Memory) CountByStatus(_ context.Context) (map[entities.JobStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[entities.JobStatus]int)
	for _, job := range m.jobs {
		counts[job.Status]++
	}
	return counts, nil
}

func (m *Memory) Updates() <-chan entities.Job { return m.updates }

func (m *Memory) transition(id string, mutate func(*entities.Job) error) error {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("job %s: %w", id, entities.ErrNotFound)
	}
	if job.Status.Terminal() {
		m.mu.Unlock()
		return fmt.Errorf("job %s (%s): %w", id, job.Status, ErrTerminalState)
	}
	if err := mutate(job); err != nil {
		m.mu.Unlock()
		return err
	}
	job.UpdatedAt = time.Now()
	cp := *job
	m.mu.Unlock()

	select {
	case m.updates <- cp:
	default:
	}
	return nil
}
