package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trunov/converthub/internal/contentstore"
	"github.com/trunov/converthub/internal/entities"
	"github.com/trunov/converthub/internal/jobstore"
)

func TestCleanupRemovesOnlyUnreferenced(t *testing.T) {
	ctx := context.Background()
	content, err := contentstore.New(t.TempDir())
	require.NoError(t, err)
	m := NewManager(content, jobstore.NewMemory())

	kept, err := content.Put([]byte("live input"))
	require.NoError(t, err)
	_, err = content.Acquire(kept)
	require.NoError(t, err)

	_, err = content.Put([]byte("dead input"))
	require.NoError(t, err)

	res := m.Cleanup(ctx)
	assert.Equal(t, 1, res.EntriesRemoved)
	assert.Equal(t, int64(len("dead input")), res.BytesFreed)

	_, err = content.Entry(kept)
	assert.NoError(t, err)
}

func TestCleanupIsIdempotent(t *testing.T) {
	ctx := context.Background()
	content, err := contentstore.New(t.TempDir())
	require.NoError(t, err)
	m := NewManager(content, jobstore.NewMemory())

	_, err = content.Put([]byte("once"))
	require.NoError(t, err)

	assert.Equal(t, 1, m.Cleanup(ctx).EntriesRemoved)
	assert.Equal(t, 0, m.Cleanup(ctx).EntriesRemoved)
}

func TestStatsAggregatesContentAndJobs(t *testing.T) {
	ctx := context.Background()
	content, err := contentstore.New(t.TempDir())
	require.NoError(t, err)
	jobs := jobstore.NewMemory()
	m := NewManager(content, jobs)

	hash, err := content.Put([]byte("1234"))
	require.NoError(t, err)
	_, err = content.Acquire(hash)
	require.NoError(t, err)

	require.NoError(t, jobs.Create(ctx, &entities.Job{ID: "a", InputHash: hash}))
	require.NoError(t, jobs.Create(ctx, &entities.Job{ID: "b", InputHash: hash}))
	require.NoError(t, jobs.MarkConverting(ctx, "b"))

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Content.EntryCount)
	assert.Equal(t, int64(4), stats.Content.TotalBytes)
	assert.Equal(t, 1, stats.Content.TotalRefs)
	assert.Equal(t, 1, stats.JobsByStatus[entities.StatusPending])
	assert.Equal(t, 1, stats.JobsByStatus[entities.StatusConverting])
}
