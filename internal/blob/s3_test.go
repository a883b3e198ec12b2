package blob

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorFileQueuesPayload(t *testing.T) {
	m := &Mirror{
		queue:    make(chan uploadReq, 2),
		readFile: func(string) ([]byte, error) { return []byte("artifact"), nil },
	}

	require.NoError(t, m.MirrorFile(context.Background(), "converted/a.pdf", "/out/a.pdf"))

	req := <-m.queue
	assert.Equal(t, "converted/a.pdf", req.key)
	assert.Equal(t, []byte("artifact"), req.payload)
}

func TestMirrorFileQueueFull(t *testing.T) {
	m := &Mirror{
		queue:    make(chan uploadReq, 1),
		readFile: func(string) ([]byte, error) { return []byte("x"), nil },
	}

	require.NoError(t, m.MirrorFile(context.Background(), "k1", "p1"))
	assert.ErrorIs(t, m.MirrorFile(context.Background(), "k2", "p2"), ErrQueueFull)
}

func TestMirrorFileReadError(t *testing.T) {
	readErr := errors.New("gone")
	m := &Mirror{
		queue:    make(chan uploadReq, 1),
		readFile: func(string) ([]byte, error) { return nil, readErr },
	}

	err := m.MirrorFile(context.Background(), "k", "/missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, readErr)
	assert.Empty(t, m.queue)
}

func TestBackoffDelayGrows(t *testing.T) {
	m := &Mirror{retryBaseDelay: 100}

	d1 := m.backoffDelay(1)
	d2 := m.backoffDelay(2)
	d3 := m.backoffDelay(3)
	assert.Less(t, d1, d2)
	assert.Less(t, d2, d3)
}
