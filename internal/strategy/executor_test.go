package strategy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trunov/converthub/internal/routing"
)

type stubStrategy struct {
	id routing.StrategyID
	fn func(ctx context.Context, inputPath, outputPath string) error
}

func (s *stubStrategy) ID() routing.StrategyID { return s.id }

func (s *stubStrategy) Convert(ctx context.Context, inputPath, outputPath string) error {
	return s.fn(ctx, inputPath, outputPath)
}

func writeOutput(content string) func(context.Context, string, string) error {
	return func(_ context.Context, _, outputPath string) error {
		return os.WriteFile(outputPath, []byte(content), 0644)
	}
}

func TestExecuteSuccess(t *testing.T) {
	exec := NewExecutor(NewRegistry(&stubStrategy{id: "stub", fn: writeOutput("converted")}))
	out := filepath.Join(t.TempDir(), "out.txt")

	ferr := exec.Execute(context.Background(), "stub", "in", out, time.Second)
	require.Nil(t, ferr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "converted", string(data))
}

func TestExecuteUnregisteredStrategy(t *testing.T) {
	exec := NewExecutor(NewRegistry())

	ferr := exec.Execute(context.Background(), "ghost", "in", "out", time.Second)
	require.NotNil(t, ferr)
	assert.Equal(t, KindToolMissing, ferr.Kind)
	assert.Equal(t, routing.StrategyID("ghost"), ferr.Strategy)
}

func TestExecuteTimeout(t *testing.T) {
	slow := &stubStrategy{id: "slow", fn: func(ctx context.Context, _, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	exec := NewExecutor(NewRegistry(slow))
	out := filepath.Join(t.TempDir(), "out.txt")

	ferr := exec.Execute(context.Background(), "slow", "in", out, 20*time.Millisecond)
	require.NotNil(t, ferr)
	assert.Equal(t, KindTimeout, ferr.Kind)
}

func TestExecuteRemovesPartialOutputOnFailure(t *testing.T) {
	partial := &stubStrategy{id: "partial", fn: func(_ context.Context, _, outputPath string) error {
		if err := os.WriteFile(outputPath, []byte("half of the"), 0644); err != nil {
			return err
		}
		return errors.New("disk on fire")
	}}
	exec := NewExecutor(NewRegistry(partial))
	out := filepath.Join(t.TempDir(), "out.txt")

	ferr := exec.Execute(context.Background(), "partial", "in", out, time.Second)
	require.NotNil(t, ferr)
	assert.Equal(t, KindExecutionFailed, ferr.Kind)

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestExecuteRejectsEmptyOutput(t *testing.T) {
	exec := NewExecutor(NewRegistry(&stubStrategy{id: "empty", fn: writeOutput("")}))
	out := filepath.Join(t.TempDir(), "out.txt")

	ferr := exec.Execute(context.Background(), "empty", "in", out, time.Second)
	require.NotNil(t, ferr)
	assert.Equal(t, KindExecutionFailed, ferr.Kind)

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestExecuteRejectsMissingOutput(t *testing.T) {
	noop := &stubStrategy{id: "noop", fn: func(context.Context, string, string) error { return nil }}
	exec := NewExecutor(NewRegistry(noop))
	out := filepath.Join(t.TempDir(), "out.txt")

	ferr := exec.Execute(context.Background(), "noop", "in", out, time.Second)
	require.NotNil(t, ferr)
	assert.Equal(t, KindExecutionFailed, ferr.Kind)
}

func TestExecutePreservesStrategyClassification(t *testing.T) {
	invalid := &stubStrategy{id: "picky", fn: func(context.Context, string, string) error {
		return &Error{Strategy: "picky", Kind: KindInvalidInput, Err: errors.New("not a real document")}
	}}
	exec := NewExecutor(NewRegistry(invalid))
	out := filepath.Join(t.TempDir(), "out.txt")

	ferr := exec.Execute(context.Background(), "picky", "in", out, time.Second)
	require.NotNil(t, ferr)
	assert.Equal(t, KindInvalidInput, ferr.Kind)
}

func TestExecuteMissingBinary(t *testing.T) {
	missing := &commandStrategy{
		id:   "missing-tool",
		bin:  "definitely-not-installed-anywhere",
		args: func(in, out string) []string { return []string{in, out} },
	}
	exec := NewExecutor(NewRegistry(missing))
	out := filepath.Join(t.TempDir(), "out.txt")

	ferr := exec.Execute(context.Background(), "missing-tool", "in", out, time.Second)
	require.NotNil(t, ferr)
	assert.Equal(t, KindToolMissing, ferr.Kind)
}
