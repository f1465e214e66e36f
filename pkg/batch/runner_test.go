package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/devraulu/normurl/pkg/normalize"
	"github.com/devraulu/normurl/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunner(t *testing.T, workers int) *Runner {
	t.Helper()
	n, err := normalize.New(normalize.DefaultOptions())
	require.NoError(t, err)
	return &Runner{Normalizer: n, Workers: workers}
}

func TestRunPreservesOrder(t *testing.T) {
	r := newRunner(t, 4)

	inputs := make([]string, 100)
	for i := range inputs {
		inputs[i] = fmt.Sprintf("www.example.com/page/%d/", i)
	}

	results, stats := r.Run(context.Background(), inputs)
	require.Len(t, results, len(inputs))
	for i, res := range results {
		assert.Equal(t, inputs[i], res.Input)
		assert.Equal(t, fmt.Sprintf("http://example.com/page/%d", i), res.Normalized)
		assert.NoError(t, res.Error)
	}
	assert.Equal(t, 100, stats.Processed)
	assert.Zero(t, stats.Errored)
	assert.False(t, stats.EndTime.Before(stats.StartTime))
}

func TestRunCountsErrors(t *testing.T) {
	r := newRunner(t, 0)

	results, stats := r.Run(context.Background(), []string{"example.com", "http://", "/relative"})
	assert.NoError(t, results[0].Error)
	assert.ErrorIs(t, results[1].Error, normalize.ErrParse)
	assert.ErrorIs(t, results[2].Error, normalize.ErrParse)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 2, stats.Errored)
}

func TestRunCancelled(t *testing.T) {
	r := newRunner(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, stats := r.Run(ctx, []string{"a.com", "b.com", "c.com"})
	require.Len(t, results, 3)
	for i, res := range results {
		assert.ErrorIs(t, res.Error, context.Canceled, "result %d", i)
	}
	assert.Equal(t, 3, stats.Errored)
}

func TestRunRecords(t *testing.T) {
	r := newRunner(t, 3)
	store := storage.NewMemoryStorage()
	r.Recorder = store

	results, stats := r.Run(context.Background(), []string{
		"example.com/a",
		"http://www.example.com/a/",
		"example.org",
	})
	require.Len(t, results, 3)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 2, stats.Stored)

	rec, err := store.Lookup(context.Background(), "http://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.SeenCount)
	assert.Equal(t, "example.com", rec.Host)
}

type failingRecorder struct{}

func (failingRecorder) SaveURL(context.Context, storage.Record) (bool, error) {
	return false, errors.New("db down")
}

func TestRunRecorderFailure(t *testing.T) {
	r := newRunner(t, 1)
	r.Recorder = failingRecorder{}

	results, stats := r.Run(context.Background(), []string{"example.com"})
	assert.EqualError(t, results[0].Error, "db down")
	assert.Equal(t, "http://example.com", results[0].Normalized)
	assert.Equal(t, 1, stats.Errored)
}

func TestStats(t *testing.T) {
	s := Stats{StartTime: time.Now().Add(-2 * time.Second), EndTime: time.Now(), Processed: 10}
	assert.InDelta(t, 5.0, s.PerSecond(), 0.5)

	var zero Stats
	zero.StartTime = time.Now()
	zero.EndTime = zero.StartTime
	assert.Zero(t, zero.PerSecond())
}
