package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/devraulu/normurl/pkg/normalize"
	"github.com/devraulu/normurl/pkg/storage"
	"golang.org/x/sync/errgroup"
)

type Runner struct {
	Normalizer *normalize.Normalizer
	Workers    int
	// Recorder is optional.
	Recorder Recorder
}

// Run normalizes inputs concurrently. Results keep the order of inputs.
// When ctx is cancelled the remaining inputs are reported with ctx.Err().
func (r *Runner) Run(ctx context.Context, inputs []string) ([]Result, Stats) {
	stats := Stats{StartTime: time.Now()}
	results := make([]Result, len(inputs))
	done := make([]bool, len(inputs))

	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan int, workers)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range inputs {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for id := 0; id < workers; id++ {
		g.Go(func() error {
			slog.Debug("worker started", slog.Int("id", id))
			for i := range jobs {
				results[i] = r.process(gctx, inputs[i])
				done[i] = true
			}
			return nil
		})
	}

	_ = g.Wait()

	for i := range results {
		res := &results[i]
		if !done[i] {
			res.Input = inputs[i]
			res.Error = context.Cause(ctx)
		}
		if res.Error != nil {
			stats.Errored++
			continue
		}
		stats.Processed++
		if res.New {
			stats.Stored++
		}
	}
	stats.EndTime = time.Now()

	slog.Info("batch complete",
		slog.Int("processed", stats.Processed),
		slog.Int("errored", stats.Errored),
		slog.Int("stored", stats.Stored),
		slog.Duration("elapsed", stats.Elapsed()),
		slog.Float64("urls_per_sec", stats.PerSecond()),
	)

	return results, stats
}

func (r *Runner) process(ctx context.Context, input string) Result {
	res := Result{
		Input: input,
	}

	if err := ctx.Err(); err != nil {
		res.Error = err
		return res
	}

	normalized, err := r.Normalizer.Normalize(input)
	if err != nil {
		slog.Debug("normalize failed", slog.String("url", input), slog.Any("err", err))
		res.Error = err
		return res
	}
	res.Normalized = normalized

	if r.Recorder == nil {
		return res
	}

	isNew, err := r.Recorder.SaveURL(ctx, storage.Record{
		Original:   input,
		Normalized: normalized,
		Host:       r.Normalizer.Host(normalized),
		SeenAt:     time.Now(),
	})
	if err != nil {
		slog.Error("failed to save url", slog.String("url", normalized), slog.Any("err", err))
		res.Error = err
		return res
	}
	res.New = isNew
	return res
}
