package batch

import (
	"context"
	"time"

	"github.com/devraulu/normurl/pkg/storage"
)

type Result struct {
	Input      string
	Normalized string
	Error      error
	// New is set when a Recorder was configured and the URL was not stored yet.
	New bool
}

// Recorder persists canonical URLs. storage.Storage satisfies it.
type Recorder interface {
	SaveURL(ctx context.Context, rec storage.Record) (bool, error)
}

type Stats struct {
	StartTime time.Time
	EndTime   time.Time
	Processed int
	Errored   int
	Stored    int
}

func (s *Stats) Elapsed() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

func (s *Stats) PerSecond() float64 {
	elapsed := s.Elapsed().Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(s.Processed) / elapsed
}
