package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("url not found")

// Record is one canonical URL in the registry.
type Record struct {
	ID         int64
	Original   string
	Normalized string
	Host       string
	// SeenAt is the observation time passed to SaveURL.
	SeenAt    time.Time
	FirstSeen time.Time
	LastSeen  time.Time
	SeenCount int
}

type HostCount struct {
	Host  string
	Count int
}

type Storage interface {
	// SaveURL inserts rec or bumps its seen count. It reports whether the
	// normalized URL was new.
	SaveURL(ctx context.Context, rec Record) (bool, error)
	Lookup(ctx context.Context, normalized string) (Record, error)
	// ListByHost and TopHosts return every row when limit <= 0.
	ListByHost(ctx context.Context, host string, limit int) ([]Record, error)
	TopHosts(ctx context.Context, limit int) ([]HostCount, error)
	Close() error
}
