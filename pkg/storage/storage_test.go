package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStorage runs the same contract against every implementation.
func exerciseStorage(t *testing.T, s Storage) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	isNew, err := s.SaveURL(ctx, Record{
		Original:   "www.example.com/a/",
		Normalized: "http://example.com/a",
		Host:       "example.com",
		SeenAt:     t0,
	})
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = s.SaveURL(ctx, Record{
		Original:   "HTTP://example.com/a",
		Normalized: "http://example.com/a",
		Host:       "example.com",
		SeenAt:     t0.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, isNew)

	_, err = s.SaveURL(ctx, Record{Original: "example.com/b", Normalized: "http://example.com/b", Host: "example.com", SeenAt: t0})
	require.NoError(t, err)
	_, err = s.SaveURL(ctx, Record{Original: "example.org", Normalized: "http://example.org", Host: "example.org", SeenAt: t0})
	require.NoError(t, err)

	r, err := s.Lookup(ctx, "http://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "www.example.com/a/", r.Original)
	assert.Equal(t, 2, r.SeenCount)
	assert.True(t, r.FirstSeen.Equal(t0))
	assert.True(t, r.LastSeen.Equal(t0.Add(time.Hour)))

	_, err = s.Lookup(ctx, "http://example.com/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	records, err := s.ListByHost(ctx, "example.com", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "http://example.com/a", records[0].Normalized)

	records, err = s.ListByHost(ctx, "example.com", 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = s.ListByHost(ctx, "example.com", 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	hosts, err := s.TopHosts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []HostCount{{Host: "example.com", Count: 2}}, hosts)

	hosts, err = s.TopHosts(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []HostCount{{Host: "example.com", Count: 2}, {Host: "example.org", Count: 1}}, hosts)
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	defer s.Close()
	exerciseStorage(t, s)
}

func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("NORMURL_TEST_DSN")
	if dsn == "" {
		t.Skip("NORMURL_TEST_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, RollbackMigrations(db))
	require.NoError(t, RunMigrations(db))

	s := NewPostgresStorage(db)
	defer s.Close()
	exerciseStorage(t, s)
}
