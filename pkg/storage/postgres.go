package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// Open connects to dsn, applies pending migrations and returns the store.
func Open(ctx context.Context, dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("couldn't open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("couldn't reach database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return NewPostgresStorage(db), nil
}

func (s *PostgresStorage) SaveURL(ctx context.Context, rec Record) (bool, error) {
	seenAt := rec.SeenAt
	if seenAt.IsZero() {
		seenAt = time.Now()
	}

	var id int64
	var inserted bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO urls (normalized_url, original_url, host, first_seen, last_seen, seen_count)
		VALUES ($1, $2, $3, $4, $4, 1)
		ON CONFLICT (normalized_url) DO UPDATE
		SET last_seen = GREATEST(urls.last_seen, EXCLUDED.last_seen), seen_count = urls.seen_count + 1
		RETURNING id, (xmax = 0) AS inserted`,
		rec.Normalized, rec.Original, rec.Host, seenAt,
	).Scan(&id, &inserted)

	if err != nil {
		return false, err
	}

	slog.Debug("saved url", "id", id, "url", rec.Normalized, "new", inserted)
	return inserted, nil
}

func (s *PostgresStorage) Lookup(ctx context.Context, normalized string) (Record, error) {
	var r Record
	err := s.db.QueryRowContext(ctx, `
		SELECT id, original_url, normalized_url, host, first_seen, last_seen, seen_count
		FROM urls
		WHERE normalized_url = $1`,
		normalized,
	).Scan(&r.ID, &r.Original, &r.Normalized, &r.Host, &r.FirstSeen, &r.LastSeen, &r.SeenCount)

	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		slog.Error("lookup failed", "url", normalized, "err", err)
		return Record{}, err
	}
	return r, nil
}

func (s *PostgresStorage) ListByHost(ctx context.Context, host string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, original_url, normalized_url, host, first_seen, last_seen, seen_count
		FROM urls
		WHERE host = $1
		ORDER BY first_seen, id
		LIMIT $2`,
		host, limitArg(limit),
	)
	if err != nil {
		slog.Error("list by host failed", "host", host, "err", err)
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Original, &r.Normalized, &r.Host, &r.FirstSeen, &r.LastSeen, &r.SeenCount); err != nil {
			slog.Error("list by host scan failed", "host", host, "err", err)
			return nil, err
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		slog.Error("list by host rows iteration failed", "host", host, "err", err)
		return nil, err
	}

	return records, nil
}

func (s *PostgresStorage) TopHosts(ctx context.Context, limit int) ([]HostCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT host, COUNT(*) AS n
		FROM urls
		GROUP BY host
		ORDER BY n DESC, host
		LIMIT $1`,
		limitArg(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hosts []HostCount
	for rows.Next() {
		var h HostCount
		if err := rows.Scan(&h.Host, &h.Count); err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

// limitArg maps a non-positive limit to NULL, which Postgres reads as
// LIMIT ALL.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
