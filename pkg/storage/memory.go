package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is a process-local Storage used when no DSN is configured.
type MemoryStorage struct {
	mu      sync.Mutex
	nextID  int64
	records map[string]*Record
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string]*Record)}
}

func (s *MemoryStorage) SaveURL(_ context.Context, rec Record) (bool, error) {
	seenAt := rec.SeenAt
	if seenAt.IsZero() {
		seenAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.records[rec.Normalized]; ok {
		r.SeenCount++
		if seenAt.After(r.LastSeen) {
			r.LastSeen = seenAt
		}
		return false, nil
	}

	s.nextID++
	s.records[rec.Normalized] = &Record{
		ID:         s.nextID,
		Original:   rec.Original,
		Normalized: rec.Normalized,
		Host:       rec.Host,
		FirstSeen:  seenAt,
		LastSeen:   seenAt,
		SeenCount:  1,
	}
	return true, nil
}

func (s *MemoryStorage) Lookup(_ context.Context, normalized string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[normalized]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *r, nil
}

func (s *MemoryStorage) ListByHost(_ context.Context, host string, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, r := range s.records {
		if r.Host == host {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStorage) TopHosts(_ context.Context, limit int) ([]HostCount, error) {
	s.mu.Lock()
	counts := make(map[string]int)
	for _, r := range s.records {
		counts[r.Host]++
	}
	s.mu.Unlock()

	out := make([]HostCount, 0, len(counts))
	for host, n := range counts {
		out = append(out, HostCount{Host: host, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Host < out[j].Host
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
