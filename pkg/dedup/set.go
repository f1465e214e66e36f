package dedup

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/devraulu/normurl/pkg/normalize"
)

type Entry struct {
	Original   string
	Normalized string
	Host       string
	SeenCount  int
}

type HostBucket struct {
	Host string
	URLs []string
}

// Set keeps the first original seen for every canonical URL, bucketed by host.
type Set struct {
	n *normalize.Normalizer

	mu      sync.Mutex
	buckets map[string]*HostBucket
	seen    map[string]*Entry
	order   []string
}

func NewSet(n *normalize.Normalizer) *Set {
	return &Set{
		n:       n,
		buckets: make(map[string]*HostBucket),
		seen:    make(map[string]*Entry),
	}
}

// Add normalizes raw and records it. The bool is true when the canonical
// form had not been seen before.
func (s *Set) Add(raw string) (Entry, bool, error) {
	normalized, err := s.n.Normalize(raw)
	if err != nil {
		return Entry{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.seen[normalized]; ok {
		e.SeenCount++
		slog.Debug("dedup duplicate, skipping", slog.String("url", normalized), slog.String("original_url", raw))
		return *e, false, nil
	}

	host := s.n.Host(normalized)
	e := &Entry{
		Original:   raw,
		Normalized: normalized,
		Host:       host,
		SeenCount:  1,
	}
	s.seen[normalized] = e
	s.order = append(s.order, normalized)

	hb, ok := s.buckets[host]
	if !ok {
		hb = &HostBucket{
			Host: host,
		}
		s.buckets[host] = hb
	}
	hb.URLs = append(hb.URLs, normalized)

	slog.Debug("dedup add", slog.String("host", host), slog.String("url", normalized), slog.Int("bucket_len", len(hb.URLs)))
	return *e, true, nil
}

// Hosts returns the distinct hosts in lexical order.
func (s *Set) Hosts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	hosts := make([]string, 0, len(s.buckets))
	for host := range s.buckets {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

func (s *Set) Bucket(host string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	hb, ok := s.buckets[host]
	if !ok {
		return nil
	}
	return append([]string(nil), hb.URLs...)
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Entries returns a snapshot in first-seen order.
func (s *Set) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.seen[key])
	}
	return out
}
