package cache

import (
	"context"
	"sync"
)

// MemoryStore is an unbounded in-process store. Entries live as long as
// the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	stats   Stats
}

// Stats counts store traffic.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// HitRatio is hits over lookups, or zero before the first lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.entries[key]
	if !ok {
		m.stats.Misses++
		return nil, false, nil
	}
	m.stats.Hits++
	return v, true, nil
}

// Set implements Store. The first published value for a key wins.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; ok {
		return nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.entries[key] = cp
	return nil
}

// Stats returns a snapshot of the counters.
func (m *MemoryStore) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.stats
	s.Entries = len(m.entries)
	return s
}
