package history

import (
	"context"
	"sync"

	"prism/internal/analysis"
)

// MemoryStore keeps history in process memory. Used in tests and as the
// fallback when no file path or database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []analysis.HistoryEntry
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, entry analysis.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = insert(s.entries, entry)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]analysis.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]analysis.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = remove(s.entries, id)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}
