package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"prism/internal/analysis"
)

// FileStore persists history as a JSON array on disk. The file is loaded
// once and rewritten after every mutation.
type FileStore struct {
	path string

	loadOnce sync.Once
	mu       sync.Mutex
	entries  []analysis.HistoryEntry
}

func NewFile(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var rows []analysis.HistoryEntry
		if err := json.Unmarshal(b, &rows); err != nil {
			return
		}
		if len(rows) > MaxEntries {
			rows = rows[:MaxEntries]
		}
		s.entries = rows
	})
}

// flush writes the current entries. Caller holds s.mu.
func (s *FileStore) flush() error {
	b, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("history encode: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("history dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("history write: %w", err)
	}
	return nil
}

func (s *FileStore) Save(_ context.Context, entry analysis.HistoryEntry) error {
	s.load()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = insert(s.entries, entry)
	return s.flush()
}

func (s *FileStore) List(_ context.Context) ([]analysis.HistoryEntry, error) {
	s.load()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]analysis.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.load()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = remove(s.entries, id)
	return s.flush()
}

func (s *FileStore) Clear(_ context.Context) error {
	s.load()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.flush()
}
