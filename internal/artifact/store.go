package artifact

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned when an artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store keeps per-analysis blobs: uploaded source documents and exported
// reports, keyed by analysis id and a relative path.
type Store interface {
	Put(ctx context.Context, analysisID, path string, content []byte) error
	Get(ctx context.Context, analysisID, path string) ([]byte, error)
	List(ctx context.Context, analysisID string) ([]string, error)
}

// MemoryStore is the in-process fallback when no object storage is
// configured.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, analysisID, path string, content []byte) error {
	if analysisID == "" || path == "" {
		return errors.New("analysis id and path are required")
	}
	s.mu.Lock()
	s.blobs[objectKey(analysisID, path)] = content
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, analysisID, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[objectKey(analysisID, path)]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) List(_ context.Context, analysisID string) ([]string, error) {
	prefix := strings.TrimSpace(analysisID) + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	var paths []string
	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			paths = append(paths, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func objectKey(analysisID, path string) string {
	normalized := strings.TrimLeft(strings.TrimSpace(path), "/")
	return strings.TrimSpace(analysisID) + "/" + normalized
}
