package llmclient

import (
	"os"
	"strings"
	"sync"
)

// KeyProvider hands out API credentials. The rotation policy is injectable
// so it can be swapped or faked in tests; credential values are deployment
// configuration, not design.
type KeyProvider interface {
	Next() string
}

// RoundRobinKeys rotates through a fixed pool on every call (not only on
// failure) to spread load across credentials.
type RoundRobinKeys struct {
	mu   sync.Mutex
	keys []string
	idx  int
}

func NewRoundRobinKeys(keys ...string) *RoundRobinKeys {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return &RoundRobinKeys{keys: out}
}

// KeysFromEnv builds a pool from GEMINI_API_KEYS (comma-separated) with
// GEMINI_API_KEY as a single-key fallback.
func KeysFromEnv() *RoundRobinKeys {
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEYS")); v != "" {
		return NewRoundRobinKeys(strings.Split(v, ",")...)
	}
	return NewRoundRobinKeys(os.Getenv("GEMINI_API_KEY"))
}

func (r *RoundRobinKeys) Len() int { return len(r.keys) }

func (r *RoundRobinKeys) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return ""
	}
	k := r.keys[r.idx]
	r.idx = (r.idx + 1) % len(r.keys)
	return k
}
