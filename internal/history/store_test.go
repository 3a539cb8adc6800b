package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prism/internal/analysis"
)

func entry(id, title string, ts int64) analysis.HistoryEntry {
	return analysis.HistoryEntry{
		ID:        id,
		Title:     title,
		FileName:  title + ".txt",
		Timestamp: ts,
		Result:    analysis.Result{Title: title},
	}
}

func TestMemoryStore_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Save(ctx, entry("1", "First", 1)))
	require.NoError(t, s.Save(ctx, entry("2", "Second", 2)))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Second", got[0].Title)
	assert.Equal(t, "First", got[1].Title)
}

func TestMemoryStore_DedupesByTitle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Save(ctx, entry("1", "Same Paper", 1)))
	require.NoError(t, s.Save(ctx, entry("2", "Other", 2)))
	require.NoError(t, s.Save(ctx, entry("3", "same paper", 3)))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].ID, "newer entry replaces the older one with the same title")
	assert.Equal(t, "Other", got[1].Title)
}

func TestMemoryStore_CapsAtMaxEntries(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	for i := 0; i < MaxEntries+5; i++ {
		require.NoError(t, s.Save(ctx, entry(fmt.Sprint(i), fmt.Sprintf("Paper %d", i), int64(i))))
	}
	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, MaxEntries)
	assert.Equal(t, fmt.Sprintf("Paper %d", MaxEntries+4), got[0].Title)
}

func TestMemoryStore_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Save(ctx, entry("1", "A", 1)))
	require.NoError(t, s.Save(ctx, entry("2", "B", 2)))

	require.NoError(t, s.Delete(ctx, "1"))
	got, _ := s.List(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Title)

	require.NoError(t, s.Clear(ctx))
	got, _ = s.List(ctx)
	assert.Empty(t, got)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")

	s1 := NewFile(path)
	require.NoError(t, s1.Save(ctx, entry("1", "Persisted", 1)))

	s2 := NewFile(path)
	got, err := s2.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Persisted", got[0].Title)
	assert.Equal(t, "Persisted", got[0].Result.Title)
}

func TestFileStore_AppliesSameRulesAsMemory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	s := NewFile(path)

	for i := 0; i < MaxEntries+2; i++ {
		require.NoError(t, s.Save(ctx, entry(fmt.Sprint(i), fmt.Sprintf("P%d", i), int64(i))))
	}
	require.NoError(t, s.Save(ctx, entry("dup", fmt.Sprintf("P%d", MaxEntries+1), 99)))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, MaxEntries)
	assert.Equal(t, "dup", got[0].ID)
}

func TestNewFromEnv_FallsBackToMemory(t *testing.T) {
	s := NewFromEnv("", "")
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)
}

func TestNewFromEnv_PrefersFileWhenPathSet(t *testing.T) {
	s := NewFromEnv("", filepath.Join(t.TempDir(), "h.json"))
	_, ok := s.(*FileStore)
	assert.True(t, ok)
}

func TestNewFromEnv_UnreachablePostgresFallsBack(t *testing.T) {
	// An unparsable DSN fails at open, before any network dial.
	s := NewFromEnv("definitely not a dsn", filepath.Join(t.TempDir(), "h.json"))
	_, ok := s.(*FileStore)
	assert.True(t, ok, "bad postgres config must fall back to the file store")
}
