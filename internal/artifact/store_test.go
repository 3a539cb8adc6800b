package artifact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGetList(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Put(ctx, "analysis-1", "report.md", []byte("# report")))
	require.NoError(t, s.Put(ctx, "analysis-1", "source/paper.txt", []byte("text")))
	require.NoError(t, s.Put(ctx, "analysis-2", "report.md", []byte("other")))

	got, err := s.Get(ctx, "analysis-1", "report.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("# report"), got)

	paths, err := s.List(ctx, "analysis-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"report.md", "source/paper.txt"}, paths)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemory()
	_, err := s.Get(context.Background(), "nope", "report.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RequiresIDAndPath(t *testing.T) {
	s := NewMemory()
	assert.Error(t, s.Put(context.Background(), "", "p", nil))
	assert.Error(t, s.Put(context.Background(), "id", "", nil))
}

func TestObjectKey_NormalizesLeadingSlash(t *testing.T) {
	assert.Equal(t, "id/a/b.md", objectKey("id", "/a/b.md"))
	assert.Equal(t, "id/a.md", objectKey(" id ", " a.md "))
}
