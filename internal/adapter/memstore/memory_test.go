package memstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"repologic/internal/domain"
	"repologic/internal/port"
)

var (
	_ port.ChunkStore  = (*MemoryStore)(nil)
	_ port.VectorIndex = (*MemoryStore)(nil)
)

func TestMemoryStoreSegments(t *testing.T) {
	s := NewMemoryStore()

	has, err := s.Has("repo")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = s.Load("repo")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	segments := []domain.Segment{
		{ID: "1", FilePath: "a.go", StartLine: 7, EndLine: 10},
		{ID: "2", FilePath: "a.go", StartLine: 1, EndLine: 4},
		{ID: "3", FilePath: "a.go", StartLine: 4, EndLine: 7},
		{ID: "4", FilePath: "b.go", StartLine: 1, EndLine: 9},
	}
	require.NoError(t, s.Save("repo", segments))

	loaded, err := s.Load("repo")
	require.NoError(t, err)
	assert.Equal(t, segments, loaded)

	got, err := s.Overlapping("repo", "a.go", 5, 6)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	got, err = s.Overlapping("repo", "a.go", 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"2", "3", "1"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestMemoryStoreIndex(t *testing.T) {
	s := NewMemoryStore()
	assert.False(t, s.Exists("repo"))

	_, err := s.Query("repo", []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	segments := []domain.Segment{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	vectors := [][]float32{{0, 0}, {3, 4}, {1, 0}}
	require.NoError(t, s.Build("repo", segments, vectors, "m"))
	assert.True(t, s.Exists("repo"))

	results, err := s.Query("repo", []float32{0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Segment.ID)
	assert.Equal(t, "c", results[1].Segment.ID)
	assert.Equal(t, 25.0, results[2].Distance)

	stats, err := s.Stats("repo")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 2, stats.Dimension)

	err = s.Build("other", segments, vectors[:2], "m")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.False(t, s.Exists("other"))
}
