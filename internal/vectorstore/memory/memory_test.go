package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfqa/internal/domain"
)

func chunk(i int) domain.Chunk {
	return domain.Chunk{ChunkID: string(rune('a' + i)), Index: i}
}

func TestInit_InvalidDimension(t *testing.T) {
	require.Error(t, NewStorage().Init(0))
}

func TestUpsert_Validates(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.Init(2))
	require.Error(t, s.Upsert([]domain.Chunk{chunk(0)}, nil))
	require.Error(t, s.Upsert([]domain.Chunk{chunk(0)}, [][]float64{{1, 2, 3}}))
	assert.Equal(t, 0, s.Len())
}

func TestSearch_OrdersByDescendingSimilarity(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.Init(2))
	require.NoError(t, s.Upsert(
		[]domain.Chunk{chunk(0), chunk(1), chunk(2)},
		[][]float64{{0, 1}, {1, 0}, {1, 1}},
	))

	res, err := s.Search([]float64{0.9, 0.1}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, 1, res[0].Chunk.Index)
	assert.Equal(t, 2, res[1].Chunk.Index)
	assert.Equal(t, 0, res[2].Chunk.Index)
	assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
	assert.GreaterOrEqual(t, res[1].Score, res[2].Score)
}

func TestSearch_TiesKeepChunkOrder(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.Init(2))
	chunks := make([]domain.Chunk, 6)
	vectors := make([][]float64, 6)
	for i := range chunks {
		chunks[i] = chunk(i)
		// Same direction, different magnitudes: identical cosine.
		vectors[i] = []float64{float64(i + 1), 0}
	}
	vectors[4] = []float64{0, 1}
	require.NoError(t, s.Upsert(chunks, vectors))

	res, err := s.Search([]float64{1, 0}, 4)
	require.NoError(t, err)
	got := make([]int, len(res))
	for i, r := range res {
		got[i] = r.Chunk.Index
	}
	assert.Equal(t, []int{0, 1, 2, 3}, got)
}

func TestSearch_TopKBounds(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.Init(2))
	require.NoError(t, s.Upsert([]domain.Chunk{chunk(0), chunk(1)}, [][]float64{{1, 0}, {0, 1}}))

	res, err := s.Search([]float64{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, res, 2)

	_, err = s.Search([]float64{1, 0, 0}, 1)
	require.Error(t, err)
}

func TestClear(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.Init(1))
	require.NoError(t, s.Upsert([]domain.Chunk{chunk(0)}, [][]float64{{1}}))
	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Len())
}
