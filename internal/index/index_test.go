package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfqa/internal/domain"
	"pdfqa/internal/embedding/tfidf"
	"pdfqa/internal/vectorstore"
	"pdfqa/internal/vectorstore/memory"
)

// keywordEmbedder maps text onto fixed axes by keyword presence.
type keywordEmbedder struct {
	axes   []string
	calls  int
	failAt int
	dims   map[int]int
}

func (k *keywordEmbedder) Name() string                 { return "keyword" }
func (k *keywordEmbedder) Prepare(corpus []string) error { return nil }

func (k *keywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	k.calls++
	if k.failAt > 0 && k.calls == k.failAt {
		return nil, errors.New("embedding service down")
	}
	n := len(k.axes)
	if d, ok := k.dims[k.calls]; ok {
		n = d
	}
	v := make([]float64, n)
	for i, axis := range k.axes {
		if i < n && strings.Contains(text, axis) {
			v[i] = 1
		}
	}
	return v, nil
}

func chunks(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		out[i] = domain.Chunk{DocumentID: "doc", Index: i, Text: t}
	}
	return out
}

func TestBuild_EmbedsEveryChunk(t *testing.T) {
	emb := &keywordEmbedder{axes: []string{"go", "rust"}}
	ix, err := NewIndexer(func() domain.Embedder { return emb }).Build(context.Background(), "doc", chunks("go code", "rust code", "go and rust"))
	require.NoError(t, err)
	assert.Equal(t, 3, emb.calls)
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, 2, ix.Dimension())
	assert.Equal(t, "doc", ix.DocumentID())
}

func TestBuild_FailureRejectsDocument(t *testing.T) {
	emb := &keywordEmbedder{axes: []string{"go"}, failAt: 2}
	ix, err := NewIndexer(func() domain.Embedder { return emb }).Build(context.Background(), "doc", chunks("a", "b", "c"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexBuild)
	assert.Nil(t, ix)
}

func TestBuild_DimensionMismatch(t *testing.T) {
	emb := &keywordEmbedder{axes: []string{"go", "rust"}, dims: map[int]int{2: 3}}
	_, err := NewIndexer(func() domain.Embedder { return emb }).Build(context.Background(), "doc", chunks("a", "b"))
	assert.ErrorIs(t, err, domain.ErrIndexBuild)
}

func TestBuild_NoChunks(t *testing.T) {
	_, err := NewIndexer(func() domain.Embedder { return &keywordEmbedder{} }).Build(context.Background(), "doc", nil)
	assert.ErrorIs(t, err, domain.ErrIndexBuild)
}

func TestSearch_RanksAndBreaksTies(t *testing.T) {
	emb := &keywordEmbedder{axes: []string{"go", "rust"}}
	ix, err := NewIndexer(func() domain.Embedder { return emb }).Build(context.Background(),
		"doc", chunks("rust only", "go first", "python", "go second", "go third"))
	require.NoError(t, err)

	res, err := ix.Search(context.Background(), "go", 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []int{1, 3, 4}, []int{res[0].Chunk.Index, res[1].Chunk.Index, res[2].Chunk.Index})
}

func TestSearch_LexicalFallbackOnZeroVector(t *testing.T) {
	emb := &keywordEmbedder{axes: []string{"nothing-matches"}}
	ix, err := NewIndexer(func() domain.Embedder { return emb }).Build(context.Background(),
		"doc", chunks("apples and pears", "bananas", "pears again"))
	require.NoError(t, err)

	res, err := ix.Search(context.Background(), "pears", 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, 2, res[0].Chunk.Index)
	assert.Equal(t, 0, res[1].Chunk.Index)
}

func TestSearch_QueryEmbeddingError(t *testing.T) {
	emb := &keywordEmbedder{axes: []string{"go"}, failAt: 2}
	ix, err := NewIndexer(func() domain.Embedder { return emb }).Build(context.Background(), "doc", chunks("go"))
	require.NoError(t, err)

	_, err = ix.Search(context.Background(), "go", 1)
	require.Error(t, err)
}

func TestIndex_KeepsItsOwnTFIDFSpace(t *testing.T) {
	indexer := NewIndexer(func() domain.Embedder { return tfidf.NewEmbedder() })
	first, err := indexer.Build(context.Background(), "a", chunks("gophers burrow underground", "eagles soar high"))
	require.NoError(t, err)
	_, err = indexer.Build(context.Background(), "b", chunks("completely different vocabulary here"))
	require.NoError(t, err)

	res, err := first.Search(context.Background(), "where do gophers burrow", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 0, res[0].Chunk.Index)
	assert.Greater(t, res[0].Score, 0.0)
}

type spyStore struct {
	vectorstore.Storage
	cleared bool
}

func (s *spyStore) Clear() error {
	s.cleared = true
	return s.Storage.Clear()
}

func TestRelease_ClearsStore(t *testing.T) {
	spy := &spyStore{Storage: memory.NewStorage()}
	emb := &keywordEmbedder{axes: []string{"go"}}
	ix, err := NewIndexer(func() domain.Embedder { return emb },
		WithStore(func() vectorstore.Storage { return spy }),
	).Build(context.Background(), "doc", chunks("go"))
	require.NoError(t, err)

	require.NoError(t, ix.Release())
	assert.True(t, spy.cleared)
}
