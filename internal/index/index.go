// Package index builds and searches the per-document vector index.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"pdfqa/internal/domain"
	"pdfqa/internal/textutil"
	"pdfqa/internal/vectorstore"
	"pdfqa/internal/vectorstore/memory"
)

// EmbedderFactory returns the embedder for a new index. Stateless remote
// embedders may return a shared instance; corpus-dependent ones must not.
type EmbedderFactory func() domain.Embedder

// Indexer embeds chunks and builds an Index.
type Indexer struct {
	newEmbedder EmbedderFactory
	newStore    func() vectorstore.Storage
	log         *zap.Logger
}

// Index is the immutable set of (chunk, vector) pairs for one document.
// It keeps the embedder it was built with so queries share its embedding space.
type Index struct {
	documentID string
	embedder   domain.Embedder
	store      vectorstore.Storage
	chunks     []domain.Chunk
	dimension  int
}

// Option configures the indexer.
type Option func(*Indexer)

// WithStore overrides the vector storage constructor (default: in-memory).
func WithStore(fn func() vectorstore.Storage) Option {
	return func(ix *Indexer) { ix.newStore = fn }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(ix *Indexer) {
		if log != nil {
			ix.log = log
		}
	}
}

func NewIndexer(newEmbedder EmbedderFactory, opts ...Option) *Indexer {
	ix := &Indexer{
		newEmbedder: newEmbedder,
		newStore:    func() vectorstore.Storage { return memory.NewStorage() },
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Build embeds every chunk. Any embedding failure rejects the whole document
// with ErrIndexBuild; a partial index is never returned.
func (ix *Indexer) Build(ctx context.Context, documentID string, chunks []domain.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to index", domain.ErrIndexBuild)
	}
	emb := ix.newEmbedder()
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	if err := emb.Prepare(texts); err != nil {
		return nil, fmt.Errorf("%w: prepare %s: %w", domain.ErrIndexBuild, emb.Name(), err)
	}

	vectors := make([][]float64, len(chunks))
	for i := range chunks {
		vec, err := emb.Embed(ctx, chunks[i].Text)
		if err != nil {
			return nil, fmt.Errorf("%w: embed chunk %d: %w", domain.ErrIndexBuild, chunks[i].Index, err)
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: empty embedding for chunk %d", domain.ErrIndexBuild, chunks[i].Index)
		}
		if i > 0 && len(vec) != len(vectors[0]) {
			return nil, fmt.Errorf("%w: chunk %d has dimension %d, expected %d",
				domain.ErrIndexBuild, chunks[i].Index, len(vec), len(vectors[0]))
		}
		vectors[i] = vec
	}

	store := ix.newStore()
	dim := len(vectors[0])
	if err := store.Init(dim); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexBuild, err)
	}
	if err := store.Upsert(chunks, vectors); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexBuild, err)
	}
	ix.log.Info("index built",
		zap.String("document_id", documentID),
		zap.String("embedder", emb.Name()),
		zap.Int("chunks", len(chunks)),
		zap.Int("dimension", dim),
	)
	return &Index{
		documentID: documentID,
		embedder:   emb,
		store:      store,
		chunks:     chunks,
		dimension:  dim,
	}, nil
}

func (x *Index) DocumentID() string { return x.documentID }

func (x *Index) Dimension() int { return x.dimension }

func (x *Index) Len() int { return len(x.chunks) }

// Release drops the stored vectors. The index must not be searched afterwards.
func (x *Index) Release() error { return x.store.Clear() }

// Search embeds query with the index's embedder and returns the topK most
// similar chunks. A zero query vector falls back to lexical overlap ranking.
func (x *Index) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if isZero(vec) {
		return x.lexicalSearch(query, topK), nil
	}
	res, err := x.store.Search(vec, topK)
	if err != nil {
		return nil, err
	}
	allZero := true
	for _, r := range res {
		if r.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		return x.lexicalSearch(query, topK), nil
	}
	return res, nil
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func (x *Index) lexicalSearch(query string, topK int) []domain.SearchResult {
	qset := textutil.TokenSet(query)
	scores := make([]float64, len(x.chunks))
	order := make([]int, len(x.chunks))
	for i, ch := range x.chunks {
		scores[i] = overlapOchiai(qset, ch.Text)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	if topK <= 0 {
		topK = 5
	}
	if topK > len(order) {
		topK = len(order)
	}
	out := make([]domain.SearchResult, 0, topK)
	for _, i := range order[:topK] {
		out = append(out, domain.SearchResult{Chunk: x.chunks[i], Score: scores[i]})
	}
	return out
}

// overlapOchiai is |A∩B| / sqrt(|A||B|) over distinct tokens.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	seen := textutil.TokenSet(text)
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	inter := 0
	for t := range seen {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
