package vectorstore

import "pdfqa/internal/domain"

// Storage holds chunk vectors for one document and supports similarity search.
// Search results are ordered by descending score; equal scores keep insertion order.
type Storage interface {
	Init(dimension int) error
	Upsert(chunks []domain.Chunk, vectors [][]float64) error
	Search(vector []float64, topK int) ([]domain.SearchResult, error)
	Clear() error
}
