package domain

import "context"

// UploadedDocument is the raw content of an uploaded file plus its content digest.
type UploadedDocument struct {
	ID      string
	Name    string
	Content []byte
}

// ParsedDocument holds the text segments extracted from an uploaded document,
// typically one per PDF page.
type ParsedDocument struct {
	ID       string
	Name     string
	Segments []string
}

// Chunk is a bounded span of a document segment used for indexing.
// Text is exactly Segments[Segment][Start:End].
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
	Segment    int
	Start      int
	End        int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// DocumentStats is what gets reported back after a document is loaded.
type DocumentStats struct {
	DocumentID         string
	Name               string
	Segments           int
	FirstSegmentLength int
	Chunks             int
	Preview            string
	Cached             bool
}

// Answer is the outcome of one question.
type Answer struct {
	Query          string
	RewrittenQuery string
	Text           string
	Sources        []SearchResult
}

// Empty reports whether the answer came from a no-op submission.
func (a Answer) Empty() bool {
	return a.Query == "" && a.Text == ""
}

// Extractor pulls plain text out of a document stored at path.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document ParsedDocument) ([]Chunk, error)
}

// LLM is a chat-completion collaborator.
type LLM interface {
	Model() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
