// Package service wires the ingestion, indexing and question-answering stages
// into a single-document session.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"pdfqa/internal/domain"
	"pdfqa/internal/index"
	"pdfqa/internal/ingest"
)

// Parser extracts text segments from an uploaded document.
type Parser interface {
	Parse(ctx context.Context, doc domain.UploadedDocument) (domain.ParsedDocument, error)
}

// IndexBuilder embeds chunks into a searchable index.
type IndexBuilder interface {
	Build(ctx context.Context, documentID string, chunks []domain.Chunk) (*index.Index, error)
}

// QueryRewriter rephrases a question before retrieval.
type QueryRewriter interface {
	Rewrite(ctx context.Context, query string) (string, error)
}

// AnswerGenerator answers a question from retrieved chunks.
type AnswerGenerator interface {
	Answer(ctx context.Context, query string, results []domain.SearchResult) (string, error)
}

// Deps are the pipeline stages a session drives.
type Deps struct {
	Parser     Parser
	Chunker    domain.Chunker
	Indexer    IndexBuilder
	Rewriter   QueryRewriter
	Answerer   AnswerGenerator
	Summarizer domain.Summarizer
}

// Config tunes retrieval and caching.
type Config struct {
	TopK             int
	CacheSize        int
	PreviewSentences int
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID       string
	State    State
	Document *domain.DocumentStats
}

type loadedDocument struct {
	index *index.Index
	stats domain.DocumentStats
}

// Session owns the active document and its index. Actions are serialized;
// State and Snapshot stay readable while an action runs.
type Session struct {
	id    string
	deps  Deps
	cfg   Config
	cache *lru.Cache[string, *loadedDocument]
	log   *zap.Logger

	actionMu sync.Mutex

	mu     sync.RWMutex
	state  State
	active *loadedDocument
}

// NewSession validates deps and creates an idle session.
func NewSession(deps Deps, cfg Config, log *zap.Logger) (*Session, error) {
	if deps.Parser == nil || deps.Chunker == nil || deps.Indexer == nil || deps.Rewriter == nil || deps.Answerer == nil {
		return nil, errors.New("service: parser, chunker, indexer, rewriter and answerer are required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 8
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	s := &Session{
		id:    id,
		deps:  deps,
		cfg:   cfg,
		log:   log.With(zap.String("session", id)),
		state: Idle,
	}
	cache, err := lru.NewWithEvict[string, *loadedDocument](cfg.CacheSize, s.evicted)
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// evicted runs under the cache lock when a document falls out of the cache.
func (s *Session) evicted(documentID string, doc *loadedDocument) {
	if err := doc.index.Release(); err != nil {
		s.log.Warn("failed to release index", zap.String("document_id", documentID), zap.Error(err))
		return
	}
	s.log.Debug("evicted index", zap.String("document_id", documentID))
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{ID: s.id, State: s.state}
	if s.active != nil {
		stats := s.active.stats
		snap.Document = &stats
	}
	return snap
}

func (s *Session) set(state State, active *loadedDocument) {
	s.mu.Lock()
	s.state = state
	s.active = active
	s.mu.Unlock()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// LoadDocument makes data the active document. Content seen before is served
// from the cache without parsing or embedding. On failure the session returns
// to Idle with no active document.
func (s *Session) LoadDocument(ctx context.Context, name string, data []byte) (domain.DocumentStats, error) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	s.set(DocumentLoading, nil)
	doc := ingest.Identify(name, data)
	log := s.log.With(zap.String("document_id", doc.ID), zap.String("name", name))
	log.Info("document identified", zap.Int("bytes", len(data)))

	if cached, ok := s.cache.Get(doc.ID); ok {
		loaded := &loadedDocument{index: cached.index, stats: cached.stats}
		loaded.stats.Name = name
		loaded.stats.Cached = true
		s.set(DocumentReady, loaded)
		log.Info("index cache hit", zap.Int("chunks", loaded.stats.Chunks))
		return loaded.stats, nil
	}

	loaded, err := s.build(ctx, doc)
	if err != nil {
		s.set(Idle, nil)
		log.Warn("document rejected", zap.Error(err))
		return domain.DocumentStats{}, err
	}
	s.cache.Add(doc.ID, loaded)
	s.set(DocumentReady, loaded)
	return loaded.stats, nil
}

func (s *Session) build(ctx context.Context, doc domain.UploadedDocument) (*loadedDocument, error) {
	parsed, err := s.deps.Parser.Parse(ctx, doc)
	if err != nil {
		return nil, err
	}
	chunks, err := s.deps.Chunker.Chunk(parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk: %w", domain.ErrIndexBuild, err)
	}
	idx, err := s.deps.Indexer.Build(ctx, doc.ID, chunks)
	if err != nil {
		return nil, err
	}
	return &loadedDocument{
		index: idx,
		stats: domain.DocumentStats{
			DocumentID:         doc.ID,
			Name:               doc.Name,
			Segments:           len(parsed.Segments),
			FirstSegmentLength: utf8.RuneCountInString(parsed.Segments[0]),
			Chunks:             len(chunks),
			Preview:            s.preview(parsed),
		},
	}, nil
}

// preview failures are logged and never reject a document.
func (s *Session) preview(parsed domain.ParsedDocument) string {
	if s.deps.Summarizer == nil {
		return ""
	}
	out, err := s.deps.Summarizer.Summarize(strings.Join(parsed.Segments, "\n"), s.cfg.PreviewSentences)
	if err != nil {
		s.log.Warn("preview failed", zap.String("document_id", parsed.ID), zap.Error(err))
		return ""
	}
	return out
}

// Ask rewrites query, retrieves the most similar chunks and answers from them.
// A blank query is a no-op: it returns a zero Answer and touches nothing.
func (s *Session) Ask(ctx context.Context, query string) (domain.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Answer{}, nil
	}

	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	s.mu.RLock()
	active := s.active
	s.mu.RUnlock()
	if active == nil {
		return domain.Answer{}, domain.ErrNoDocument
	}

	s.setState(Querying)
	defer s.setState(DocumentReady)

	ans := domain.Answer{Query: query}
	rewritten, err := s.deps.Rewriter.Rewrite(ctx, query)
	if err != nil {
		s.log.Warn("query rewrite failed", zap.Error(err))
		return ans, err
	}
	ans.RewrittenQuery = rewritten
	s.log.Info("query rewritten", zap.String("query", query), zap.String("rewritten", rewritten))

	results, err := active.index.Search(ctx, rewritten, s.cfg.TopK)
	if err != nil {
		err = fmt.Errorf("%w: retrieve: %w", domain.ErrAnswerGeneration, err)
		s.log.Warn("retrieval failed", zap.Error(err))
		return ans, err
	}
	ans.Sources = results

	text, err := s.deps.Answerer.Answer(ctx, rewritten, results)
	if err != nil {
		s.log.Warn("answer generation failed", zap.Error(err))
		return ans, err
	}
	ans.Text = text
	s.log.Info("answer generated", zap.Int("sources", len(results)))
	return ans, nil
}
