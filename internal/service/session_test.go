package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pdfqa/internal/chunker"
	"pdfqa/internal/domain"
	"pdfqa/internal/index"
	"pdfqa/internal/ingest"
	"pdfqa/internal/qa"
	"pdfqa/internal/summarizer"
)

// pageExtractor treats the temp file as form-feed separated pages.
type pageExtractor struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (p *pageExtractor) Extract(_ context.Context, path string) ([]string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.entered != nil {
		p.entered <- struct{}{}
		<-p.release
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(string(data), "%BROKEN") {
		return nil, errors.New("malformed xref table")
	}
	return strings.Split(string(data), "\f"), nil
}

func (p *pageExtractor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type keywordEmbedder struct {
	mu     sync.Mutex
	axes   []string
	calls  int
	failAt int
}

func (k *keywordEmbedder) Name() string                 { return "keyword" }
func (k *keywordEmbedder) Prepare(corpus []string) error { return nil }

func (k *keywordEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	k.mu.Lock()
	k.calls++
	n := k.calls
	k.mu.Unlock()
	if k.failAt > 0 && n == k.failAt {
		return nil, errors.New("embedding endpoint unreachable")
	}
	text = strings.ToLower(text)
	v := make([]float64, len(k.axes))
	for i, axis := range k.axes {
		if strings.Contains(text, axis) {
			v[i] = 1
		}
	}
	return v, nil
}

func (k *keywordEmbedder) count() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.calls
}

// scriptedLLM answers rewrite calls (with a system prompt) and answer calls separately.
type scriptedLLM struct {
	rewrite      string
	rewriteErr   error
	answer       string
	answerErr    error
	rewriteCalls int
	answerCalls  int
	lastPrompt   string
}

func (s *scriptedLLM) Model() string { return "scripted" }

func (s *scriptedLLM) Complete(_ context.Context, system, prompt string) (string, error) {
	if system != "" {
		s.rewriteCalls++
		return s.rewrite, s.rewriteErr
	}
	s.answerCalls++
	s.lastPrompt = prompt
	return s.answer, s.answerErr
}

type fixture struct {
	session   *Session
	extractor *pageExtractor
	embedder  *keywordEmbedder
	llm       *scriptedLLM
}

func newFixture(t *testing.T, cacheSize int) *fixture {
	t.Helper()
	f := &fixture{
		extractor: &pageExtractor{},
		embedder:  &keywordEmbedder{axes: []string{"solar", "wind", "battery"}},
		llm:       &scriptedLLM{rewrite: "How do solar panels produce power?", answer: "They convert sunlight."},
	}
	log := zaptest.NewLogger(t)
	s, err := NewSession(Deps{
		Parser:     ingest.New(f.extractor, ingest.WithTempDir(t.TempDir()), ingest.WithLogger(log)),
		Chunker:    chunker.NewSentenceChunker(chunker.DefaultChunkSize, 0),
		Indexer:    index.NewIndexer(func() domain.Embedder { return f.embedder }, index.WithLogger(log)),
		Rewriter:   qa.NewRewriter(f.llm, log),
		Answerer:   qa.NewAnswerer(f.llm, log),
		Summarizer: summarizer.NewFrequencySummarizer(),
	}, Config{TopK: 8, CacheSize: cacheSize, PreviewSentences: 2}, log)
	require.NoError(t, err)
	f.session = s
	return f
}

const (
	solarDoc = "Solar panels convert sunlight into power. Solar output peaks at noon.\fWind turbines spin in storms."
	otherDoc = "A battery stores charge.\fBattery chemistry matters."
)

func TestNewSession_RequiresStages(t *testing.T) {
	_, err := NewSession(Deps{}, Config{}, nil)
	require.Error(t, err)
}

func TestLoadDocument_ReportsStats(t *testing.T) {
	f := newFixture(t, 1)
	assert.Equal(t, Idle, f.session.State())

	stats, err := f.session.LoadDocument(context.Background(), "energy.pdf", []byte(solarDoc))
	require.NoError(t, err)

	assert.Equal(t, DocumentReady, f.session.State())
	assert.Equal(t, "energy.pdf", stats.Name)
	assert.Equal(t, 2, stats.Segments)
	assert.Equal(t, len([]rune("Solar panels convert sunlight into power. Solar output peaks at noon.")), stats.FirstSegmentLength)
	assert.Equal(t, 2, stats.Chunks)
	assert.NotEmpty(t, stats.Preview)
	assert.False(t, stats.Cached)
	assert.Len(t, stats.DocumentID, 64)

	snap := f.session.Snapshot()
	require.NotNil(t, snap.Document)
	assert.Equal(t, stats.DocumentID, snap.Document.DocumentID)
	assert.Equal(t, f.session.ID(), snap.ID)
}

func TestLoadDocument_SameBytesReuseIndex(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	first, err := f.session.LoadDocument(ctx, "a.pdf", []byte(solarDoc))
	require.NoError(t, err)
	embeds := f.embedder.count()

	second, err := f.session.LoadDocument(ctx, "renamed.pdf", []byte(solarDoc))
	require.NoError(t, err)

	assert.Equal(t, 1, f.extractor.count())
	assert.Equal(t, embeds, f.embedder.count())
	assert.True(t, second.Cached)
	assert.Equal(t, "renamed.pdf", second.Name)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Equal(t, first.Chunks, second.Chunks)
}

func TestLoadDocument_DistinctBytesRebuild(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	a, err := f.session.LoadDocument(ctx, "a.pdf", []byte(solarDoc))
	require.NoError(t, err)
	b, err := f.session.LoadDocument(ctx, "b.pdf", []byte(otherDoc))
	require.NoError(t, err)
	assert.NotEqual(t, a.DocumentID, b.DocumentID)
	assert.Equal(t, 2, f.extractor.count())

	// Cache size 1 evicted the first document's index.
	_, err = f.session.LoadDocument(ctx, "a.pdf", []byte(solarDoc))
	require.NoError(t, err)
	assert.Equal(t, 3, f.extractor.count())
}

func TestLoadDocument_LargerCacheKeepsBoth(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, err := f.session.LoadDocument(ctx, "a.pdf", []byte(solarDoc))
	require.NoError(t, err)
	_, err = f.session.LoadDocument(ctx, "b.pdf", []byte(otherDoc))
	require.NoError(t, err)
	stats, err := f.session.LoadDocument(ctx, "a.pdf", []byte(solarDoc))
	require.NoError(t, err)

	assert.True(t, stats.Cached)
	assert.Equal(t, 2, f.extractor.count())
}

func TestLoadDocument_ParseFailureReturnsToIdle(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.session.LoadDocument(ctx, "good.pdf", []byte(solarDoc))
	require.NoError(t, err)

	_, err = f.session.LoadDocument(ctx, "bad.pdf", []byte("%BROKEN header"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDocumentParse)
	assert.Equal(t, Idle, f.session.State())
	assert.Nil(t, f.session.Snapshot().Document)

	_, err = f.session.Ask(ctx, "anything?")
	assert.ErrorIs(t, err, domain.ErrNoDocument)

	_, err = f.session.LoadDocument(ctx, "other.pdf", []byte(otherDoc))
	require.NoError(t, err)
	assert.Equal(t, DocumentReady, f.session.State())
}

func TestLoadDocument_EmbeddingFailureRejectsDocument(t *testing.T) {
	f := newFixture(t, 1)
	f.embedder.failAt = 2

	_, err := f.session.LoadDocument(context.Background(), "a.pdf", []byte(solarDoc))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexBuild)
	assert.Equal(t, Idle, f.session.State())

	// Nothing was cached, so the retry parses again.
	f.embedder.failAt = 0
	_, err = f.session.LoadDocument(context.Background(), "a.pdf", []byte(solarDoc))
	require.NoError(t, err)
	assert.Equal(t, 2, f.extractor.count())
}

func TestAsk_EndToEnd(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	_, err := f.session.LoadDocument(ctx, "energy.pdf", []byte(solarDoc))
	require.NoError(t, err)

	ans, err := f.session.Ask(ctx, "  solar?  ")
	require.NoError(t, err)

	assert.Equal(t, "solar?", ans.Query)
	assert.Equal(t, "How do solar panels produce power?", ans.RewrittenQuery)
	assert.Equal(t, "They convert sunlight.", ans.Text)
	require.Len(t, ans.Sources, 2)
	assert.Contains(t, ans.Sources[0].Chunk.Text, "Solar panels")
	assert.Greater(t, ans.Sources[0].Score, ans.Sources[1].Score)
	assert.Contains(t, f.llm.lastPrompt, "Query: How do solar panels produce power?")
	assert.Equal(t, DocumentReady, f.session.State())
}

func TestAsk_BlankQueryIsNoop(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	ans, err := f.session.Ask(ctx, "   ")
	require.NoError(t, err)
	assert.True(t, ans.Empty())

	_, err = f.session.LoadDocument(ctx, "energy.pdf", []byte(solarDoc))
	require.NoError(t, err)
	embeds := f.embedder.count()

	ans, err = f.session.Ask(ctx, "\t\n")
	require.NoError(t, err)
	assert.True(t, ans.Empty())
	assert.Equal(t, 0, f.llm.rewriteCalls)
	assert.Equal(t, 0, f.llm.answerCalls)
	assert.Equal(t, embeds, f.embedder.count())
	assert.Equal(t, DocumentReady, f.session.State())
}

func TestAsk_NoDocument(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.session.Ask(context.Background(), "what?")
	assert.ErrorIs(t, err, domain.ErrNoDocument)
	assert.Equal(t, 0, f.llm.rewriteCalls)
}

func TestAsk_RewriteFailureIsTerminal(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	_, err := f.session.LoadDocument(ctx, "energy.pdf", []byte(solarDoc))
	require.NoError(t, err)

	f.llm.rewriteErr = errors.New("rate limited")
	ans, err := f.session.Ask(ctx, "solar?")
	assert.ErrorIs(t, err, domain.ErrQueryRewrite)
	assert.Empty(t, ans.RewrittenQuery)
	assert.Equal(t, 0, f.llm.answerCalls)
	assert.Equal(t, DocumentReady, f.session.State())

	// The session stays usable.
	f.llm.rewriteErr = nil
	_, err = f.session.Ask(ctx, "solar?")
	require.NoError(t, err)
}

func TestAsk_RetrievalAndAnswerFailures(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	_, err := f.session.LoadDocument(ctx, "energy.pdf", []byte(solarDoc))
	require.NoError(t, err)

	f.embedder.failAt = f.embedder.count() + 1
	_, err = f.session.Ask(ctx, "solar?")
	assert.ErrorIs(t, err, domain.ErrAnswerGeneration)
	assert.Equal(t, 0, f.llm.answerCalls)

	f.embedder.failAt = 0
	f.llm.answerErr = errors.New("context length exceeded")
	ans, err := f.session.Ask(ctx, "solar?")
	assert.ErrorIs(t, err, domain.ErrAnswerGeneration)
	assert.NotEmpty(t, ans.RewrittenQuery)
	assert.NotEmpty(t, ans.Sources)
	assert.Equal(t, DocumentReady, f.session.State())
}

func TestState_ReadableDuringLoad(t *testing.T) {
	f := newFixture(t, 1)
	f.extractor.entered = make(chan struct{})
	f.extractor.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.session.LoadDocument(context.Background(), "a.pdf", []byte(solarDoc))
		done <- err
	}()

	<-f.extractor.entered
	assert.Equal(t, DocumentLoading, f.session.State())
	close(f.extractor.release)
	require.NoError(t, <-done)
	assert.Equal(t, DocumentReady, f.session.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", DocumentLoading.String())
	assert.Equal(t, "ready", DocumentReady.String())
	assert.Equal(t, "querying", Querying.String())
	assert.Equal(t, "unknown", State(42).String())
}
