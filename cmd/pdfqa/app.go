package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"pdfqa/internal/chunker"
	"pdfqa/internal/config"
	"pdfqa/internal/domain"
	"pdfqa/internal/embedding/openai"
	"pdfqa/internal/embedding/tfidf"
	"pdfqa/internal/extractor/pdf"
	"pdfqa/internal/index"
	"pdfqa/internal/ingest"
	"pdfqa/internal/llm"
	"pdfqa/internal/logger"
	"pdfqa/internal/qa"
	"pdfqa/internal/service"
	"pdfqa/internal/summarizer"
)

type app struct {
	cfg     *config.AppConfig
	log     *zap.Logger
	session *service.Session
}

func (a *app) close() { _ = a.log.Sync() }

// setup loads configuration, resolves secrets and assembles the session.
// console selects stderr as the log sink when no log file is configured.
func setup(opts *rootOptions, console bool) (*app, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	secrets, err := config.Resolve(cfg)
	if err != nil {
		return nil, err
	}

	var sink io.Writer
	if console {
		sink = os.Stderr
	}
	log, err := logger.New(cfg.Log, sink)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}

	session, err := buildSession(cfg, secrets, log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, session: session}, nil
}

func buildSession(cfg *config.AppConfig, secrets config.Secrets, log *zap.Logger) (*service.Session, error) {
	newEmbedder, err := embedderFactory(cfg.Embedder, secrets)
	if err != nil {
		return nil, err
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "sentence", "":
		ch = chunker.NewSentenceChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	default:
		return nil, fmt.Errorf("%w: unknown chunker: %s", domain.ErrConfig, cfg.Chunker.Type)
	}

	sum := summarizer.New(cfg.Preview.Type)
	if sum == nil {
		return nil, fmt.Errorf("%w: unknown preview summarizer: %s", domain.ErrConfig, cfg.Preview.Type)
	}

	client, err := llm.NewOpenAIClient(llm.Config{
		APIKey:      secrets.LLMAPIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       secrets.LLMModel,
		Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}

	return service.NewSession(service.Deps{
		Parser:     ingest.New(pdf.New(), ingest.WithLogger(log)),
		Chunker:    ch,
		Indexer:    index.NewIndexer(newEmbedder, index.WithLogger(log)),
		Rewriter:   qa.NewRewriter(client, log),
		Answerer:   qa.NewAnswerer(client, log),
		Summarizer: sum,
	}, service.Config{
		TopK:             cfg.Retriever.TopK,
		CacheSize:        cfg.Cache.Size,
		PreviewSentences: cfg.Preview.MaxSentences,
	}, log)
}

// embedderFactory returns a fresh TF-IDF embedder per index, or one shared
// remote client.
func embedderFactory(cfg config.EmbedderConfig, secrets config.Secrets) (index.EmbedderFactory, error) {
	switch cfg.Type {
	case "tfidf", "":
		return func() domain.Embedder { return tfidf.NewEmbedder() }, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%w: openai embedder config missing", domain.ErrConfig)
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKey:     secrets.EmbedderAPIKey,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: openai embedder: %w", domain.ErrConfig, err)
		}
		return func() domain.Embedder { return client }, nil
	}
	return nil, fmt.Errorf("%w: unknown embedder: %s", domain.ErrConfig, cfg.Type)
}
