package qa

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pdfqa/internal/domain"
)

// Answerer asks the LLM to answer a question from retrieved context only.
type Answerer struct {
	llm domain.LLM
	log *zap.Logger
}

// NewAnswerer creates an Answerer. A nil logger disables logging.
func NewAnswerer(llm domain.LLM, log *zap.Logger) *Answerer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Answerer{llm: llm, log: log}
}

// Answer generates a response to query from results, in retrieval order.
func (a *Answerer) Answer(ctx context.Context, query string, results []domain.SearchResult) (string, error) {
	out, err := a.llm.Complete(ctx, "", BuildPrompt(query, results))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrAnswerGeneration, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty answer", domain.ErrAnswerGeneration)
	}
	a.log.Debug("answer generated", zap.Int("sources", len(results)), zap.Int("length", len(out)))
	return out, nil
}

// BuildPrompt joins chunk texts with blank lines into the QA template.
func BuildPrompt(query string, results []domain.SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Chunk.Text)
	}
	return fmt.Sprintf(answerPrompt, strings.Join(parts, "\n\n"), query)
}
