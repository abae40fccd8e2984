// Package qa turns a user question into an answer grounded in retrieved chunks.
package qa

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pdfqa/internal/domain"
)

// Rewriter rephrases vague or short questions into complete ones before retrieval.
type Rewriter struct {
	llm domain.LLM
	log *zap.Logger
}

// NewRewriter creates a Rewriter. A nil logger disables logging.
func NewRewriter(llm domain.LLM, log *zap.Logger) *Rewriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rewriter{llm: llm, log: log}
}

// Rewrite returns the rephrased question. There is no fallback to the raw query:
// a failed or empty rewrite is an ErrQueryRewrite.
func (r *Rewriter) Rewrite(ctx context.Context, query string) (string, error) {
	out, err := r.llm.Complete(ctx, rewriteSystemPrompt, fmt.Sprintf(rewriteUserPrompt, query))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrQueryRewrite, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty rewrite", domain.ErrQueryRewrite)
	}
	r.log.Debug("query rewritten", zap.String("query", query), zap.String("rewritten", out))
	return out, nil
}
