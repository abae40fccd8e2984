// Package ingest turns uploaded bytes into a parsed document.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"pdfqa/internal/domain"
)

// Ingestor persists an upload to a scoped temporary file and hands it to the extractor.
type Ingestor struct {
	extractor domain.Extractor
	tempDir   string
	log       *zap.Logger
}

// Option configures the ingestor.
type Option func(*Ingestor)

// WithTempDir sets the directory for temporary upload copies (default: os.TempDir()).
func WithTempDir(dir string) Option {
	return func(i *Ingestor) { i.tempDir = dir }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(i *Ingestor) {
		if log != nil {
			i.log = log
		}
	}
}

func New(extractor domain.Extractor, opts ...Option) *Ingestor {
	i := &Ingestor{extractor: extractor, log: zap.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Identify wraps raw bytes with their SHA-256 content digest.
// The digest is a cache key, not a security primitive.
func Identify(name string, data []byte) domain.UploadedDocument {
	return domain.UploadedDocument{ID: hashBytes(data), Name: name, Content: data}
}

// Parse extracts the text segments of doc. The temporary copy is removed
// whether extraction succeeds or not.
func (i *Ingestor) Parse(ctx context.Context, doc domain.UploadedDocument) (domain.ParsedDocument, error) {
	if len(doc.Content) == 0 {
		return domain.ParsedDocument{}, fmt.Errorf("%w: empty upload", domain.ErrDocumentParse)
	}
	path, err := i.persist(doc.Content)
	if err != nil {
		return domain.ParsedDocument{}, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			i.log.Warn("failed to remove temporary upload", zap.String("path", path), zap.Error(err))
		}
	}()

	segments, err := i.extractor.Extract(ctx, path)
	if err != nil {
		return domain.ParsedDocument{}, fmt.Errorf("%w: %s: %w", domain.ErrDocumentParse, doc.Name, err)
	}
	if len(segments) == 0 {
		return domain.ParsedDocument{}, fmt.Errorf("%w: %s: no pages", domain.ErrDocumentParse, doc.Name)
	}
	if !hasText(segments) {
		return domain.ParsedDocument{}, fmt.Errorf("%w: %s: no extractable text", domain.ErrDocumentParse, doc.Name)
	}
	i.log.Debug("document parsed",
		zap.String("document_id", doc.ID),
		zap.Int("segments", len(segments)),
	)
	return domain.ParsedDocument{ID: doc.ID, Name: doc.Name, Segments: segments}, nil
}

func (i *Ingestor) persist(data []byte) (string, error) {
	tmp, err := os.CreateTemp(i.tempDir, "upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

func hasText(segments []string) bool {
	for _, s := range segments {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
