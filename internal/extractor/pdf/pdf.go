// Package pdf extracts plain text from PDF files, one segment per page.
package pdf

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"

	"pdfqa/internal/domain"
)

// Ensure Extractor implements the interface.
var _ domain.Extractor = (*Extractor)(nil)

// Extractor reads text with github.com/ledongthuc/pdf.
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

// Extract opens the PDF at path and returns the plain text of every page in order.
// Pages whose text cannot be decoded are returned as empty segments.
func (e *Extractor) Extract(ctx context.Context, path string) (pages []string, err error) {
	// The parser panics on some malformed object streams.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdf: malformed document: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: open: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	if total == 0 {
		return nil, errors.New("pdf: document has no pages")
	}
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
