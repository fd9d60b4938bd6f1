// Package pdf extracts the text layer of PDF documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor reads embedded PDF text. Scanned PDFs without a text layer
// yield empty text, which the normaliser rejects.
type Extractor struct{}

// New creates a PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// Formats returns the handled formats.
func (e *Extractor) Formats() []domain.Format {
	return []domain.Format{domain.FormatPDF}
}

// Extract returns the plain text of every page.
func (e *Extractor) Extract(ctx context.Context, upload domain.Upload) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: parsing pdf %s: %v", domain.ErrExtraction, upload.Filename, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(upload.Content), int64(len(upload.Content)))
	if err != nil {
		return "", fmt.Errorf("%w: opening pdf %s: %v", domain.ErrExtraction, upload.Filename, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: reading pdf text %s: %v", domain.ErrExtraction, upload.Filename, err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("%w: reading pdf text %s: %v", domain.ErrExtraction, upload.Filename, err)
	}
	return string(b), nil
}
