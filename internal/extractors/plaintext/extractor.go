// Package plaintext extracts UTF-8 text files.
package plaintext

import (
	"bytes"
	"context"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

var _ driven.TextExtractor = (*Extractor)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor returns file content as text. Encoding checks happen in the normaliser.
type Extractor struct{}

// New creates a plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Formats returns the handled formats.
func (e *Extractor) Formats() []domain.Format {
	return []domain.Format{domain.FormatText}
}

// Extract strips a leading byte order mark and returns the content.
func (e *Extractor) Extract(ctx context.Context, upload domain.Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return string(bytes.TrimPrefix(upload.Content, utf8BOM)), nil
}
