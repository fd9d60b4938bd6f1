package driven

import (
	"context"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

// TextExtractor decodes one file format into raw text.
// Failures are reported as domain.ErrExtraction wrapping the original cause.
type TextExtractor interface {
	// Formats returns the formats this extractor handles.
	Formats() []domain.Format

	// Extract returns the raw text of an upload.
	Extract(ctx context.Context, upload domain.Upload) (string, error)
}

// ExtractorRegistry selects the extractor for a format.
type ExtractorRegistry interface {
	// For returns the extractor for format.
	// Returns domain.ErrUnsupportedType if none is registered.
	For(format domain.Format) (TextExtractor, error)
}

// TextNormaliser validates raw text and converts it to a canonical stream.
type TextNormaliser interface {
	// Normalise returns normalised text and its content hash.
	// Fails with domain.ErrValidation on empty, unreadable or oversized input.
	Normalise(raw domain.RawText) (domain.NormalisedText, error)
}
