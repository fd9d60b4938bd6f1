package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown document format or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// Pipeline Errors.

	// ErrValidation indicates bad input content or size. It is user-correctable
	// and its message is surfaced verbatim.
	ErrValidation = errors.New("validation failed")

	// ErrChunking indicates an invalid chunking configuration.
	ErrChunking = errors.New("invalid chunking configuration")

	// ErrExtraction indicates a format extractor or OCR failure.
	ErrExtraction = errors.New("text extraction failed")

	// ErrAssembly indicates extraction output was structurally incomplete.
	// It signals a bug and must never be coerced into a partial report.
	ErrAssembly = errors.New("report assembly failed")

	// Retrieval Errors.
	// These degrade the pipeline instead of aborting it.

	// ErrIndexUnavailable indicates the vector index could not be reached or opened.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrEmbeddingTimeout indicates embedding computation exceeded its time bound.
	ErrEmbeddingTimeout = errors.New("embedding timed out")

	// ErrEmbeddingUnavailable indicates the embedding service failed or is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// IsRetrievalError returns true for errors that only degrade retrieval.
func IsRetrievalError(err error) bool {
	return errors.Is(err, ErrIndexUnavailable) ||
		errors.Is(err, ErrEmbeddingTimeout) ||
		errors.Is(err, ErrEmbeddingUnavailable)
}

// StageError attaches pipeline context to a failure so it can be reported
// to the end user.
type StageError struct {
	Stage      Stage
	DocumentID string
	Filename   string
	Err        error
}

// Error implements error.
func (e *StageError) Error() string {
	doc := e.DocumentID
	if doc == "" {
		doc = "-"
	}
	if e.Filename != "" {
		return fmt.Sprintf("%s stage failed for %s (document %s): %v", e.Stage, e.Filename, doc, e.Err)
	}
	return fmt.Sprintf("%s stage failed (document %s): %v", e.Stage, doc, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage of the first StageError in err's chain.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
