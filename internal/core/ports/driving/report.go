package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

// ProcessOption configures a single pipeline run.
type ProcessOption func(*ProcessOptions)

// ProcessOptions holds per-run settings.
type ProcessOptions struct {
	// Progress receives stage events for this run. May be nil.
	Progress driven.ProgressSink

	// FollowUp replaces the follow-up date found in the text. May be nil.
	FollowUp *time.Time
}

// WithProgress routes stage events of this run to sink.
func WithProgress(sink driven.ProgressSink) ProcessOption {
	return func(o *ProcessOptions) {
		o.Progress = sink
	}
}

// WithFollowUp sets the report's follow-up date to date regardless of the
// document text.
func WithFollowUp(date time.Time) ProcessOption {
	return func(o *ProcessOptions) {
		o.FollowUp = &date
	}
}

// ApplyProcessOptions folds opts into a ProcessOptions value.
func ApplyProcessOptions(opts ...ProcessOption) ProcessOptions {
	var o ProcessOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ReportService runs the clinical document pipeline.
type ReportService interface {
	// Process extracts text from an upload and runs the pipeline on it.
	Process(ctx context.Context, upload domain.Upload, opts ...ProcessOption) (*domain.Report, error)

	// ProcessText runs the pipeline on already extracted text.
	// Failures are returned as *domain.StageError; a failed document never yields a report.
	ProcessText(ctx context.Context, raw domain.RawText, opts ...ProcessOption) (*domain.Report, error)

	// ProcessBatch processes independent uploads concurrently.
	// Results are in input order; one failure does not stop the others.
	ProcessBatch(ctx context.Context, uploads []domain.Upload, opts ...ProcessOption) []domain.BatchResult

	// Get returns a stored report by document ID.
	Get(ctx context.Context, documentID string) (*domain.Report, error)

	// List returns report history, most recent first.
	List(ctx context.Context, limit int) ([]domain.ReportSummary, error)
}

// ContextService exposes the retrieval index to users.
type ContextService interface {
	// Search finds chunks of processed documents similar to query.
	Search(ctx context.Context, query string, k int) ([]domain.SearchHit, error)

	// Purge removes a document's embedding records and stored report.
	Purge(ctx context.Context, documentID string) error

	// Stats returns the number of indexed chunks.
	Stats(ctx context.Context) (int, error)
}
