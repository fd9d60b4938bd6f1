package driven

import (
	"context"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

// ReportStore keeps the history of assembled reports.
type ReportStore interface {
	// Save stores a report keyed by its document ID, replacing any earlier one.
	Save(ctx context.Context, report *domain.Report) error

	// Get retrieves a report. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, documentID string) (*domain.Report, error)

	// List returns the most recent reports first. A limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]domain.ReportSummary, error)

	// Delete removes a report. Deleting a missing report is not an error.
	Delete(ctx context.Context, documentID string) error
}
