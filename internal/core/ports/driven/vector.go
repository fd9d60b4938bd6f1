package driven

import (
	"context"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

// VectorIndex stores embedding records and answers nearest-neighbour queries.
//
// Implementations must publish a document's records atomically: a search
// never observes part of a document's record set, and a cancelled Store
// leaves the previous state intact.
type VectorIndex interface {
	// Store replaces all records of documentID with records.
	// Re-storing the same document overwrites rather than duplicates.
	Store(ctx context.Context, doc domain.Document, records []domain.EmbeddingRecord) error

	// Search returns up to opts.K records closest to query, closest first.
	// Ties are broken by document insertion order, then chunk position.
	Search(ctx context.Context, query []float32, opts domain.SearchOptions) ([]domain.SearchHit, error)

	// Purge removes all records of a document.
	Purge(ctx context.Context, documentID string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources. Later calls fail with domain.ErrIndexUnavailable.
	Close() error
}
