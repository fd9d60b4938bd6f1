package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
	"github.com/custodia-labs/medreport/internal/logger"
)

// Ensure ContextService implements the interface.
var _ driving.ContextService = (*ContextService)(nil)

// ContextService lets users query and prune the retrieval index.
type ContextService struct {
	indexer *Indexer
	reports driven.ReportStore
}

// NewContextService creates a context service. Both arguments may be nil.
func NewContextService(indexer *Indexer, reports driven.ReportStore) *ContextService {
	return &ContextService{indexer: indexer, reports: reports}
}

// Search finds chunks of processed documents similar to query.
func (s *ContextService) Search(ctx context.Context, query string, k int) ([]domain.SearchHit, error) {
	logger.Section("Context Search")
	logger.Debug("Query: %q, k=%d", query, k)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	hits, err := s.indexer.Search(ctx, query, domain.SearchOptions{K: k})
	if err != nil {
		return nil, err
	}
	logger.Debug("Found %d hits", len(hits))
	return hits, nil
}

// Purge removes a document's records and its stored report. A disabled
// index is skipped so history can still be cleaned up.
func (s *ContextService) Purge(ctx context.Context, documentID string) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	if s.indexer.Enabled() {
		if err := s.indexer.Purge(ctx, documentID); err != nil {
			return fmt.Errorf("purging index: %w", err)
		}
	}
	if s.reports != nil {
		if err := s.reports.Delete(ctx, documentID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("deleting report: %w", err)
		}
	}
	logger.Info("Purged document %s", documentID)
	return nil
}

// Stats returns the number of indexed chunks.
func (s *ContextService) Stats(ctx context.Context) (int, error) {
	return s.indexer.Count(ctx)
}
