package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
	"github.com/custodia-labs/medreport/internal/logger"
)

// Default time bounds for embedding and index calls.
const (
	DefaultEmbeddingTimeout = 30 * time.Second
	DefaultIndexTimeout     = 10 * time.Second
)

// Indexer embeds chunks and keeps them in the vector index.
// Either dependency may be nil, in which case every call fails with
// domain.ErrIndexUnavailable.
type Indexer struct {
	index            driven.VectorIndex
	embedder         driven.EmbeddingService
	embeddingTimeout time.Duration
	indexTimeout     time.Duration
	now              func() time.Time
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithEmbeddingTimeout bounds each embedding call.
func WithEmbeddingTimeout(d time.Duration) IndexerOption {
	return func(i *Indexer) {
		if d > 0 {
			i.embeddingTimeout = d
		}
	}
}

// WithIndexTimeout bounds each index call.
func WithIndexTimeout(d time.Duration) IndexerOption {
	return func(i *Indexer) {
		if d > 0 {
			i.indexTimeout = d
		}
	}
}

// NewIndexer creates an indexer over index and embedder.
func NewIndexer(index driven.VectorIndex, embedder driven.EmbeddingService, opts ...IndexerOption) *Indexer {
	i := &Indexer{
		index:            index,
		embedder:         embedder,
		embeddingTimeout: DefaultEmbeddingTimeout,
		indexTimeout:     DefaultIndexTimeout,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Enabled reports whether both an index and an embedder are configured.
func (i *Indexer) Enabled() bool {
	return i != nil && i.index != nil && i.embedder != nil
}

func (i *Indexer) ready() error {
	if !i.Enabled() {
		return fmt.Errorf("%w: retrieval is not configured", domain.ErrIndexUnavailable)
	}
	return nil
}

// EmbedAndStore embeds all chunks in one batch and replaces the document's
// records in the index.
func (i *Indexer) EmbedAndStore(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error {
	if err := i.ready(); err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Content
	}

	vectors, err := i.embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbeddingUnavailable, len(vectors), len(chunks))
	}

	indexedAt := i.now()
	records := make([]domain.EmbeddingRecord, len(chunks))
	for n, c := range chunks {
		records[n] = domain.EmbeddingRecord{
			ChunkID:    c.ID,
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Position:   c.Position,
			Content:    c.Content,
			Vector:     vectors[n],
			IndexedAt:  indexedAt,
		}
	}

	ictx, cancel := context.WithTimeout(ctx, i.indexTimeout)
	defer cancel()
	if err := i.index.Store(ictx, doc, records); err != nil {
		return indexFailure(ctx, "storing records", err)
	}

	logger.Debug("Indexed %d chunks of %s", len(records), doc.ID)
	return nil
}

// Search embeds query and returns the nearest records.
func (i *Indexer) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	if err := i.ready(); err != nil {
		return nil, err
	}
	if opts.K <= 0 {
		return []domain.SearchHit{}, nil
	}

	vectors, err := i.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for 1 query", domain.ErrEmbeddingUnavailable, len(vectors))
	}
	return i.SearchVector(ctx, vectors[0], opts)
}

// SearchVector returns the nearest records to a ready vector.
func (i *Indexer) SearchVector(ctx context.Context, vector []float32, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	if err := i.ready(); err != nil {
		return nil, err
	}

	ictx, cancel := context.WithTimeout(ctx, i.indexTimeout)
	defer cancel()
	hits, err := i.index.Search(ictx, vector, opts)
	if err != nil {
		return nil, indexFailure(ctx, "searching", err)
	}
	return hits, nil
}

// Purge removes a document's records.
func (i *Indexer) Purge(ctx context.Context, documentID string) error {
	if err := i.ready(); err != nil {
		return err
	}
	ictx, cancel := context.WithTimeout(ctx, i.indexTimeout)
	defer cancel()
	if err := i.index.Purge(ictx, documentID); err != nil {
		return indexFailure(ctx, "purging", err)
	}
	return nil
}

// Count returns the number of indexed records.
func (i *Indexer) Count(ctx context.Context) (int, error) {
	if err := i.ready(); err != nil {
		return 0, err
	}
	ictx, cancel := context.WithTimeout(ctx, i.indexTimeout)
	defer cancel()
	n, err := i.index.Count(ictx)
	if err != nil {
		return 0, indexFailure(ctx, "counting", err)
	}
	return n, nil
}

// embed runs one bounded batch call and classifies its failure.
func (i *Indexer) embed(ctx context.Context, texts []string) ([][]float32, error) {
	ectx, cancel := context.WithTimeout(ctx, i.embeddingTimeout)
	defer cancel()

	vectors, err := i.embedder.EmbedBatch(ectx, texts)
	if err == nil {
		return vectors, nil
	}
	// A caller cancellation is not an embedding fault.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ectx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s: %w", domain.ErrEmbeddingTimeout, i.embeddingTimeout, err)
	}
	if errors.Is(err, domain.ErrEmbeddingUnavailable) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
}

// indexFailure maps an index error to domain.ErrIndexUnavailable unless the
// caller cancelled. A dimension mismatch after a provider change lands here
// too, keeping domain.ErrInvalidInput in the chain.
func indexFailure(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, domain.ErrIndexUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrIndexUnavailable, op, err)
}
