// Package memory provides an in-process vector index for tests and for
// sessions that do not need persistence.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

var _ driven.VectorIndex = (*Index)(nil)

// entry is one document's published record set.
type entry struct {
	seq     int
	records []domain.EmbeddingRecord
}

// snapshot is an immutable view of the index. Writers build a new snapshot
// and swap it in, so readers never lock.
type snapshot struct {
	docs    map[string]entry
	order   []string // document IDs by insertion sequence
	nextSeq int
	dims    int
	closed  bool
}

// Index is a copy-on-write vector index held in memory.
type Index struct {
	mu      sync.Mutex // serialises writers
	current atomic.Pointer[snapshot]
}

// New creates an empty index.
func New() *Index {
	idx := &Index{}
	idx.current.Store(&snapshot{docs: map[string]entry{}, nextSeq: 1})
	return idx
}

func (i *Index) load() (*snapshot, error) {
	snap := i.current.Load()
	if snap.closed {
		return nil, fmt.Errorf("%w: index is closed", domain.ErrIndexUnavailable)
	}
	return snap, nil
}

// Store replaces the document's records. A re-stored document keeps its
// original insertion sequence.
func (i *Index) Store(ctx context.Context, doc domain.Document, records []domain.EmbeddingRecord) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	copied := make([]domain.EmbeddingRecord, len(records))
	dims := 0
	for n, r := range records {
		if len(r.Vector) == 0 {
			return fmt.Errorf("%w: record %s has no vector", domain.ErrInvalidInput, r.ChunkID)
		}
		if dims == 0 {
			dims = len(r.Vector)
		} else if len(r.Vector) != dims {
			return fmt.Errorf("%w: record %s has %d dimensions, expected %d",
				domain.ErrInvalidInput, r.ChunkID, len(r.Vector), dims)
		}
		r.DocumentID = doc.ID
		r.Filename = doc.Filename
		r.Vector = append([]float32(nil), r.Vector...)
		copied[n] = r
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	old, err := i.load()
	if err != nil {
		return err
	}
	// Checked under the lock so a cancelled call never publishes.
	if err := ctx.Err(); err != nil {
		return err
	}

	next := &snapshot{
		docs:    make(map[string]entry, len(old.docs)+1),
		order:   old.order,
		nextSeq: old.nextSeq,
		dims:    old.dims,
	}
	for id, e := range old.docs {
		next.docs[id] = e
	}

	existing, reindex := old.docs[doc.ID]
	if dims > 0 && next.dims > 0 && dims != next.dims && !(reindex && len(old.docs) == 1) {
		return fmt.Errorf("%w: vector dimension %d does not match index dimension %d",
			domain.ErrInvalidInput, dims, next.dims)
	}
	if dims > 0 {
		next.dims = dims
	}

	seq := existing.seq
	if !reindex {
		seq = next.nextSeq
		next.nextSeq++
		next.order = append(append([]string(nil), old.order...), doc.ID)
	}
	next.docs[doc.ID] = entry{seq: seq, records: copied}

	i.current.Store(next)
	return nil
}

// Search ranks all records of the current snapshot against query.
func (i *Index) Search(ctx context.Context, query []float32, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	snap, err := i.load()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.K <= 0 {
		return []domain.SearchHit{}, nil
	}
	if snap.dims > 0 && len(query) != snap.dims {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d",
			domain.ErrInvalidInput, len(query), snap.dims)
	}

	var hits []domain.SearchHit
	for _, id := range snap.order {
		e, ok := snap.docs[id]
		if !ok {
			continue
		}
		for _, r := range e.records {
			hits = append(hits, domain.SearchHit{
				Record: r,
				Score:  domain.CosineSimilarity(query, r.Vector),
			})
		}
	}
	return domain.RankHits(hits, opts), nil
}

// Purge removes a document's records.
func (i *Index) Purge(ctx context.Context, documentID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	old, err := i.load()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := old.docs[documentID]; !ok {
		return nil
	}

	next := &snapshot{
		docs:    make(map[string]entry, len(old.docs)),
		order:   make([]string, 0, len(old.order)),
		nextSeq: old.nextSeq,
	}
	for id, e := range old.docs {
		if id != documentID {
			next.docs[id] = e
		}
	}
	for _, id := range old.order {
		if id != documentID {
			next.order = append(next.order, id)
		}
	}
	if len(next.docs) > 0 {
		next.dims = old.dims
	}

	i.current.Store(next)
	return nil
}

// Count returns the number of stored records.
func (i *Index) Count(ctx context.Context) (int, error) {
	snap, err := i.load()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range snap.docs {
		n += len(e.records)
	}
	return n, nil
}

// Close discards all records. Later calls fail with domain.ErrIndexUnavailable.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.current.Store(&snapshot{docs: map[string]entry{}, closed: true})
	return nil
}
