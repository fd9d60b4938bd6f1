package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		{ID: "c0", Position: 0, Content: "first chunk"},
		{ID: "c1", Position: 1, Content: "second chunk"},
	}
}

func TestIndexer_Enabled(t *testing.T) {
	var nilIndexer *Indexer
	assert.False(t, nilIndexer.Enabled())
	assert.False(t, NewIndexer(nil, &mockEmbeddingService{}).Enabled())
	assert.False(t, NewIndexer(newMockVectorIndex(), nil).Enabled())
	assert.True(t, NewIndexer(newMockVectorIndex(), &mockEmbeddingService{}).Enabled())
}

func TestIndexer_NotConfigured(t *testing.T) {
	indexer := NewIndexer(nil, nil)
	ctx := context.Background()

	err := indexer.EmbedAndStore(ctx, domain.Document{ID: "doc"}, testChunks())
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)

	_, err = indexer.Search(ctx, "query", domain.SearchOptions{K: 3})
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)

	_, err = indexer.Count(ctx)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)

	err = indexer.Purge(ctx, "doc")
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestIndexer_EmbedAndStore(t *testing.T) {
	index := newMockVectorIndex()
	indexer := NewIndexer(index, &mockEmbeddingService{embedding: []float32{1, 0}})

	doc := domain.Document{ID: "doc-1", Filename: "a.txt"}
	require.NoError(t, indexer.EmbedAndStore(context.Background(), doc, testChunks()))

	records := index.stored["doc-1"]
	require.Len(t, records, 2)
	assert.Equal(t, "c0", records[0].ChunkID)
	assert.Equal(t, "doc-1", records[0].DocumentID)
	assert.Equal(t, "a.txt", records[0].Filename)
	assert.Equal(t, 1, records[1].Position)
	assert.Equal(t, "second chunk", records[1].Content)
	assert.Equal(t, []float32{1, 0}, records[1].Vector)
	assert.False(t, records[0].IndexedAt.IsZero())
}

func TestIndexer_EmbeddingTimeout(t *testing.T) {
	index := newMockVectorIndex()
	embedder := &mockEmbeddingService{embedding: []float32{1}, delay: time.Second}
	indexer := NewIndexer(index, embedder, WithEmbeddingTimeout(10*time.Millisecond))

	err := indexer.EmbedAndStore(context.Background(), domain.Document{ID: "doc"}, testChunks())

	assert.ErrorIs(t, err, domain.ErrEmbeddingTimeout)
	assert.True(t, domain.IsRetrievalError(err))
	assert.Empty(t, index.stored)
}

func TestIndexer_EmbeddingFailure(t *testing.T) {
	embedder := &mockEmbeddingService{embedErr: errors.New("connection refused")}
	indexer := NewIndexer(newMockVectorIndex(), embedder)

	_, err := indexer.Search(context.Background(), "query", domain.SearchOptions{K: 3})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIndexer_CallerCancellation(t *testing.T) {
	embedder := &mockEmbeddingService{embedding: []float32{1}, delay: time.Second}
	indexer := NewIndexer(newMockVectorIndex(), embedder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := indexer.EmbedAndStore(ctx, domain.Document{ID: "doc"}, testChunks())

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, domain.IsRetrievalError(err))
}

func TestIndexer_StoreFailure(t *testing.T) {
	index := newMockVectorIndex()
	index.storeErr = errors.New("disk full")
	indexer := NewIndexer(index, &mockEmbeddingService{embedding: []float32{1}})

	err := indexer.EmbedAndStore(context.Background(), domain.Document{ID: "doc"}, testChunks())

	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.Contains(t, err.Error(), "disk full")
}

func TestIndexer_DimensionMismatchDegrades(t *testing.T) {
	index := newMockVectorIndex()
	index.searchErr = domain.ErrInvalidInput
	indexer := NewIndexer(index, &mockEmbeddingService{embedding: []float32{1}})

	_, err := indexer.Search(context.Background(), "query", domain.SearchOptions{K: 3})

	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndexer_Search(t *testing.T) {
	index := newMockVectorIndex()
	index.hits = []domain.SearchHit{{Record: domain.EmbeddingRecord{ChunkID: "c0"}, Score: 0.9}}
	indexer := NewIndexer(index, &mockEmbeddingService{embedding: []float32{1}})

	hits, err := indexer.Search(context.Background(), "query", domain.SearchOptions{K: 3, ExcludeDocumentID: "self"})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c0", hits[0].Record.ChunkID)
	assert.Equal(t, "self", index.lastOpts.ExcludeDocumentID)
}

func TestIndexer_Search_ZeroK(t *testing.T) {
	embedder := &mockEmbeddingService{embedErr: errors.New("must not be called")}
	indexer := NewIndexer(newMockVectorIndex(), embedder)

	hits, err := indexer.Search(context.Background(), "query", domain.SearchOptions{K: 0})

	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestIndexer_PurgeAndCount(t *testing.T) {
	index := newMockVectorIndex()
	indexer := NewIndexer(index, &mockEmbeddingService{embedding: []float32{1}})
	ctx := context.Background()

	require.NoError(t, indexer.EmbedAndStore(ctx, domain.Document{ID: "doc"}, testChunks()))
	n, err := indexer.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, indexer.Purge(ctx, "doc"))
	n, err = indexer.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []string{"doc"}, index.purged)
}
