package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medreport/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/medreport/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/medreport/internal/clinical/assembler"
	"github.com/custodia-labs/medreport/internal/clinical/extraction"
	"github.com/custodia-labs/medreport/internal/clinical/knowledge"
	"github.com/custodia-labs/medreport/internal/clinical/recommend"
	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/extractors"
	"github.com/custodia-labs/medreport/internal/normaliser"
	"github.com/custodia-labs/medreport/internal/postprocessors"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	embedding []float32
	embedErr  error
	delay     time.Duration
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.embedding
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int { return len(m.embedding) }

func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }

func (m *mockEmbeddingService) Close() error { return nil }

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	mu        sync.Mutex
	stored    map[string][]domain.EmbeddingRecord
	hits      []domain.SearchHit
	storeErr  error
	searchErr error
	purged    []string
	lastOpts  domain.SearchOptions
}

func newMockVectorIndex() *mockVectorIndex {
	return &mockVectorIndex{stored: map[string][]domain.EmbeddingRecord{}}
}

func (m *mockVectorIndex) Store(_ context.Context, doc domain.Document, records []domain.EmbeddingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeErr != nil {
		return m.storeErr
	}
	m.stored[doc.ID] = records
	return nil
}

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastOpts = opts
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.hits, nil
}

func (m *mockVectorIndex) Purge(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged = append(m.purged, documentID)
	delete(m.stored, documentID)
	return nil
}

func (m *mockVectorIndex) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.stored {
		n += len(r)
	}
	return n, nil
}

func (m *mockVectorIndex) Close() error { return nil }

// mockReportStore implements driven.ReportStore for testing.
type mockReportStore struct {
	mu      sync.Mutex
	reports map[string]*domain.Report
	saveErr error
	deleted []string
}

func newMockReportStore() *mockReportStore {
	return &mockReportStore{reports: map[string]*domain.Report{}}
}

func (m *mockReportStore) Save(_ context.Context, r *domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.reports[r.DocumentID] = r
	return nil
}

func (m *mockReportStore) Get(_ context.Context, id string) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (m *mockReportStore) List(_ context.Context, _ int) ([]domain.ReportSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ReportSummary{}
	for _, r := range m.reports {
		out = append(out, domain.ReportSummary{DocumentID: r.DocumentID, Filename: r.Filename})
	}
	return out, nil
}

func (m *mockReportStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	delete(m.reports, id)
	return nil
}

// eventRecorder collects progress events.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (r *eventRecorder) Emit(e domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) has(stage domain.Stage, status domain.StageStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Stage == stage && e.Status == status {
			return true
		}
	}
	return false
}

func (r *eventRecorder) reached(stage domain.Stage) bool {
	return r.has(stage, domain.StatusStarted)
}

// --- Pipeline fixtures ---

var testClock = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

// testDeps wires the real pipeline components around the given indexer.
func testDeps(t *testing.T, indexer *Indexer, reports *mockReportStore) ReportDeps {
	t.Helper()

	table, err := knowledge.Load()
	require.NoError(t, err)

	chunker, err := postprocessors.BuildPipeline(postprocessors.DefaultRegistry(),
		domain.DefaultAppSettings().Pipeline.PipelineConfig())
	require.NoError(t, err)

	deps := ReportDeps{
		Extractors:  extractors.Default(domain.DefaultAppSettings().OCR),
		Normaliser:  normaliser.New(),
		Chunker:     chunker,
		Indexer:     indexer,
		Extractor:   extraction.New(table),
		Recommender: recommend.New(table),
		Assembler:   assembler.New(),
	}
	if reports != nil {
		deps.Reports = reports
	}
	return deps
}

func newTestService(t *testing.T, indexer *Indexer, reports *mockReportStore, opts ...ReportOption) *ReportService {
	t.Helper()
	opts = append([]ReportOption{WithClock(func() time.Time { return testClock })}, opts...)
	svc, err := NewReportService(testDeps(t, indexer, reports), opts...)
	require.NoError(t, err)
	return svc
}

// localIndexer is a working indexer backed by the memory index and the
// hashing embedder.
func localIndexer() *Indexer {
	return NewIndexer(memory.New(), hashing.NewEmbeddingService(128))
}
