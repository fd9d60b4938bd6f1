package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
)

// mockReportService is a mock implementation of driving.ReportService.
type mockReportService struct {
	report    *domain.Report
	summaries []domain.ReportSummary
	err       error

	lastRaw    domain.RawText
	lastUpload domain.Upload
	lastOpts   driving.ProcessOptions
	lastID     string
}

func (m *mockReportService) Process(_ context.Context, upload domain.Upload, opts ...driving.ProcessOption) (*domain.Report, error) {
	m.lastUpload = upload
	m.lastOpts = driving.ApplyProcessOptions(opts...)
	return m.report, m.err
}

func (m *mockReportService) ProcessText(_ context.Context, raw domain.RawText, opts ...driving.ProcessOption) (*domain.Report, error) {
	m.lastRaw = raw
	m.lastOpts = driving.ApplyProcessOptions(opts...)
	return m.report, m.err
}

func (m *mockReportService) ProcessBatch(_ context.Context, uploads []domain.Upload, _ ...driving.ProcessOption) []domain.BatchResult {
	results := make([]domain.BatchResult, len(uploads))
	for i, u := range uploads {
		results[i] = domain.BatchResult{Filename: u.Filename, Report: m.report, Err: m.err}
	}
	return results
}

func (m *mockReportService) Get(_ context.Context, documentID string) (*domain.Report, error) {
	m.lastID = documentID
	return m.report, m.err
}

func (m *mockReportService) List(_ context.Context, _ int) ([]domain.ReportSummary, error) {
	return m.summaries, m.err
}

// mockContextService is a mock implementation of driving.ContextService.
type mockContextService struct {
	hits      []domain.SearchHit
	err       error
	lastQuery string
	lastK     int
}

func (m *mockContextService) Search(_ context.Context, query string, k int) ([]domain.SearchHit, error) {
	m.lastQuery = query
	m.lastK = k
	return m.hits, m.err
}

func (m *mockContextService) Purge(_ context.Context, _ string) error {
	return m.err
}

func (m *mockContextService) Stats(_ context.Context) (int, error) {
	return len(m.hits), m.err
}

func sampleReport() *domain.Report {
	followUp := time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC)
	return &domain.Report{
		DocumentID:   "doc-1",
		Filename:     "visit.txt",
		Timestamp:    time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC),
		Demographics: domain.Demographics{Name: "John Doe", Age: domain.KnownAge(45)},
		Findings:     []string{"Diagnosed with Type 2 Diabetes."},
		Conditions:   []domain.Condition{{Label: "diabetes", Name: "Diabetes Mellitus"}},
		Medications: []domain.Medication{
			{Name: "Metformin", Dosage: "500 mg twice daily", Notes: "with meals"},
		},
		Prescribed:          []domain.PrescribedMedication{},
		RecoveryEstimate:    domain.RecoveryEstimate{Unit: domain.RecoveryVaries, Note: "Chronic condition"},
		Diet:                domain.Diet{Eat: []string{"Leafy greens"}, Avoid: []string{"Sugary drinks"}},
		FollowUpDate:        &followUp,
		RetrievalProvenance: []string{},
		RetrievalStatus:     domain.RetrievalOK,
	}
}
