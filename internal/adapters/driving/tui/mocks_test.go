package tui

import (
	"context"
	"time"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
)

type mockReportService struct {
	report    *domain.Report
	err       error
	summaries []domain.ReportSummary
	events    []domain.ProgressEvent
}

func (m *mockReportService) Process(
	_ context.Context, upload domain.Upload, opts ...driving.ProcessOption,
) (*domain.Report, error) {
	o := driving.ApplyProcessOptions(opts...)
	for _, e := range m.events {
		e.Filename = upload.Filename
		if o.Progress != nil {
			o.Progress.Emit(e)
		}
	}
	return m.report, m.err
}

func (m *mockReportService) ProcessText(
	ctx context.Context, raw domain.RawText, opts ...driving.ProcessOption,
) (*domain.Report, error) {
	return m.Process(ctx, domain.Upload{Filename: raw.Filename}, opts...)
}

func (m *mockReportService) ProcessBatch(
	ctx context.Context, uploads []domain.Upload, opts ...driving.ProcessOption,
) []domain.BatchResult {
	results := make([]domain.BatchResult, len(uploads))
	for i, u := range uploads {
		r, err := m.Process(ctx, u, opts...)
		results[i] = domain.BatchResult{Filename: u.Filename, Report: r, Err: err}
	}
	return results
}

func (m *mockReportService) Get(_ context.Context, id string) (*domain.Report, error) {
	if m.report == nil || m.report.DocumentID != id {
		return nil, domain.ErrNotFound
	}
	return m.report, nil
}

func (m *mockReportService) List(context.Context, int) ([]domain.ReportSummary, error) {
	return m.summaries, nil
}

type mockContextService struct {
	hits []domain.SearchHit
}

func (m *mockContextService) Search(context.Context, string, int) ([]domain.SearchHit, error) {
	return m.hits, nil
}

func (m *mockContextService) Purge(context.Context, string) error {
	return nil
}

func (m *mockContextService) Stats(context.Context) (int, error) {
	return len(m.hits), nil
}

func sampleReport() *domain.Report {
	return &domain.Report{
		DocumentID:      "doc-1",
		Filename:        "visit.txt",
		Timestamp:       time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC),
		Demographics:    domain.Demographics{Name: "John Doe", Age: domain.KnownAge(45)},
		Conditions:      []domain.Condition{{Label: "diabetes", Name: "Diabetes Mellitus"}},
		RetrievalStatus: domain.RetrievalOK,
	}
}
