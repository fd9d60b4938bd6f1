package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
)

// mockReportService returns canned reports keyed by filename.
type mockReportService struct {
	mu        sync.Mutex
	failFor   map[string]error
	processed []string
	reports   map[string]*domain.Report
}

func newMockReportService() *mockReportService {
	return &mockReportService{
		failFor: make(map[string]error),
		reports: map[string]*domain.Report{"doc-1": sampleReport()},
	}
}

func (m *mockReportService) Process(
	_ context.Context, upload domain.Upload, opts ...driving.ProcessOption,
) (*domain.Report, error) {
	m.mu.Lock()
	m.processed = append(m.processed, upload.Filename)
	failure := m.failFor[upload.Filename]
	m.mu.Unlock()

	o := driving.ApplyProcessOptions(opts...)
	emit := func(stage domain.Stage, status domain.StageStatus, msg string) {
		if o.Progress != nil {
			o.Progress.Emit(domain.ProgressEvent{Filename: upload.Filename, Stage: stage, Status: status, Message: msg})
		}
	}

	emit(domain.StageValidating, domain.StatusStarted, "")
	if failure != nil {
		emit(domain.StageValidating, domain.StatusFailed, failure.Error())
		return nil, &domain.StageError{Stage: domain.StageValidating, Filename: upload.Filename, Err: failure}
	}
	emit(domain.StageValidating, domain.StatusCompleted, "")
	emit(domain.StageRetrieving, domain.StatusDegraded, "embedding timed out")
	emit(domain.StageComplete, domain.StatusCompleted, "")

	r := sampleReport()
	r.Filename = upload.Filename
	r.DocumentID = "doc-" + upload.Filename
	if o.FollowUp != nil {
		date := *o.FollowUp
		r.FollowUpDate = &date
		r.FollowUpCue = domain.FollowUpUserCue
	}
	return r, nil
}

func (m *mockReportService) ProcessText(
	ctx context.Context, raw domain.RawText, opts ...driving.ProcessOption,
) (*domain.Report, error) {
	return m.Process(ctx, domain.Upload{Filename: raw.Filename, Content: []byte(raw.Text)}, opts...)
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
	r, ok := m.reports[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (m *mockReportService) List(_ context.Context, limit int) ([]domain.ReportSummary, error) {
	summaries := make([]domain.ReportSummary, 0, len(m.reports))
	for _, r := range m.reports {
		summaries = append(summaries, domain.ReportSummary{
			DocumentID: r.DocumentID,
			Filename:   r.Filename,
			CreatedAt:  r.Timestamp,
			Conditions: r.ConditionLabels(),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].DocumentID < summaries[j].DocumentID })
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (m *mockReportService) Processed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.processed...)
}

type mockContextService struct {
	hits      []domain.SearchHit
	searchErr error
	purged    []string
	lastK     int
}

func (m *mockContextService) Search(_ context.Context, _ string, k int) ([]domain.SearchHit, error) {
	m.lastK = k
	return m.hits, m.searchErr
}

func (m *mockContextService) Purge(_ context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	m.purged = append(m.purged, id)
	return nil
}

func (m *mockContextService) Stats(context.Context) (int, error) {
	return len(m.hits), nil
}

type mockSettingsService struct {
	values      map[string]string
	keys        []string
	validateErr error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		keys: []string{"pipeline.chunk_size", "embedding.provider", "embedding.model", "embedding.base_url", "embedding.api_key"},
		values: map[string]string{
			"pipeline.chunk_size": "500",
			"embedding.provider":  "local",
			"embedding.model":     "hashing-384",
		},
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := domain.DefaultAppSettings()
	return &s, nil
}

func (m *mockSettingsService) Save(*domain.AppSettings) error { return nil }

func (m *mockSettingsService) Set(key, value string) error {
	if _, err := m.Lookup(key); err != nil {
		return err
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string { return m.keys }

func (m *mockSettingsService) Lookup(key string) (string, error) {
	for _, k := range m.keys {
		if k == key {
			return m.values[key], nil
		}
	}
	return "", fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.validateErr }

func (m *mockSettingsService) Path() string { return "/tmp/medreport/config.toml" }

func sampleReport() *domain.Report {
	followUp := time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC)
	return &domain.Report{
		DocumentID:          "doc-1",
		Filename:            "visit.txt",
		Timestamp:           time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC),
		Demographics:        domain.Demographics{Name: "John Doe", Age: domain.KnownAge(45)},
		Conditions:          []domain.Condition{{Label: "diabetes", Name: "Diabetes Mellitus"}},
		Medications:         []domain.Medication{{Name: "Metformin", Dosage: "500 mg twice daily"}},
		Diet:                domain.Diet{Eat: []string{"Leafy greens"}, Avoid: []string{"Sugary drinks"}},
		FollowUpDate:        &followUp,
		RetrievalProvenance: []string{},
		RetrievalStatus:     domain.RetrievalOK,
	}
}

type testServices struct {
	reports  *mockReportService
	context  *mockContextService
	settings *mockSettingsService
}

// setupTestServices installs mock services and returns a cleanup function
// that also resets command flags.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		reports: newMockReportService(),
		context: &mockContextService{hits: []domain.SearchHit{{
			Record: domain.EmbeddingRecord{
				ChunkID: "doc-1#0", DocumentID: "doc-1", Filename: "march.txt",
				Content: "Patient on metformin 500 mg\nfor type 2 diabetes.",
			},
			Score: 0.87,
		}}},
		settings: newMockSettingsService(),
	}
	SetServices(&Services{Reports: ts.reports, Context: ts.context, Settings: ts.settings})

	return ts, func() {
		SetServices(nil)
		resetFlags()
	}
}

func resetFlags() {
	processJSON, processStdin, processPlain = false, false, false
	processName, processFollowUp = "stdin.txt", ""
	searchJSON, searchLimit = false, 5
	reportsJSON, reportsLimit = false, 20
	verbose, configDir = false, ""
	rootCmd.SetArgs(nil)
	rootCmd.SetIn(nil)
}

// execute runs the root command with args and returns combined output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

var errBoom = errors.New("boom")
