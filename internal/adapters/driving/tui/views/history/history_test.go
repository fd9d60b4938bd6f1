package history

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
)

type stubReports struct {
	summaries []domain.ReportSummary
	err       error
	limit     int
}

func (s *stubReports) Process(context.Context, domain.Upload, ...driving.ProcessOption) (*domain.Report, error) {
	return nil, errors.New("not implemented")
}

func (s *stubReports) ProcessText(context.Context, domain.RawText, ...driving.ProcessOption) (*domain.Report, error) {
	return nil, errors.New("not implemented")
}

func (s *stubReports) ProcessBatch(context.Context, []domain.Upload, ...driving.ProcessOption) []domain.BatchResult {
	return nil
}

func (s *stubReports) Get(context.Context, string) (*domain.Report, error) {
	return nil, domain.ErrNotFound
}

func (s *stubReports) List(_ context.Context, limit int) ([]domain.ReportSummary, error) {
	s.limit = limit
	return s.summaries, s.err
}

func summaries() []domain.ReportSummary {
	return []domain.ReportSummary{
		{DocumentID: "doc-2", Filename: "april.txt", CreatedAt: time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)},
		{
			DocumentID: "doc-1", Filename: "march.txt",
			CreatedAt:  time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC),
			Conditions: []string{"diabetes", "hypertension"},
		},
	}
}

func loaded(t *testing.T, svc *stubReports) *View {
	t.Helper()
	v := NewView(nil, nil, svc)
	v.SetDimensions(80, 30)

	cmd := v.Init()
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())
	return v
}

func TestView_Load(t *testing.T) {
	svc := &stubReports{summaries: summaries()}
	v := loaded(t, svc)

	assert.Equal(t, Limit, svc.limit)
	assert.Equal(t, 2, v.Count())
	assert.NoError(t, v.Err())

	view := v.View()
	assert.Contains(t, view, "april.txt")
	assert.Contains(t, view, "march.txt")
}

func TestView_LoadError(t *testing.T) {
	v := loaded(t, &stubReports{err: errors.New("database locked")})

	require.Error(t, v.Err())
	assert.Contains(t, v.View(), "database locked")
}

func TestView_Empty(t *testing.T) {
	v := loaded(t, &stubReports{})
	assert.Contains(t, v.View(), "No reports yet")
}

func TestView_WithoutService(t *testing.T) {
	v := NewView(nil, nil, nil)
	msg := v.Init()()

	reports, ok := msg.(messages.ReportsLoaded)
	require.True(t, ok)
	assert.Error(t, reports.Err)
}

func TestView_SelectEmitsReportSelected(t *testing.T) {
	v := loaded(t, &stubReports{summaries: summaries()})

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	selected, ok := v.Selected()
	require.True(t, ok)
	assert.Equal(t, "doc-1", selected.DocumentID)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ReportSelected{DocumentID: "doc-1"}, cmd())
}

func TestView_Back(t *testing.T) {
	v := loaded(t, &stubReports{summaries: summaries()})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_Refresh(t *testing.T) {
	svc := &stubReports{summaries: summaries()[:1]}
	v := loaded(t, svc)
	assert.Equal(t, 1, v.Count())

	svc.summaries = summaries()
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())

	assert.Equal(t, 2, v.Count())
}

func TestItem(t *testing.T) {
	s := summaries()

	plain := item{summary: s[0]}
	assert.Equal(t, "april.txt", plain.Title())
	assert.Contains(t, plain.Description(), "no specific condition")

	withConditions := item{summary: s[1]}
	assert.Equal(t, "2025-03-10 15:30  diabetes, hypertension", withConditions.Description())
	assert.Contains(t, withConditions.FilterValue(), "hypertension")
}
