package search

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medreport/internal/core/domain"
)

type stubContext struct {
	hits  []domain.SearchHit
	err   error
	query string
	k     int
}

func (s *stubContext) Search(_ context.Context, query string, k int) ([]domain.SearchHit, error) {
	s.query = query
	s.k = k
	return s.hits, s.err
}

func (s *stubContext) Purge(context.Context, string) error {
	return nil
}

func (s *stubContext) Stats(context.Context) (int, error) {
	return len(s.hits), nil
}

func hits() []domain.SearchHit {
	return []domain.SearchHit{
		{Record: domain.EmbeddingRecord{ChunkID: "a#0", DocumentID: "doc-a", Filename: "march.txt", Content: "metformin 500 mg"}, Score: 0.91},
		{Record: domain.EmbeddingRecord{ChunkID: "b#1", DocumentID: "doc-b", Filename: "april.txt", Position: 1, Content: "blood sugar"}, Score: 0.72},
	}
}

func typeQuery(v *View, query string) *View {
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(query)})
	return v
}

func TestView_NotReady(t *testing.T) {
	v := NewView(nil, nil, nil)
	assert.Equal(t, "Initialising...", v.View())
}

func TestView_Search(t *testing.T) {
	svc := &stubContext{hits: hits()}
	v := NewView(nil, nil, svc)
	v.SetDimensions(100, 40)

	v = typeQuery(v, "metformin")
	assert.Equal(t, "metformin", v.Query())

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, v.InputFocused())

	v, _ = v.Update(cmd())

	assert.Equal(t, "metformin", svc.query)
	assert.Equal(t, DefaultLimit, svc.k)
	assert.Len(t, v.Hits(), 2)
	assert.Contains(t, v.View(), "march.txt")
}

func TestView_EmptyQueryIgnored(t *testing.T) {
	v := NewView(nil, nil, &stubContext{})
	v.SetDimensions(80, 24)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.True(t, v.InputFocused())
}

func TestView_SearchError(t *testing.T) {
	v := NewView(nil, nil, &stubContext{err: domain.ErrIndexUnavailable})
	v.SetDimensions(80, 24)

	v = typeQuery(v, "cough")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v, _ = v.Update(cmd())

	require.ErrorIs(t, v.Err(), domain.ErrIndexUnavailable)
	assert.Contains(t, v.View(), "vector index unavailable")
}

func TestView_WithoutService(t *testing.T) {
	v := NewView(nil, nil, nil)
	v.SetDimensions(80, 24)

	v = typeQuery(v, "cough")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msg := cmd()

	assert.Equal(t, messages.ErrorOccurred{Err: ErrNoContextService}, msg)
	v, _ = v.Update(msg)
	assert.True(t, errors.Is(v.Err(), ErrNoContextService))
}

func TestView_OpenSelectedHit(t *testing.T) {
	v := NewView(nil, nil, &stubContext{hits: hits()})
	v.SetDimensions(100, 40)
	v, _ = v.Update(messages.SearchCompleted{Hits: hits()})

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, v.SelectedIndex())

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ReportSelected{DocumentID: "doc-b"}, cmd())
}

func TestView_NewSearch(t *testing.T) {
	v := NewView(nil, nil, &stubContext{})
	v.SetDimensions(80, 24)
	v.SetQuery("old")
	v, _ = v.Update(messages.SearchCompleted{Hits: hits()})
	require.False(t, v.InputFocused())

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})

	assert.True(t, v.InputFocused())
	assert.Empty(t, v.Query())
}

func TestView_Back(t *testing.T) {
	v := NewView(nil, nil, nil)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_Reset(t *testing.T) {
	v := NewView(nil, nil, nil)
	v.SetQuery("cough")
	v, _ = v.Update(messages.SearchCompleted{Hits: hits()})

	v.Reset()

	assert.True(t, v.InputFocused())
	assert.Empty(t, v.Query())
	assert.Empty(t, v.Hits())
	assert.NoError(t, v.Err())
}
