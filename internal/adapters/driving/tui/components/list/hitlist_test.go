package list

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

func testHits() []domain.SearchHit {
	return []domain.SearchHit{
		{Record: domain.EmbeddingRecord{DocumentID: "d1", Filename: "march.txt", Position: 0, Content: "Diagnosed with asthma."}, Score: 0.91},
		{Record: domain.EmbeddingRecord{DocumentID: "d2", Filename: "april.txt", Position: 2, Content: "Inhaler twice daily."}, Score: 0.55},
		{Record: domain.EmbeddingRecord{DocumentID: "d3", Position: 1, Content: "No wheezing."}, Score: 0.12},
	}
}

func TestHitList_Empty(t *testing.T) {
	l := NewHitList(nil)

	assert.True(t, l.IsEmpty())
	assert.Nil(t, l.SelectedHit())
	assert.Contains(t, l.View(), "No related context")
}

func TestHitList_Navigation(t *testing.T) {
	l := NewHitList(nil)
	l.SetHits(testHits())

	l.MoveUp()
	assert.Equal(t, 0, l.Selected())

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, l.Selected())

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 2, l.Selected())

	l.MoveDown()
	assert.Equal(t, 2, l.Selected())

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 1, l.Selected())

	hit := l.SelectedHit()
	require.NotNil(t, hit)
	assert.Equal(t, "d2", hit.Record.DocumentID)
}

func TestHitList_SetHitsResetsSelection(t *testing.T) {
	l := NewHitList(nil)
	l.SetHits(testHits())
	l.SetSelected(2)

	l.SetHits(testHits()[:1])

	assert.Equal(t, 0, l.Selected())
	assert.Equal(t, 1, l.Count())
}

func TestHitList_SetSelectedOutOfRange(t *testing.T) {
	l := NewHitList(nil)
	l.SetHits(testHits())

	l.SetSelected(10)
	assert.Equal(t, 0, l.Selected())
	l.SetSelected(-1)
	assert.Equal(t, 0, l.Selected())
}

func TestHitList_View(t *testing.T) {
	l := NewHitList(nil)
	l.SetDimensions(80, 20)
	l.SetHits(testHits())

	view := l.View()

	assert.Contains(t, view, "Related chunks (3)")
	assert.Contains(t, view, "march.txt #1")
	assert.Contains(t, view, "0.91")
	assert.Contains(t, view, "d3 #2")
	assert.Contains(t, view, "Inhaler twice daily.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
