// Package input provides the query field used by the context search view.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/styles"
)

// HistorySize is the number of submitted queries kept for recall.
const HistorySize = 20

const minFieldWidth = 20

// QueryInput is a single-line query field that remembers recent queries.
// Up and down recall earlier submissions while the field has focus.
type QueryInput struct {
	field   textinput.Model
	styles  *styles.Styles
	width   int
	history []string
	cursor  int
	draft   string
}

// NewQueryInput returns a focused query field.
func NewQueryInput(s *styles.Styles) *QueryInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	field := textinput.New()
	field.Prompt = "> "
	field.Placeholder = "symptom, medication or condition"
	field.CharLimit = 512
	field.Width = 50
	field.Focus()

	return &QueryInput{field: field, styles: s, width: 50}
}

// Init starts the cursor blink.
func (q *QueryInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles typing and history recall.
func (q *QueryInput) Update(msg tea.Msg) (*QueryInput, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && q.field.Focused() {
		switch key.Type {
		case tea.KeyUp:
			q.recall(-1)
			return q, nil
		case tea.KeyDown:
			q.recall(1)
			return q, nil
		}
	}

	var cmd tea.Cmd
	q.field, cmd = q.field.Update(msg)
	return q, cmd
}

// recall moves through history by step. Moving past the newest entry
// restores what was being typed before recall started.
func (q *QueryInput) recall(step int) {
	if len(q.history) == 0 {
		return
	}
	if q.cursor == len(q.history) {
		q.draft = q.field.Value()
	}

	q.cursor = min(max(q.cursor+step, 0), len(q.history))
	if q.cursor == len(q.history) {
		q.field.SetValue(q.draft)
	} else {
		q.field.SetValue(q.history[q.cursor])
	}
	q.field.CursorEnd()
}

// Remember records a submitted query. Blank queries and immediate repeats
// are ignored.
func (q *QueryInput) Remember(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	if n := len(q.history); n == 0 || q.history[n-1] != query {
		q.history = append(q.history, query)
		if len(q.history) > HistorySize {
			q.history = q.history[len(q.history)-HistorySize:]
		}
	}
	q.cursor = len(q.history)
	q.draft = ""
}

// History returns the remembered queries, oldest first.
func (q *QueryInput) History() []string {
	return append([]string(nil), q.history...)
}

// View renders the label and field.
func (q *QueryInput) View() string {
	label := q.styles.Title.Render("Context")
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, " ", q.styles.InputField.Render(q.field.View()))
}

// Value returns the raw field contents.
func (q *QueryInput) Value() string {
	return q.field.Value()
}

// Query returns the field contents with surrounding space removed.
func (q *QueryInput) Query() string {
	return strings.TrimSpace(q.field.Value())
}

// SetValue replaces the field contents.
func (q *QueryInput) SetValue(value string) {
	q.field.SetValue(value)
}

// Focus gives the field keyboard focus.
func (q *QueryInput) Focus() tea.Cmd {
	return q.field.Focus()
}

// Blur removes keyboard focus.
func (q *QueryInput) Blur() {
	q.field.Blur()
}

// Focused reports whether the field has keyboard focus.
func (q *QueryInput) Focused() bool {
	return q.field.Focused()
}

// SetWidth sizes the field to fit width, leaving room for the label.
func (q *QueryInput) SetWidth(width int) {
	q.width = width
	q.field.Width = max(width-12, minFieldWidth)
}

// Width returns the width last set.
func (q *QueryInput) Width() int {
	return q.width
}

// Reset clears the field and ends any recall in progress.
func (q *QueryInput) Reset() {
	q.field.Reset()
	q.cursor = len(q.history)
	q.draft = ""
}
