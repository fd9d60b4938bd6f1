// Package status provides the status line shown under search results.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medreport/internal/core/domain"
)

// State is what the status line is currently reporting.
type State string

// Status line states.
const (
	StateReady     State = "ready"
	StateSearching State = "searching"
	StateResults   State = "results"
	StateError     State = "error"
)

// Bar renders a one-line summary on the left and key hints on the right.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	state  State
	query  string
	count  int
	err    error
	hints  []key.Binding
	width  int
}

// NewBar creates a status line.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateReady, width: 80}
}

// Searching marks a query as in flight.
func (b *Bar) Searching(query string) {
	b.state, b.query, b.count, b.err = StateSearching, query, 0, nil
}

// Results records the outcome of a query.
func (b *Bar) Results(query string, count int) {
	b.state, b.query, b.count, b.err = StateResults, query, count, nil
}

// Fail records a failed query.
func (b *Bar) Fail(err error) {
	b.state, b.count, b.err = StateError, 0, err
}

// Degraded reports whether the last failure only affected retrieval.
func (b *Bar) Degraded() bool {
	return b.state == StateError && domain.IsRetrievalError(b.err)
}

// View renders the status line.
func (b *Bar) View() string {
	left, right := b.summary(), b.hintLine()
	pad := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", pad) + right)
}

func (b *Bar) summary() string {
	switch b.state {
	case StateSearching:
		return b.styles.Muted.Render(fmt.Sprintf("Searching for %q...", b.query))
	case StateResults:
		switch b.count {
		case 0:
			return b.styles.Muted.Render(fmt.Sprintf("No passages match %q", b.query))
		case 1:
			return b.styles.Normal.Render(fmt.Sprintf("1 passage for %q", b.query))
		default:
			return b.styles.Normal.Render(fmt.Sprintf("%d passages for %q", b.count, b.query))
		}
	case StateError:
		if b.err == nil {
			return b.styles.Error.Render("Error")
		}
		if b.Degraded() {
			return b.styles.Warning.Render("Retrieval unavailable: " + b.err.Error())
		}
		return b.styles.Error.Render("Error: " + b.err.Error())
	}
	return b.styles.Muted.Render("Type a query and press enter")
}

func (b *Bar) hintLine() string {
	bindings := b.hints
	if bindings == nil {
		if b.state == StateResults && b.count > 0 {
			bindings = b.keymap.ResultsHelp()
		} else {
			bindings = b.keymap.ShortHelp()
		}
	}
	return b.styles.Muted.Render(keymap.HelpLine(bindings, " | "))
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// Query returns the last query reported.
func (b *Bar) Query() string {
	return b.query
}

// ResultCount returns the number of hits last reported.
func (b *Bar) ResultCount() int {
	return b.count
}

// Err returns the last failure.
func (b *Bar) Err() error {
	return b.err
}

// SetHints overrides the key hints. Nil restores the defaults.
func (b *Bar) SetHints(bindings []key.Binding) {
	b.hints = bindings
}

// SetWidth sets the rendered width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Width returns the rendered width.
func (b *Bar) Width() int {
	return b.width
}

// Clear returns the bar to its initial state.
func (b *Bar) Clear() {
	b.state, b.query, b.count, b.err = StateReady, "", 0, nil
}
