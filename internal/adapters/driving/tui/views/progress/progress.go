// Package progress shows pipeline stages while a document is processed.
package progress

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medreport/internal/core/domain"
)

// View renders a spinner and the state of every pipeline stage.
type View struct {
	styles   *styles.Styles
	spinner  spinner.Model
	filename string

	statuses map[domain.Stage]domain.StageStatus
	notes    map[domain.Stage]string
	current  domain.Stage
	done     bool
	err      error
	width    int
}

// NewView creates a progress view for filename.
func NewView(s *styles.Styles, filename string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles:   s,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(s.Spinner)),
		filename: filename,
		statuses: make(map[domain.Stage]domain.StageStatus),
		notes:    make(map[domain.Stage]string),
		width:    80,
	}
}

// Init starts the spinner.
func (v *View) Init() tea.Cmd {
	return v.spinner.Tick
}

// Update handles messages for the progress view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		return v, nil

	case messages.StageUpdated:
		v.apply(msg.Event)
		return v, nil

	case messages.ProcessingFinished:
		v.done = true
		v.err = msg.Err
		return v, nil

	case spinner.TickMsg:
		if v.done {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}

	return v, nil
}

func (v *View) apply(e domain.ProgressEvent) {
	if e.Filename != "" {
		v.filename = e.Filename
	}
	v.statuses[e.Stage] = e.Status
	if e.Message != "" {
		v.notes[e.Stage] = e.Message
	}
	if e.Status == domain.StatusStarted {
		v.current = e.Stage
	}
}

// View renders the progress view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Processing " + v.filename))
	b.WriteString("\n\n")

	for _, stage := range domain.Stages() {
		status, seen := v.statuses[stage]
		if !seen {
			continue
		}
		b.WriteString(v.renderStage(stage, status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case v.done:
		b.WriteString(v.styles.Success.Render("Report ready"))
	default:
		b.WriteString(v.spinner.View())
		b.WriteString(" ")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%s...", v.current)))
	}
	return b.String()
}

func (v *View) renderStage(stage domain.Stage, status domain.StageStatus) string {
	marker := "•"
	switch status {
	case domain.StatusCompleted:
		marker = "✓"
	case domain.StatusDegraded:
		marker = "!"
	case domain.StatusFailed:
		marker = "✗"
	case domain.StatusStarted:
		if !v.done {
			marker = v.spinner.View()
		}
	}

	line := fmt.Sprintf("  %s %-13s %s", marker, stage, status)
	if note := v.notes[stage]; note != "" {
		line += "  " + v.styles.Muted.Render(note)
	}
	return v.styles.ForStatus(status).Render(line)
}

// Status returns the last status seen for stage.
func (v *View) Status(stage domain.Stage) (domain.StageStatus, bool) {
	s, ok := v.statuses[stage]
	return s, ok
}

// Done reports whether processing has finished.
func (v *View) Done() bool {
	return v.done
}

// Err returns the processing error, if any.
func (v *View) Err() error {
	return v.err
}
