// Package report provides the scrollable single report view for the TUI.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medreport/internal/clinical/assembler"
	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
)

// reserved is the number of rows used by the title, separator and footer.
const reserved = 6

// View shows one rendered report in a viewport.
type View struct {
	styles        *styles.Styles
	keymap        *keymap.KeyMap
	reportService driving.ReportService
	ctx           context.Context

	viewport viewport.Model
	report   *domain.Report
	back     messages.ViewType
	width    int
	height   int
	loading  bool
	err      error
}

// NewView creates a new report view.
func NewView(s *styles.Styles, km *keymap.KeyMap, reportService driving.ReportService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		reportService: reportService,
		ctx:           context.Background(),
		viewport:      viewport.New(80, 24-reserved),
		back:          messages.ViewHistory,
		width:         80,
		height:        24,
	}
}

// WithContext sets the context used for loading reports.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetBack sets the view that esc returns to.
func (v *View) SetBack(view messages.ViewType) {
	v.back = view
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load returns a command fetching a stored report.
func (v *View) Load(documentID string) tea.Cmd {
	v.loading = true
	v.err = nil
	svc := v.reportService
	ctx := v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.ReportLoaded{Err: fmt.Errorf("report service not available")}
		}
		r, err := svc.Get(ctx, documentID)
		return messages.ReportLoaded{Report: r, Err: err}
	}
}

// SetReport renders r into the viewport.
func (v *View) SetReport(r *domain.Report) {
	v.report = r
	v.loading = false
	v.err = nil
	v.refresh()
	v.viewport.GotoTop()
}

// Update handles messages for the report view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.ReportLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.SetReport(msg.Report)
		return v, nil

	case tea.KeyMsg:
		switch {
		case keymap.Matches(msg.String(), v.keymap.Back):
			back := v.back
			return v, func() tea.Msg {
				return messages.ViewChanged{View: back}
			}
		case keymap.Matches(msg.String(), v.keymap.Top):
			v.viewport.GotoTop()
			return v, nil
		case keymap.Matches(msg.String(), v.keymap.Bottom):
			v.viewport.GotoBottom()
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v *View) refresh() {
	if v.report == nil {
		v.viewport.SetContent("")
		return
	}
	var b strings.Builder
	if err := assembler.Render(&b, v.report); err != nil {
		v.err = err
		return
	}
	v.viewport.SetContent(b.String())
}

// View renders the report view.
func (v *View) View() string {
	var b strings.Builder

	title := "Report"
	if v.report != nil {
		title = v.report.Filename
	}
	b.WriteString(v.styles.Title.Render(title))
	if v.report != nil {
		b.WriteString("  ")
		b.WriteString(v.styles.ForRetrieval(v.report.RetrievalStatus).
			Render("retrieval: " + string(v.report.RetrievalStatus)))
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(v.width-4, 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading report..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case v.report == nil:
		b.WriteString(v.styles.Muted.Render("(No report)"))
	default:
		b.WriteString(v.viewport.View())
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%3.f%%]", v.viewport.ScrollPercent()*100)))
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render(keymap.HelpLine(v.keymap.ReportHelp(), "  ")))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = max(width-4, 20)
	v.viewport.Height = max(height-reserved, 1)
	v.refresh()
}

// Report returns the displayed report.
func (v *View) Report() *domain.Report {
	return v.report
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Loading reports whether a fetch is in flight.
func (v *View) Loading() bool {
	return v.loading
}
