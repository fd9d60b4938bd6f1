// Package history lists previously generated reports.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
)

// Limit is the number of history entries loaded.
const Limit = 100

// item adapts a report summary to the bubbles list.
type item struct {
	summary domain.ReportSummary
}

func (i item) Title() string {
	return i.summary.Filename
}

func (i item) Description() string {
	conditions := "no specific condition"
	if len(i.summary.Conditions) > 0 {
		conditions = strings.Join(i.summary.Conditions, ", ")
	}
	return fmt.Sprintf("%s  %s", i.summary.CreatedAt.Format("2006-01-02 15:04"), conditions)
}

func (i item) FilterValue() string {
	return i.summary.Filename + " " + strings.Join(i.summary.Conditions, " ")
}

// View is the report history list.
type View struct {
	styles        *styles.Styles
	keymap        *keymap.KeyMap
	reportService driving.ReportService
	ctx           context.Context

	list    list.Model
	loading bool
	err     error
}

// NewView creates a new history view.
func NewView(s *styles.Styles, km *keymap.KeyMap, reportService driving.ReportService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	l := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	l.Title = "Report History"
	l.Styles.Title = s.Title
	l.SetShowHelp(false)
	l.SetStatusBarItemName("report", "reports")
	l.DisableQuitKeybindings()

	return &View{
		styles:        s,
		keymap:        km,
		reportService: reportService,
		ctx:           context.Background(),
		list:          l,
	}
}

// WithContext sets the context used for loading history.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the report history.
func (v *View) Init() tea.Cmd {
	return v.load()
}

func (v *View) load() tea.Cmd {
	v.loading = true
	svc := v.reportService
	ctx := v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.ReportsLoaded{Err: fmt.Errorf("report service not available")}
		}
		reports, err := svc.List(ctx, Limit)
		return messages.ReportsLoaded{Reports: reports, Err: err}
	}
}

// Update handles messages for the history view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.ReportsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		items := make([]list.Item, len(msg.Reports))
		for i, r := range msg.Reports {
			items[i] = item{summary: r}
		}
		return v, v.list.SetItems(items)

	case tea.KeyMsg:
		if v.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case keymap.Matches(msg.String(), v.keymap.Back):
			if v.list.FilterState() == list.FilterApplied {
				v.list.ResetFilter()
				return v, nil
			}
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		case keymap.Matches(msg.String(), v.keymap.Refresh):
			return v, v.load()
		case keymap.Matches(msg.String(), v.keymap.Select):
			selected, ok := v.list.SelectedItem().(item)
			if !ok {
				return v, nil
			}
			id := selected.summary.DocumentID
			return v, func() tea.Msg {
				return messages.ReportSelected{DocumentID: id}
			}
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// View renders the history view.
func (v *View) View() string {
	var b strings.Builder

	switch {
	case v.loading:
		b.WriteString(v.styles.Title.Render("Report History"))
		b.WriteString("\n\n")
		b.WriteString(v.styles.Muted.Render("Loading reports..."))
	case v.err != nil:
		b.WriteString(v.styles.Title.Render("Report History"))
		b.WriteString("\n\n")
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.list.Items()) == 0:
		b.WriteString(v.styles.Title.Render("Report History"))
		b.WriteString("\n\n")
		b.WriteString(v.styles.Muted.Render("No reports yet. Process a document with `medreport process <file>`."))
	default:
		b.WriteString(v.list.View())
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[enter] open  [/] filter  [r] refresh  [esc] back"))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.list.SetSize(width, max(height-3, 1))
}

// Count returns the number of loaded entries.
func (v *View) Count() int {
	return len(v.list.Items())
}

// Selected returns the highlighted summary, if any.
func (v *View) Selected() (domain.ReportSummary, bool) {
	selected, ok := v.list.SelectedItem().(item)
	return selected.summary, ok
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
