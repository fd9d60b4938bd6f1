package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/views/progress"
	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/views/report"
	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
)

// ProcessModel follows a single pipeline run and then shows its report.
type ProcessModel struct {
	keymap       *keymap.KeyMap
	progressView *progress.View
	reportView   *report.View
	cancel       context.CancelFunc

	result   *domain.Report
	err      error
	finished bool
}

// Ensure ProcessModel implements tea.Model.
var _ tea.Model = (*ProcessModel)(nil)

// NewProcessModel creates a model for processing filename. cancel is called
// when the user quits before the run finishes; it may be nil.
func NewProcessModel(filename string, cancel context.CancelFunc) *ProcessModel {
	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	return &ProcessModel{
		keymap:       km,
		progressView: progress.NewView(s, filename),
		reportView:   report.NewView(s, km, nil),
		cancel:       cancel,
	}
}

// Init implements tea.Model.
func (m *ProcessModel) Init() tea.Cmd {
	return m.progressView.Init()
}

// Update implements tea.Model.
func (m *ProcessModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.reportView.SetDimensions(msg.Width, msg.Height)
		m.progressView, cmd = m.progressView.Update(msg)
		return m, cmd

	case messages.ProcessingFinished:
		m.finished = true
		m.result = msg.Report
		m.err = msg.Err
		m.progressView, _ = m.progressView.Update(msg)
		if msg.Report != nil {
			m.reportView.SetReport(msg.Report)
		}
		return m, nil

	case messages.ViewChanged:
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || keymap.Matches(msg.String(), m.keymap.Quit) {
			if !m.finished && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		if !m.finished {
			return m, nil
		}
		if m.result == nil {
			return m, tea.Quit
		}
		m.reportView, cmd = m.reportView.Update(msg)
		return m, cmd
	}

	if m.result != nil {
		m.reportView, cmd = m.reportView.Update(msg)
		return m, cmd
	}
	m.progressView, cmd = m.progressView.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *ProcessModel) View() string {
	if m.result != nil {
		return m.reportView.View()
	}
	return m.progressView.View()
}

// Result returns the outcome of the run once it has finished.
func (m *ProcessModel) Result() (*domain.Report, error) {
	return m.result, m.err
}

// Finished reports whether the run has completed.
func (m *ProcessModel) Finished() bool {
	return m.finished
}

// RunProcess processes upload with live stage updates, then lets the user
// read the report. It returns the pipeline outcome.
func RunProcess(ctx context.Context, reports driving.ReportService, upload domain.Upload, opts ...driving.ProcessOption) (*domain.Report, error) {
	if reports == nil {
		return nil, ErrMissingReportService
	}
	if len(upload.Content) == 0 && upload.Filename == "" {
		return nil, ErrNoInput
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewProcessModel(upload.Filename, cancel)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		sink := driven.ProgressFunc(func(e domain.ProgressEvent) {
			p.Send(messages.StageUpdated{Event: e})
		})
		r, err := reports.Process(ctx, upload, append(opts, driving.WithProgress(sink))...)
		p.Send(messages.ProcessingFinished{Report: r, Err: err})
	}()

	if _, err := p.Run(); err != nil && !model.Finished() {
		return nil, err
	}
	if !model.Finished() {
		return nil, context.Canceled
	}
	return model.Result()
}
