// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/medreport/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewHistory lists previously generated reports.
	ViewHistory
	// ViewReport shows a single report.
	ViewReport
	// ViewSearch searches previously processed documents.
	ViewSearch
	// ViewSettings shows the effective settings.
	ViewSettings
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewHistory:
		return "history"
	case ViewReport:
		return "report"
	case ViewSearch:
		return "search"
	case ViewSettings:
		return "settings"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// StageUpdated carries a pipeline progress event.
type StageUpdated struct {
	Event domain.ProgressEvent
}

// ProcessingFinished carries the outcome of a pipeline run.
type ProcessingFinished struct {
	Report *domain.Report
	Err    error
}

// ReportsLoaded carries report history.
type ReportsLoaded struct {
	Reports []domain.ReportSummary
	Err     error
}

// ReportSelected signals a history entry was chosen.
type ReportSelected struct {
	DocumentID string
}

// ReportLoaded carries a single stored report.
type ReportLoaded struct {
	Report *domain.Report
	Err    error
}

// SearchCompleted carries context search results back to the model.
type SearchCompleted struct {
	Query string
	Hits  []domain.SearchHit
	Err   error
}

// SettingsLoaded carries the effective settings as key/value pairs in
// display order.
type SettingsLoaded struct {
	Keys   []string
	Values map[string]string
	Path   string
	Err    error
}
