package tui

import (
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Reports runs the pipeline and serves report history.
	Reports driving.ReportService

	// Context searches previously processed documents. Optional.
	Context driving.ContextService

	// Settings exposes the effective configuration. Optional.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Reports == nil {
		return ErrMissingReportService
	}
	return nil
}
