package mcp

import (
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Reports runs the pipeline and serves report history.
	Reports driving.ReportService

	// Context searches previously processed documents.
	Context driving.ContextService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Reports == nil {
		return ErrMissingReportService
	}
	// Context is optional; search_context reports it as unavailable.
	return nil
}
