// Package mcp provides an MCP (Model Context Protocol) server adapter for medreport.
// It lets AI assistants process clinical documents and read report history.
package mcp

import "errors"

// ErrMissingReportService is returned when the report service is not provided.
var ErrMissingReportService = errors.New("mcp: report service is required")
