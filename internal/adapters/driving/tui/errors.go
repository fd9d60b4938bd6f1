// Package tui provides an interactive terminal user interface for medreport.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import "errors"

// ErrMissingReportService is returned when the report service is not provided.
var ErrMissingReportService = errors.New("tui: report service is required")

// ErrNoInput is returned when a processing run has no document to process.
var ErrNoInput = errors.New("tui: nothing to process")
