package search

import "errors"

// Error definitions for the search view.
var (
	// ErrNoContextService indicates that no context service was provided.
	ErrNoContextService = errors.New("context search is not available")
)
