// Package extractors selects the text extractor for an uploaded file format.
package extractors

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps formats to extractors. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	extractors map[domain.Format]driven.TextExtractor
}

// NewRegistry creates a registry holding the given extractors. A later
// extractor replaces an earlier one for the same format.
func NewRegistry(extractors ...driven.TextExtractor) *Registry {
	r := &Registry{extractors: make(map[domain.Format]driven.TextExtractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor for every format it handles.
func (r *Registry) Register(e driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range e.Formats() {
		r.extractors[f] = e
	}
}

// For returns the extractor for a format.
func (r *Registry) For(format domain.Format) (driven.TextExtractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[format]
	if !ok {
		return nil, fmt.Errorf("%w: no extractor for format %q", domain.ErrUnsupportedType, format)
	}
	return e, nil
}
