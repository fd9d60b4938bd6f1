package driven

import "github.com/custodia-labs/medreport/internal/core/domain"

// ProgressSink receives pipeline stage notifications.
// Emit must not block for long; it is called inline by the pipeline.
type ProgressSink interface {
	Emit(event domain.ProgressEvent)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(event domain.ProgressEvent)

// Emit calls f(event).
func (f ProgressFunc) Emit(event domain.ProgressEvent) {
	f(event)
}
