package progress

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medreport/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medreport/internal/core/domain"
)

func event(stage domain.Stage, status domain.StageStatus, message string) messages.StageUpdated {
	return messages.StageUpdated{Event: domain.ProgressEvent{
		DocumentID: "doc-1",
		Filename:   "visit.txt",
		Stage:      stage,
		Status:     status,
		Message:    message,
	}}
}

func TestView_Init(t *testing.T) {
	v := NewView(nil, "visit.txt")
	assert.NotNil(t, v.Init())
	assert.Contains(t, v.View(), "Processing visit.txt")
}

func TestView_TracksStages(t *testing.T) {
	v := NewView(nil, "upload")

	v, _ = v.Update(event(domain.StageValidating, domain.StatusStarted, ""))
	v, _ = v.Update(event(domain.StageValidating, domain.StatusCompleted, ""))
	v, _ = v.Update(event(domain.StageRetrieving, domain.StatusStarted, ""))
	v, _ = v.Update(event(domain.StageRetrieving, domain.StatusDegraded, "embedding timed out"))

	status, ok := v.Status(domain.StageValidating)
	require.True(t, ok)
	assert.Equal(t, domain.StatusCompleted, status)

	status, ok = v.Status(domain.StageRetrieving)
	require.True(t, ok)
	assert.Equal(t, domain.StatusDegraded, status)

	_, ok = v.Status(domain.StageAssembling)
	assert.False(t, ok)

	view := v.View()
	assert.Contains(t, view, "Processing visit.txt")
	assert.Contains(t, view, "validating")
	assert.Contains(t, view, "embedding timed out")
	assert.NotContains(t, view, "assembling")
	assert.Contains(t, view, "retrieving...")
}

func TestView_Finished(t *testing.T) {
	v := NewView(nil, "visit.txt")
	v, _ = v.Update(event(domain.StageComplete, domain.StatusCompleted, ""))

	v, _ = v.Update(messages.ProcessingFinished{Report: &domain.Report{}})

	assert.True(t, v.Done())
	assert.NoError(t, v.Err())
	assert.Contains(t, v.View(), "Report ready")
}

func TestView_Failed(t *testing.T) {
	v := NewView(nil, "visit.txt")
	v, _ = v.Update(event(domain.StageNormalising, domain.StatusFailed, ""))

	v, _ = v.Update(messages.ProcessingFinished{Err: errors.New("document is empty")})

	assert.True(t, v.Done())
	assert.Contains(t, v.View(), "Error: document is empty")
	assert.Contains(t, v.View(), "normalising")
}
