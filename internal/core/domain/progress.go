package domain

import "time"

// Stage names a step of the report pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageValidating   Stage = "validating"
	StageExtracting   Stage = "extracting"
	StageNormalising  Stage = "normalising"
	StageChunking     Stage = "chunking"
	StageRetrieving   Stage = "retrieving"
	StageIndexing     Stage = "indexing"
	StageAnalysing    Stage = "analysing"
	StageRecommending Stage = "recommending"
	StageAssembling   Stage = "assembling"
	StageSaving       Stage = "saving"
	StageComplete     Stage = "complete"
)

// Stages returns all pipeline stages in order.
func Stages() []Stage {
	return []Stage{
		StageValidating, StageExtracting, StageNormalising, StageChunking,
		StageRetrieving, StageIndexing, StageAnalysing, StageRecommending,
		StageAssembling, StageSaving, StageComplete,
	}
}

// StageStatus is the outcome reported for a stage.
type StageStatus string

// Stage statuses.
const (
	StatusStarted   StageStatus = "started"
	StatusCompleted StageStatus = "completed"
	StatusDegraded  StageStatus = "degraded"
	StatusFailed    StageStatus = "failed"
)

// ProgressEvent is emitted as the pipeline moves through its stages.
// Events are purely observational.
type ProgressEvent struct {
	DocumentID string
	Filename   string
	Stage      Stage
	Status     StageStatus
	Message    string
	At         time.Time
}
