package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted from users.
const DateLayout = "2006-01-02"

// FollowUpUserCue marks a follow-up date given by the user rather than found
// in the document.
const FollowUpUserCue = "user supplied"

// ParseDate parses a YYYY-MM-DD date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, s)
	}
	return t, nil
}

// ContextSnippet describes a retrieved chunk that informed a report.
type ContextSnippet struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet"`
}

// Report is the assembled output for one processed document.
// It holds no references back into pipeline state.
type Report struct {
	DocumentID           string                 `json:"document_id"`
	Filename             string                 `json:"filename"`
	Timestamp            time.Time              `json:"timestamp"`
	Demographics         Demographics           `json:"demographics"`
	Findings             []string               `json:"findings"`
	Conditions           []Condition            `json:"conditions"`
	Medications          []Medication           `json:"medications"`
	Prescribed           []PrescribedMedication `json:"prescribed_medications"`
	RecoveryEstimate     RecoveryEstimate       `json:"recovery_estimate"`
	Diet                 Diet                   `json:"diet"`
	FollowUpDate         *time.Time             `json:"follow_up_date"`
	FollowUpCue          string                 `json:"follow_up_cue,omitempty"`
	RetrievalProvenance  []string               `json:"retrieval_provenance"`
	RetrievalStatus      RetrievalStatus        `json:"retrieval_status"`
	Context              []ContextSnippet       `json:"context,omitempty"`
	HistoricalConditions []string               `json:"historical_conditions,omitempty"`
	GeneralHealth        bool                   `json:"general_health"`
	ProcessingTime       float64                `json:"processing_time"` // seconds
}

// ConditionLabels returns the labels of the report's conditions.
func (r *Report) ConditionLabels() []string {
	labels := make([]string, len(r.Conditions))
	for i, c := range r.Conditions {
		labels[i] = c.Label
	}
	return labels
}

// ReportSummary is a lightweight history entry.
type ReportSummary struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	CreatedAt  time.Time `json:"created_at"`
	Conditions []string  `json:"conditions"`
}

// BatchResult is the outcome of processing one upload in a batch.
type BatchResult struct {
	Filename string
	Report   *Report
	Err      error
}
