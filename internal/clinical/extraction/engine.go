// Package extraction implements the rule-based clinical extraction engine.
//
// The engine detects conditions from the knowledge table with clause-scoped
// negation, and pulls demographics, findings, prescribed medications and a
// follow-up date out of labelled text. It never infers a value the text does
// not state.
package extraction

import (
	"context"
	"sort"

	"github.com/custodia-labs/medreport/internal/clinical/knowledge"
	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

var _ driven.ClinicalExtractor = (*Engine)(nil)

// Engine extracts clinical fields from normalised text. It is stateless after
// construction and safe for concurrent use.
type Engine struct {
	detectors []detector
}

// New compiles the detectors for every condition in the table.
func New(table *knowledge.Table) *Engine {
	detectors := make([]detector, len(table.Conditions))
	for i, c := range table.Conditions {
		detectors[i] = newDetector(c)
	}
	return &Engine{detectors: detectors}
}

// Extract runs all detectors over the document text and its retrieved context.
func (e *Engine) Extract(ctx context.Context, in driven.ExtractionInput) (*domain.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	demographics := extractDemographics(in.Text)
	out := &domain.Extraction{
		Demographics: &demographics,
		Findings:     extractFindings(in.Text),
		Prescribed:   extractPrescribed(in.Text),
		Conditions:   e.conditions(in.DocumentID, in.Text),
		FollowUp:     extractFollowUp(in.Text, in.ReportDate),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out.HistoricalConditions = e.historical(out.Conditions, in.Context)
	return out, nil
}

// Detect returns the labels detected in text, in table order.
func (e *Engine) Detect(text string) []string {
	conditions := e.conditions("", text)
	labels := make([]string, len(conditions))
	for i, c := range conditions {
		labels[i] = c.Label
	}
	return labels
}

// conditions returns the detected conditions in table order. The result is
// never nil.
func (e *Engine) conditions(documentID, text string) []domain.Condition {
	found := detect(e.detectors, text)
	conditions := make([]domain.Condition, 0, len(found))
	for _, d := range e.detectors {
		det, ok := found[d.label]
		if !ok {
			continue
		}
		conditions = append(conditions, domain.Condition{
			Label:      d.label,
			Name:       d.name,
			Evidence:   det.evidence,
			DocumentID: documentID,
		})
	}
	return conditions
}

// historical returns labels seen in context chunks but not in the document.
func (e *Engine) historical(current []domain.Condition, hits []domain.SearchHit) []string {
	if len(hits) == 0 {
		return nil
	}
	present := make(map[string]bool, len(current))
	for _, c := range current {
		present[c.Label] = true
	}

	var labels []string
	for _, hit := range hits {
		for label := range detect(e.detectors, hit.Record.Content) {
			if !present[label] {
				present[label] = true
				labels = append(labels, label)
			}
		}
	}
	sort.Strings(labels)
	return labels
}
