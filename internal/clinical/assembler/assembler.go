// Package assembler validates pipeline output and builds reports.
package assembler

import (
	"fmt"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

var _ driven.ReportAssembler = (*Assembler)(nil)

// snippetRunes bounds the context text copied into a report.
const snippetRunes = 200

// Assembler merges extraction and recommendation output into a Report.
// It performs no inference of its own.
type Assembler struct{}

// New creates an assembler.
func New() *Assembler {
	return &Assembler{}
}

// Assemble validates the input and builds a report that shares no slices
// with it. A missing required section is a contract violation and fails with
// domain.ErrAssembly; it is never papered over with defaults.
func (a *Assembler) Assemble(in driven.AssemblyInput) (*domain.Report, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	ext, rec := in.Extraction, in.Recommendation

	status := in.RetrievalStatus
	if status == "" {
		status = domain.RetrievalOK
	}

	report := &domain.Report{
		DocumentID:           in.Document.ID,
		Filename:             in.Document.Filename,
		Timestamp:            in.Document.IngestedAt,
		Demographics:         ext.Demographics.Clone(),
		Findings:             cloneStrings(ext.Findings),
		Conditions:           cloneConditions(ext.Conditions),
		Medications:          append([]domain.Medication{}, rec.Medications...),
		Prescribed:           append([]domain.PrescribedMedication{}, ext.Prescribed...),
		RecoveryEstimate:     rec.Recovery,
		Diet:                 domain.Diet{Eat: cloneStrings(rec.Diet.Eat), Avoid: cloneStrings(rec.Diet.Avoid)},
		RetrievalProvenance:  make([]string, 0, len(in.Context)),
		RetrievalStatus:      status,
		HistoricalConditions: append([]string(nil), ext.HistoricalConditions...),
		GeneralHealth:        rec.General,
	}

	if ext.FollowUp != nil {
		date := ext.FollowUp.Date
		report.FollowUpDate = &date
		report.FollowUpCue = ext.FollowUp.Cue
	}

	for _, hit := range in.Context {
		report.RetrievalProvenance = append(report.RetrievalProvenance, hit.Record.ChunkID)
		report.Context = append(report.Context, domain.ContextSnippet{
			ChunkID:    hit.Record.ChunkID,
			DocumentID: hit.Record.DocumentID,
			Filename:   hit.Record.Filename,
			Score:      hit.Score,
			Snippet:    snippet(hit.Record.Content),
		})
	}

	return report, nil
}

func validate(in driven.AssemblyInput) error {
	switch {
	case in.Document.ID == "":
		return assemblyError("document id is empty")
	case in.Extraction == nil:
		return assemblyError("extraction is missing")
	case in.Extraction.Demographics == nil:
		return assemblyError("demographics are missing")
	case in.Extraction.Conditions == nil:
		return assemblyError("conditions are missing")
	case in.Recommendation == nil:
		return assemblyError("recommendation is missing")
	}
	return nil
}

func assemblyError(reason string) error {
	return fmt.Errorf("%w: %s", domain.ErrAssembly, reason)
}

func cloneStrings(in []string) []string {
	return append([]string{}, in...)
}

func cloneConditions(in []domain.Condition) []domain.Condition {
	out := make([]domain.Condition, len(in))
	for i, c := range in {
		c.Evidence = cloneStrings(c.Evidence)
		out[i] = c
	}
	return out
}

func snippet(content string) string {
	r := []rune(content)
	if len(r) <= snippetRunes {
		return content
	}
	return string(r[:snippetRunes]) + "..."
}
