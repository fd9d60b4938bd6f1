package assembler

import (
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

// DateLayout is how report dates are printed.
const DateLayout = domain.DateLayout

// Render writes a plain-text layout of the report.
func Render(w io.Writer, r *domain.Report) error {
	p := &printer{w: w}

	p.line("MEDICAL REPORT SUMMARY")
	p.line("File: %s", r.Filename)
	p.line("Document: %s", r.DocumentID)
	p.line("Processed: %s", r.Timestamp.Format("2006-01-02 15:04"))
	if r.ProcessingTime > 0 {
		p.line("Processing time: %.2fs", r.ProcessingTime)
	}

	p.section("Patient Demographics")
	p.line("Name: %s", orUnknown(r.Demographics.Name))
	if r.Demographics.HasAge() {
		p.line("Age: %d", *r.Demographics.Age)
	} else {
		p.line("Age: %s", domain.Unknown)
	}
	p.line("Gender: %s", orUnknown(r.Demographics.Gender))

	p.section("Detected Conditions")
	if len(r.Conditions) == 0 {
		p.bullet("No specific condition detected")
	}
	for _, c := range r.Conditions {
		p.bullet("%s (%s)", c.Name, strings.Join(c.Evidence, ", "))
	}

	if len(r.Findings) > 0 {
		p.section("Key Findings")
		for _, f := range r.Findings {
			p.bullet("%s", f)
		}
	}

	if len(r.Prescribed) > 0 {
		p.section("Currently Prescribed Medications")
		for _, m := range r.Prescribed {
			p.bullet("%s", m.Text)
		}
	}

	p.section("Suggested Medications (Consult Doctor)")
	if len(r.Medications) == 0 {
		p.bullet("Consult your doctor for appropriate medication")
	}
	for _, m := range r.Medications {
		p.bullet("%s %s", m.Name, m.Dosage)
		if m.Notes != "" {
			p.line("    Note: %s", m.Notes)
		}
	}
	p.line("All medications should be taken only as prescribed by a qualified healthcare provider.")

	p.section("Estimated Recovery Time")
	est := r.RecoveryEstimate
	if est.Unit.IsValid() && est.Note != "" {
		p.bullet("%s: %s", est, est.Note)
	} else {
		p.bullet("%s", est)
	}

	p.section("Follow-up")
	if r.FollowUpDate != nil {
		if r.FollowUpCue != "" {
			p.bullet("%s (%s)", r.FollowUpDate.Format(DateLayout), r.FollowUpCue)
		} else {
			p.bullet("%s", r.FollowUpDate.Format(DateLayout))
		}
	} else {
		p.bullet("No follow-up date found in the report")
	}

	p.section("Recommended Foods & Diet")
	for _, item := range r.Diet.Eat {
		p.bullet("%s", item)
	}
	if len(r.Diet.Avoid) > 0 {
		p.line("Avoid: %s", strings.Join(r.Diet.Avoid, ", "))
	}

	p.section("Historical Context")
	p.line("Retrieval: %s (%d related chunks)", r.RetrievalStatus, len(r.RetrievalProvenance))
	for _, c := range r.Context {
		p.bullet("%s [%.2f]: %s", c.Filename, c.Score, c.Snippet)
	}
	if len(r.HistoricalConditions) > 0 {
		p.line("Previously seen: %s", strings.Join(r.HistoricalConditions, ", "))
	}

	return p.err
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) section(title string) {
	p.line("")
	p.line("## %s", title)
}

func (p *printer) bullet(format string, args ...any) {
	p.line("• "+format, args...)
}

func orUnknown(s string) string {
	if s == "" {
		return domain.Unknown
	}
	return s
}
