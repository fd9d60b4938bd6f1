package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Unknown is reported for demographic fields that were not found in the text.
const Unknown = "unknown"

// Demographics holds patient fields extracted from labelled text.
// Empty fields are unknown and are never guessed.
type Demographics struct {
	Name   string
	Age    *int // nil when unknown; 0 is a newborn
	Gender string
}

// KnownAge returns an age for Demographics.Age.
func KnownAge(years int) *int {
	return &years
}

// HasAge returns true if an age was extracted.
func (d Demographics) HasAge() bool {
	return d.Age != nil
}

// Clone returns a copy that shares no memory with d.
func (d Demographics) Clone() Demographics {
	if d.Age != nil {
		d.Age = KnownAge(*d.Age)
	}
	return d
}

// demographicsJSON is the wire shape of Demographics.
type demographicsJSON struct {
	Name   string `json:"name"`
	Age    any    `json:"age"`
	Gender string `json:"gender"`
}

// MarshalJSON writes missing fields as "unknown".
func (d Demographics) MarshalJSON() ([]byte, error) {
	out := demographicsJSON{Name: d.Name, Gender: d.Gender, Age: Unknown}
	if out.Name == "" {
		out.Name = Unknown
	}
	if out.Gender == "" {
		out.Gender = Unknown
	}
	if d.HasAge() {
		out.Age = *d.Age
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the shape written by MarshalJSON.
func (d *Demographics) UnmarshalJSON(data []byte) error {
	var in struct {
		Name   string          `json:"name"`
		Age    json.RawMessage `json:"age"`
		Gender string          `json:"gender"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*d = Demographics{}
	if in.Name != Unknown {
		d.Name = in.Name
	}
	if in.Gender != Unknown {
		d.Gender = in.Gender
	}
	if len(in.Age) > 0 && string(in.Age) != "null" && string(in.Age) != `"`+Unknown+`"` {
		var age int
		if err := json.Unmarshal(in.Age, &age); err != nil {
			return fmt.Errorf("decoding age: %w", err)
		}
		d.Age = &age
	}
	return nil
}

// Condition is a clinical condition the detectors believe the text supports.
type Condition struct {
	// Label is drawn from the knowledge table's closed vocabulary.
	Label string `json:"label"`

	// Name is the human-readable condition name.
	Name string `json:"name,omitempty"`

	// Evidence holds the matched text spans.
	Evidence []string `json:"evidence"`

	// DocumentID is the document the evidence came from.
	DocumentID string `json:"document_id,omitempty"`
}

// PrescribedMedication is a dosage-pattern match copied verbatim from the text.
type PrescribedMedication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency,omitempty"`
	Text      string `json:"text"`
}

// FollowUp is a resolved follow-up cue.
type FollowUp struct {
	// Cue is the matched text, e.g. "in 2 weeks".
	Cue string

	// Date is the absolute follow-up date.
	Date time.Time

	// Explicit is true when the text named a calendar date.
	Explicit bool
}

// Extraction is the clinical extraction engine output for one document.
type Extraction struct {
	// Demographics is always set by the engine; fields inside may be unknown.
	Demographics *Demographics

	// Findings are sentences carrying diagnostic or lab-result markers.
	Findings []string

	// Prescribed lists medications found via dosage patterns.
	Prescribed []PrescribedMedication

	// Conditions is the detected condition set. Nil means the field is missing,
	// which is a contract violation; an empty slice means nothing was detected.
	Conditions []Condition

	// FollowUp is nil when no cue matched.
	FollowUp *FollowUp

	// HistoricalConditions are labels seen only in retrieved context.
	HistoricalConditions []string
}

// Labels returns the labels of the detected conditions in order.
func (e *Extraction) Labels() []string {
	labels := make([]string, len(e.Conditions))
	for i, c := range e.Conditions {
		labels[i] = c.Label
	}
	return labels
}

// Medication is a medication suggestion from the knowledge table.
type Medication struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
	Notes  string `json:"notes"`
}

// RecoveryUnit is the unit of a recovery estimate.
type RecoveryUnit string

// Recovery units.
const (
	RecoveryDays   RecoveryUnit = "days"
	RecoveryWeeks  RecoveryUnit = "weeks"
	RecoveryMonths RecoveryUnit = "months"
	RecoveryVaries RecoveryUnit = "varies"
)

// IsValid returns true if the unit is a measurable duration unit.
func (u RecoveryUnit) IsValid() bool {
	switch u {
	case RecoveryDays, RecoveryWeeks, RecoveryMonths:
		return true
	default:
		return false
	}
}

// Days converts n units to an approximate number of days.
func (u RecoveryUnit) Days(n int) int {
	switch u {
	case RecoveryDays:
		return n
	case RecoveryWeeks:
		return n * 7
	case RecoveryMonths:
		return n * 30
	default:
		return 0
	}
}

// RecoveryEstimate is a recovery time range.
type RecoveryEstimate struct {
	Min  int          `json:"min"`
	Max  int          `json:"max"`
	Unit RecoveryUnit `json:"unit"`
	Note string       `json:"note,omitempty"`
}

// MinDays returns the lower bound in days.
func (r RecoveryEstimate) MinDays() int {
	return r.Unit.Days(r.Min)
}

// MaxDays returns the upper bound in days.
func (r RecoveryEstimate) MaxDays() int {
	return r.Unit.Days(r.Max)
}

// String formats the estimate for display.
func (r RecoveryEstimate) String() string {
	if !r.Unit.IsValid() {
		return r.Note
	}
	if r.Min == r.Max {
		return fmt.Sprintf("%d %s", r.Max, r.Unit)
	}
	return fmt.Sprintf("%d-%d %s", r.Min, r.Max, r.Unit)
}

// Diet is diet guidance as foods to eat and foods to avoid.
type Diet struct {
	Eat   []string `json:"eat"`
	Avoid []string `json:"avoid"`
}

// Recommendation is the merged bundle for a document's detected conditions.
type Recommendation struct {
	// Conditions are the labels the bundle was built from.
	Conditions []string

	// Medications are deduplicated by drug name.
	Medications []Medication

	// Recovery is the widest matched range.
	Recovery RecoveryEstimate

	// Diet is the union of diet lists with avoid items overriding eat items.
	Diet Diet

	// General is true when no known condition matched.
	General bool
}
