// Package knowledge loads the clinical knowledge table: the mapping from a
// condition label to its detector patterns, medication and diet groups, and
// recovery range.
package knowledge

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

//go:embed knowledge.toml
var builtin []byte

// Drug is a single medication entry in a group.
type Drug struct {
	Name   string `toml:"name"`
	Dosage string `toml:"dosage"`
}

// MedicationGroup is a set of drugs sharing one advisory note.
type MedicationGroup struct {
	Note  string `toml:"note"`
	Drugs []Drug `toml:"drugs"`
}

// DietGroup lists foods to eat and to avoid.
type DietGroup struct {
	Eat   []string `toml:"eat"`
	Avoid []string `toml:"avoid"`
}

// Recovery is a recovery range as written in the table.
type Recovery struct {
	Min  int    `toml:"min"`
	Max  int    `toml:"max"`
	Unit string `toml:"unit"`
	Note string `toml:"note"`
}

// Estimate converts the range to its domain form.
func (r Recovery) Estimate() domain.RecoveryEstimate {
	return domain.RecoveryEstimate{
		Min:  r.Min,
		Max:  r.Max,
		Unit: domain.RecoveryUnit(r.Unit),
		Note: r.Note,
	}
}

// Condition is one entry of the closed condition vocabulary.
type Condition struct {
	Label         string   `toml:"label"`
	Name          string   `toml:"name"`
	Patterns      []string `toml:"patterns"`
	Abbreviations []string `toml:"abbreviations"`
	Medications   []string `toml:"medications"`
	Diets         []string `toml:"diets"`
	Recovery      Recovery `toml:"recovery"`
}

// Bundle is the general-health fallback used when nothing is detected.
type Bundle struct {
	Medications []string `toml:"medications"`
	Diets       []string `toml:"diets"`
	Recovery    Recovery `toml:"recovery"`
}

// Table is the parsed knowledge table. It is immutable after loading.
type Table struct {
	General     Bundle                     `toml:"general"`
	Medications map[string]MedicationGroup `toml:"medications"`
	Diets       map[string]DietGroup       `toml:"diets"`
	Conditions  []Condition                `toml:"conditions"`

	byLabel map[string]int
}

// Load parses the built-in table.
func Load() (*Table, error) {
	return Parse(builtin)
}

// LoadFile parses a table from a TOML file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading knowledge table: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a table. Unknown keys are rejected.
func Parse(data []byte) (*Table, error) {
	var t Table
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: parsing knowledge table: %v", domain.ErrInvalidInput, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the table's internal references and ranges, and indexes
// conditions by label.
func (t *Table) Validate() error {
	if len(t.Conditions) == 0 {
		return invalid("no conditions defined")
	}
	if err := t.checkGroups("general", t.General.Medications, t.General.Diets); err != nil {
		return err
	}

	byLabel := make(map[string]int, len(t.Conditions))
	for i, c := range t.Conditions {
		if c.Label == "" {
			return invalid("condition %d has no label", i)
		}
		if _, dup := byLabel[c.Label]; dup {
			return invalid("duplicate condition label %q", c.Label)
		}
		if len(c.Patterns) == 0 {
			return invalid("condition %q has no patterns", c.Label)
		}
		for _, p := range c.Patterns {
			if strings.TrimSpace(p) == "" {
				return invalid("condition %q has an empty pattern", c.Label)
			}
		}
		if err := t.checkGroups(c.Label, c.Medications, c.Diets); err != nil {
			return err
		}
		r := c.Recovery
		if !domain.RecoveryUnit(r.Unit).IsValid() {
			return invalid("condition %q has unknown recovery unit %q", c.Label, r.Unit)
		}
		if r.Min < 0 || r.Min > r.Max {
			return invalid("condition %q has recovery range %d-%d", c.Label, r.Min, r.Max)
		}
		byLabel[c.Label] = i
	}

	t.byLabel = byLabel
	return nil
}

func (t *Table) checkGroups(owner string, meds, diets []string) error {
	for _, g := range meds {
		if _, ok := t.Medications[g]; !ok {
			return invalid("%s references unknown medication group %q", owner, g)
		}
	}
	for _, g := range diets {
		if _, ok := t.Diets[g]; !ok {
			return invalid("%s references unknown diet group %q", owner, g)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: knowledge table: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Condition returns the entry for a label.
func (t *Table) Condition(label string) (Condition, bool) {
	i, ok := t.byLabel[label]
	if !ok {
		return Condition{}, false
	}
	return t.Conditions[i], true
}

// Labels returns every condition label in table order.
func (t *Table) Labels() []string {
	labels := make([]string, len(t.Conditions))
	for i, c := range t.Conditions {
		labels[i] = c.Label
	}
	return labels
}

// MedicationsFor expands medication groups into suggestions, each carrying
// its group's note.
func (t *Table) MedicationsFor(groups []string) []domain.Medication {
	var meds []domain.Medication
	for _, g := range groups {
		group := t.Medications[g]
		for _, d := range group.Drugs {
			meds = append(meds, domain.Medication{Name: d.Name, Dosage: d.Dosage, Notes: group.Note})
		}
	}
	return meds
}

// DietFor concatenates the eat and avoid lists of the given groups.
func (t *Table) DietFor(groups []string) domain.Diet {
	diet := domain.Diet{Eat: []string{}, Avoid: []string{}}
	for _, g := range groups {
		group := t.Diets[g]
		diet.Eat = append(diet.Eat, group.Eat...)
		diet.Avoid = append(diet.Avoid, group.Avoid...)
	}
	return diet
}
