// Package recommend maps detected conditions to medication, diet and
// recovery guidance from the knowledge table.
package recommend

import (
	"strings"

	"github.com/custodia-labs/medreport/internal/clinical/knowledge"
	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

var _ driven.Recommender = (*Engine)(nil)

// Engine builds recommendation bundles. It holds no mutable state.
type Engine struct {
	table *knowledge.Table
}

// New creates an engine over the given table.
func New(table *knowledge.Table) *Engine {
	return &Engine{table: table}
}

// Recommend merges the bundles of every known condition. With no known
// condition it returns the general-health bundle.
//
// Medications keep condition order and drop repeated drug names. Diet lists
// are unioned, and an eat item is dropped when the same food is to be
// avoided. The recovery estimate is the widest range.
func (e *Engine) Recommend(conditions []domain.Condition) domain.Recommendation {
	var known []knowledge.Condition
	for _, c := range conditions {
		if kc, ok := e.table.Condition(c.Label); ok {
			known = append(known, kc)
		}
	}
	if len(known) == 0 {
		return e.general()
	}

	rec := domain.Recommendation{
		Conditions:  make([]string, 0, len(known)),
		Medications: []domain.Medication{},
	}

	seenDrug := make(map[string]bool)
	var diets []domain.Diet
	var recoveries []domain.RecoveryEstimate

	for _, kc := range known {
		rec.Conditions = append(rec.Conditions, kc.Label)
		for _, m := range e.table.MedicationsFor(kc.Medications) {
			key := strings.ToLower(m.Name)
			if seenDrug[key] {
				continue
			}
			seenDrug[key] = true
			rec.Medications = append(rec.Medications, m)
		}
		diets = append(diets, e.table.DietFor(kc.Diets))
		recoveries = append(recoveries, kc.Recovery.Estimate())
	}

	rec.Diet = MergeDiets(diets...)
	rec.Recovery = WidestRecovery(recoveries)
	return rec
}

func (e *Engine) general() domain.Recommendation {
	g := e.table.General
	meds := e.table.MedicationsFor(g.Medications)
	if meds == nil {
		meds = []domain.Medication{}
	}
	return domain.Recommendation{
		Conditions:  []string{},
		Medications: meds,
		Recovery:    g.Recovery.Estimate(),
		Diet:        MergeDiets(e.table.DietFor(g.Diets)),
		General:     true,
	}
}

// FoodKey identifies a food for deduplication: the lowercase text before any
// parenthetical, so "Bananas (high in potassium)" and "Bananas" collide.
func FoodKey(item string) string {
	if i := strings.IndexByte(item, '('); i >= 0 {
		item = item[:i]
	}
	return strings.ToLower(strings.TrimSpace(item))
}

// MergeDiets unions diet lists by food key, keeping first occurrences.
// Avoid wins over eat.
func MergeDiets(diets ...domain.Diet) domain.Diet {
	out := domain.Diet{Eat: []string{}, Avoid: []string{}}

	avoid := make(map[string]bool)
	for _, d := range diets {
		for _, item := range d.Avoid {
			key := FoodKey(item)
			if avoid[key] {
				continue
			}
			avoid[key] = true
			out.Avoid = append(out.Avoid, item)
		}
	}

	eat := make(map[string]bool)
	for _, d := range diets {
		for _, item := range d.Eat {
			key := FoodKey(item)
			if avoid[key] || eat[key] {
				continue
			}
			eat[key] = true
			out.Eat = append(out.Eat, item)
		}
	}
	return out
}

// WidestRecovery picks the range with the largest upper bound in days, then
// the largest span, then the first in order.
func WidestRecovery(estimates []domain.RecoveryEstimate) domain.RecoveryEstimate {
	if len(estimates) == 0 {
		return domain.RecoveryEstimate{}
	}
	best := estimates[0]
	for _, r := range estimates[1:] {
		switch {
		case r.MaxDays() > best.MaxDays():
			best = r
		case r.MaxDays() == best.MaxDays() && r.MaxDays()-r.MinDays() > best.MaxDays()-best.MinDays():
			best = r
		}
	}
	return best
}
