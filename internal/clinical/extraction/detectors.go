package extraction

import (
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/medreport/internal/clinical/knowledge"
)

// maxEvidence caps the evidence spans kept per condition.
const maxEvidence = 5

// detector matches one knowledge-table condition.
type detector struct {
	label  string
	name   string
	phrase *regexp.Regexp // case-insensitive, nil if no patterns
	abbrev *regexp.Regexp // case-sensitive, nil if no abbreviations
}

func newDetector(c knowledge.Condition) detector {
	return detector{
		label:  c.Label,
		name:   c.Name,
		phrase: alternation(c.Patterns, "(?i)"),
		abbrev: alternation(c.Abbreviations, ""),
	}
}

// alternation compiles terms into a word-bounded alternation, longest first
// so that "diabetes mellitus" wins over "diabetes".
func alternation(terms []string, flags string) *regexp.Regexp {
	if len(terms) == 0 {
		return nil
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(strings.TrimSpace(t))
	}
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return regexp.MustCompile(flags + `\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// match returns the non-negated spans in a clause.
func (d detector) match(clause string) []string {
	var spans []string
	for _, re := range []*regexp.Regexp{d.phrase, d.abbrev} {
		if re == nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(clause, -1) {
			if !isNegated(clause, loc[0], loc[1]) {
				spans = append(spans, clause[loc[0]:loc[1]])
			}
		}
	}
	return spans
}

// detection is the evidence collected for one label.
type detection struct {
	evidence []string
	seen     map[string]bool
}

func (d *detection) add(span string) {
	key := strings.ToLower(span)
	if d.seen[key] || len(d.evidence) >= maxEvidence {
		return
	}
	d.seen[key] = true
	d.evidence = append(d.evidence, span)
}

// detect runs every detector over every clause of text and returns evidence
// keyed by label.
func detect(detectors []detector, text string) map[string]*detection {
	found := make(map[string]*detection)
	for _, sentence := range sentences(text) {
		for _, clause := range clauses(sentence) {
			for _, d := range detectors {
				for _, span := range d.match(clause) {
					det, ok := found[d.label]
					if !ok {
						det = &detection{seen: make(map[string]bool)}
						found[d.label] = det
					}
					det.add(span)
				}
			}
		}
	}
	return found
}
