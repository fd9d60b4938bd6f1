package extraction

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

var dosagePattern = regexp.MustCompile(`(?i)\b([a-z][a-z0-9\-]{2,}(?:[ \t]+[a-z][a-z0-9\-]*)?)[ \t]+` +
	`(\d+(?:\.\d+)?[ \t]*(?:mcg|mg|ml|units|iu|g))\b` +
	`(?:[ \t]+(once daily|twice daily|three times daily|four times daily|` +
	`every \d+(?:-\d+)? hours|at bedtime|as needed|bid|tid|qid|qd|prn|daily|weekly))?`)

// drugStopWords never name a drug; they are dropped from the front of a
// captured name, and a name made only of them is rejected.
var drugStopWords = map[string]bool{
	"take": true, "takes": true, "taking": true, "took": true,
	"start": true, "started": true, "starting": true,
	"continue": true, "continued": true, "continuing": true,
	"increase": true, "increased": true, "decrease": true, "decreased": true,
	"reduce": true, "reduced": true, "stop": true, "stopped": true,
	"prescribed": true, "prescribe": true, "give": true, "given": true,
	"dose": true, "dosage": true, "plus": true, "and": true, "the": true,
	"with": true, "then": true, "also": true, "for": true, "was": true,
	"is": true, "on": true, "of": true, "to": true, "at": true, "by": true,
	"medication": true, "medications": true, "patient": true, "daily": true,
	"weight": true, "glucose": true, "sugar": true, "cholesterol": true,
}

// extractPrescribed returns medications matched by the dosage pattern, copied
// verbatim and deduplicated by name.
func extractPrescribed(text string) []domain.PrescribedMedication {
	meds := []domain.PrescribedMedication{}
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		for _, loc := range dosagePattern.FindAllStringSubmatchIndex(line, -1) {
			// A unit followed by '/' is a lab value such as "180 mg/dL".
			if loc[1] < len(line) && line[loc[1]] == '/' {
				continue
			}
			name := drugName(line[loc[2]:loc[3]])
			if name == "" || seen[strings.ToLower(name)] {
				continue
			}
			seen[strings.ToLower(name)] = true

			med := domain.PrescribedMedication{
				Name:   name,
				Dosage: line[loc[4]:loc[5]],
				Text:   strings.TrimSpace(line[loc[0]:loc[1]]),
			}
			if loc[6] >= 0 {
				med.Frequency = line[loc[6]:loc[7]]
			}
			meds = append(meds, med)
		}
	}
	return meds
}

func drugName(captured string) string {
	fields := strings.Fields(captured)
	for len(fields) > 0 && drugStopWords[strings.ToLower(fields[0])] {
		fields = fields[1:]
	}
	// A name may end in a short token ("Vitamin D") but never start with one.
	if len(fields) == 0 || len(fields[0]) < 3 {
		return ""
	}
	for _, f := range fields {
		if drugStopWords[strings.ToLower(f)] {
			return ""
		}
	}
	return strings.Join(fields, " ")
}
