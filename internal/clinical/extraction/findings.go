package extraction

import (
	"regexp"
	"strings"
)

const maxFindings = 20

var (
	findingMarker = regexp.MustCompile(`(?i)\b(?:findings?|results?|examination|impression|assessment|` +
		`diagnos\w*|shows?|showed|revealed?|tests?|labs?|x-ray|ct|mri|ecg|ekg)\b`)

	labValue = regexp.MustCompile(`(?i)\b[a-z][a-z0-9 ]{0,30}:[ \t]*\d+(?:\.\d+)?(?:/\d+)?[ \t]*` +
		`(?:mg/dl|mmol/l|mmhg|g/dl|bpm|u/l|iu/l|meq/l|%)`)

	findingLabel = regexp.MustCompile(`(?i)^(?:key\s+)?(?:findings|results|test results|lab results|` +
		`examination|impression|assessment|diagnosis|diagnoses)\s*[:\-]\s*`)
)

// extractFindings returns sentences carrying a diagnostic marker or a lab
// value, in document order, deduplicated and capped.
func extractFindings(text string) []string {
	findings := []string{}
	seen := make(map[string]bool)

	for _, s := range sentences(text) {
		if !findingMarker.MatchString(s) && !labValue.MatchString(s) {
			continue
		}
		s = strings.TrimSpace(findingLabel.ReplaceAllString(s, ""))
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		findings = append(findings, s)
		if len(findings) == maxFindings {
			break
		}
	}
	return findings
}
