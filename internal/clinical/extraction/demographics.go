package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

const maxAge = 130

var (
	nameLabel = regexp.MustCompile(
		`\b(?i:patient(?:[ \t]+name)?|name)[ \t]*[:\-][ \t]*([A-Z][A-Za-z'\-]*(?:[ \t]+[A-Z][A-Za-z'\-]*){0,3})`)

	ageLabel   = regexp.MustCompile(`(?i)\bage[ \t]*[:\-]?[ \t]*(\d{1,3})\b`)
	ageYearOld = regexp.MustCompile(`(?i)\b(\d{1,3})[ \t-]*(?:year|yr)s?[ \t-]*old\b`)

	genderLabel = regexp.MustCompile(
		`(?i)\b(?:gender|sex)[ \t]*[:\-][ \t]*(male|female|man|woman|m|f|other|non-binary)\b`)
	genderYearOld = regexp.MustCompile(
		`(?i)\b\d{1,3}[ \t-]*(?:year|yr)s?[ \t-]*old[ \t]+(male|female|man|woman|boy|girl)\b`)
)

// nameStopWords are labels that can trail a captured name on the same line.
var nameStopWords = map[string]bool{
	"age": true, "gender": true, "sex": true, "dob": true, "mrn": true, "date": true,
}

func extractDemographics(text string) domain.Demographics {
	return domain.Demographics{
		Name:   extractName(text),
		Age:    extractAge(text),
		Gender: extractGender(text),
	}
}

func extractName(text string) string {
	for _, m := range nameLabel.FindAllStringSubmatch(text, -1) {
		fields := strings.Fields(m[1])
		for len(fields) > 0 && nameStopWords[strings.ToLower(fields[len(fields)-1])] {
			fields = fields[:len(fields)-1]
		}
		if len(fields) > 0 {
			return strings.Join(fields, " ")
		}
	}
	return ""
}

func extractAge(text string) *int {
	for _, re := range []*regexp.Regexp{ageLabel, ageYearOld} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			age, err := strconv.Atoi(m[1])
			if err == nil && age >= 0 && age <= maxAge {
				return domain.KnownAge(age)
			}
		}
	}
	return nil
}

func extractGender(text string) string {
	for _, re := range []*regexp.Regexp{genderLabel, genderYearOld} {
		if m := re.FindStringSubmatch(text); m != nil {
			return normaliseGender(m[1])
		}
	}
	return ""
}

func normaliseGender(g string) string {
	switch strings.ToLower(g) {
	case "m", "male", "man", "boy":
		return "male"
	case "f", "female", "woman", "girl":
		return "female"
	default:
		return strings.ToLower(g)
	}
}
