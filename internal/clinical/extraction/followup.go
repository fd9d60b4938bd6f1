package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

// followUpLookahead is how many lines after the keyword line are searched.
const followUpLookahead = 2

var (
	followUpKeyword = regexp.MustCompile(
		`(?i)\b(?:follow[- ]?up|next visit|return|appointment|check[- ]?up|revisit)\b`)

	relativeCue = regexp.MustCompile(`(?i)\b(?:in|after|within)[ \t]+` +
		`(\d{1,3}|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)[ \t]+(day|week|month)s?\b`)

	// followUpBoundary ends the clause a keyword's negation is checked in.
	followUpBoundary = regexp.MustCompile(`(?i)[.!?](?:\s|$)|[;,]|\b(?:but|however|although)\b`)

	// numericDate is month first unless the first field cannot be a month,
	// e.g. 04/15/2025, 15-03-2025 or 3/15/25.
	numericDate = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`)
	isoDate     = regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`)
)

// followUpNegations complete the general negation cues for phrases such as
// "follow-up not required".
var followUpNegations = []string{"not required", "not needed", "not necessary", "unnecessary"}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

// extractFollowUp finds the first non-negated follow-up keyword with a date
// cue in its window. Relative cues resolve against the report date at
// midnight. It returns nil when nothing matches.
func extractFollowUp(text string, reportDate time.Time) *domain.FollowUp {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		for _, loc := range followUpKeyword.FindAllStringIndex(line, -1) {
			if keywordNegated(line, loc[0], loc[1]) {
				continue
			}

			end := i + 1 + followUpLookahead
			if end > len(lines) {
				end = len(lines)
			}
			window := line[loc[0]:]
			if end > i+1 {
				window += " " + strings.Join(lines[i+1:end], " ")
			}

			if fu := resolveCue(window, reportDate); fu != nil {
				return fu
			}
		}
	}
	return nil
}

// keywordNegated applies the negation rules to the clause holding the keyword.
func keywordNegated(line string, start, end int) bool {
	clauseStart, clauseEnd := 0, len(line)
	for _, b := range followUpBoundary.FindAllStringIndex(line, -1) {
		if b[1] <= start {
			clauseStart = b[1]
		} else if b[0] >= end {
			clauseEnd = b[0]
			break
		}
	}
	clause := line[clauseStart:clauseEnd]
	s, e := start-clauseStart, end-clauseStart

	if isNegated(clause, s, e) {
		return true
	}
	return containsCue(words(clause[e:]), followUpNegations)
}

// resolveCue returns the earliest relative or explicit date cue in window.
func resolveCue(window string, reportDate time.Time) *domain.FollowUp {
	type candidate struct {
		pos int
		fu  *domain.FollowUp
	}
	var best *candidate
	consider := func(pos int, fu *domain.FollowUp) {
		if fu != nil && (best == nil || pos < best.pos) {
			best = &candidate{pos: pos, fu: fu}
		}
	}

	if !reportDate.IsZero() {
		if m := relativeCue.FindStringSubmatchIndex(window); m != nil {
			consider(m[0], relativeFollowUp(window, m, reportDate))
		}
	}
	if m := numericDate.FindStringSubmatchIndex(window); m != nil {
		consider(m[0], numericFollowUp(window, m, reportDate.Location()))
	}
	if m := isoDate.FindStringSubmatchIndex(window); m != nil {
		g := submatchInts(window, m)
		consider(m[0], explicitFollowUp(window[m[0]:m[1]], g[0], g[1], g[2], reportDate.Location()))
	}

	if best == nil {
		return nil
	}
	return best.fu
}

func relativeFollowUp(window string, m []int, reportDate time.Time) *domain.FollowUp {
	numText := strings.ToLower(window[m[2]:m[3]])
	n, ok := numberWords[numText]
	if !ok {
		var err error
		if n, err = strconv.Atoi(numText); err != nil {
			return nil
		}
	}

	y, mo, d := reportDate.Date()
	base := time.Date(y, mo, d, 0, 0, 0, 0, reportDate.Location())

	var date time.Time
	switch strings.ToLower(window[m[4]:m[5]]) {
	case "day":
		date = base.AddDate(0, 0, n)
	case "week":
		date = base.AddDate(0, 0, 7*n)
	default:
		date = base.AddDate(0, n, 0)
	}

	return &domain.FollowUp{Cue: window[m[0]:m[1]], Date: date}
}

// numericFollowUp resolves a numericDate match. Two-digit years are in the
// 2000s.
func numericFollowUp(window string, m []int, loc *time.Location) *domain.FollowUp {
	g := submatchInts(window, m)
	month, day, year := g[0], g[1], g[2]
	if month > 12 {
		month, day = day, month
	}
	if m[7]-m[6] == 2 {
		year += 2000
	}
	return explicitFollowUp(window[m[0]:m[1]], year, month, day, loc)
}

// submatchInts returns the numeric value of each submatch group.
func submatchInts(window string, m []int) []int {
	out := make([]int, 0, len(m)/2-1)
	for g := 2; g+1 < len(m); g += 2 {
		v, _ := strconv.Atoi(window[m[g]:m[g+1]])
		out = append(out, v)
	}
	return out
}

// explicitFollowUp builds a date, rejecting impossible dates such as
// 02/30/2025.
func explicitFollowUp(cue string, year, month, day int, loc *time.Location) *domain.FollowUp {
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return nil
	}
	return &domain.FollowUp{Cue: cue, Date: date, Explicit: true}
}
