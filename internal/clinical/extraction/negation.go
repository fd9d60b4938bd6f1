package extraction

import "strings"

// negationWindow is how many words before a match a pre-negation cue may appear.
const negationWindow = 6

var preNegationCues = []string{
	"no", "not", "denies", "denied", "without",
	"negative for", "no history of", "no evidence of", "no signs of",
	"free of", "rules out", "ruled out",
}

var postNegationCues = []string{
	"ruled out", "excluded", "negative", "unlikely", "not present",
}

// scopeBreaks end a negation scope. Conjunctions start a new phrase and the
// affirmative triggers ("has", "diagnosed with", "presents with") assert
// what follows them.
var scopeBreaks = map[string]bool{
	"and":       true,
	"with":      true,
	"has":       true,
	"diagnosed": true,
	"presents":  true,
}

// isNegated reports whether the match clause[start:end] is negated.
// A pre-cue must occur within negationWindow words before the match and
// after the last scope break; a post-cue must occur before the next scope
// break. Both are limited to the clause.
func isNegated(clause string, start, end int) bool {
	if containsCue(preScope(words(clause[:start])), preNegationCues) {
		return true
	}
	return containsCue(postScope(words(clause[end:])), postNegationCues)
}

// preScope keeps the words a pre-cue may negate the match from.
func preScope(ws []string) []string {
	if len(ws) > negationWindow {
		ws = ws[len(ws)-negationWindow:]
	}
	for i := len(ws) - 1; i >= 0; i-- {
		if scopeBreaks[ws[i]] {
			return ws[i+1:]
		}
	}
	return ws
}

// postScope keeps the words a post-cue may negate the match from. A
// "negative for" opens the scope of the next term instead.
func postScope(ws []string) []string {
	for i, w := range ws {
		if scopeBreaks[w] || (w == "negative" && i+1 < len(ws) && ws[i+1] == "for") {
			return ws[:i]
		}
	}
	return ws
}

// containsCue reports whether any cue appears as a whole-word sequence in ws.
func containsCue(ws, cues []string) bool {
	if len(ws) == 0 {
		return false
	}
	joined := " " + strings.Join(ws, " ") + " "
	for _, cue := range cues {
		if strings.Contains(joined, " "+cue+" ") {
			return true
		}
	}
	return false
}
