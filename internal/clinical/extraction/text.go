package extraction

import (
	"regexp"
	"strings"
	"unicode"
)

// clauseBreak separates clauses inside a sentence. Negation never crosses it.
var clauseBreak = regexp.MustCompile(`(?i)[;,]|\b(?:but|however|although)\b`)

// sentences splits text at line breaks and at '.', '!' or '?' followed by
// whitespace or the end of the text. Empty sentences are dropped.
func sentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		start := 0
		for i, r := range runes {
			if r != '.' && r != '!' && r != '?' {
				continue
			}
			if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
				continue
			}
			out = appendTrimmed(out, string(runes[start:i+1]))
			start = i + 1
		}
		out = appendTrimmed(out, string(runes[start:]))
	}
	return out
}

// clauses splits a sentence into clauses.
func clauses(sentence string) []string {
	var out []string
	for _, c := range clauseBreak.Split(sentence, -1) {
		out = appendTrimmed(out, c)
	}
	return out
}

func appendTrimmed(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}

// words lowercases s and splits it into words with surrounding punctuation removed.
func words(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
