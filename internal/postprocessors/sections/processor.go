// Package sections tags chunks with the clinical report section they belong to.
package sections

import (
	"context"
	"strings"
	"unicode"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

var _ driven.PostProcessor = (*Processor)(nil)

// Section names written to chunk metadata.
const (
	General         = "general"
	Demographics    = "demographics"
	Diagnoses       = "diagnoses"
	Findings        = "findings"
	Recommendations = "recommendations"
)

// Metadata keys set on every chunk.
const (
	MetaSection  = "section"
	MetaFilename = "filename"
)

// headingKeywords maps a heading keyword to its section. A line is a heading
// when it starts with one of these words followed by a colon or the line end.
var headingKeywords = []struct {
	keyword string
	section string
}{
	{"patient", Demographics},
	{"name", Demographics},
	{"age", Demographics},
	{"dob", Demographics},
	{"gender", Demographics},
	{"diagnosis", Diagnoses},
	{"diagnoses", Diagnoses},
	{"impression", Diagnoses},
	{"assessment", Diagnoses},
	{"findings", Findings},
	{"results", Findings},
	{"examination", Findings},
	{"test", Findings},
	{"tests", Findings},
	{"recommendation", Recommendations},
	{"recommendations", Recommendations},
	{"treatment", Recommendations},
	{"plan", Recommendations},
	{"medication", Recommendations},
	{"medications", Recommendations},
	{"prescription", Recommendations},
}

// Processor tags chunks with a section derived from document headings.
type Processor struct{}

// New creates a section tagging processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "sections"
}

type heading struct {
	offset  int
	section string
}

// Process annotates each chunk with the section in effect at its start.
// Chunks that begin before the first heading take the first heading they
// contain, or "general" when they contain none.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return chunks, nil
	}

	headings := findHeadings(doc.Content)

	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any)
		}
		chunks[i].Metadata[MetaSection] = sectionAt(headings, chunks[i].Start, chunks[i].End)
		chunks[i].Metadata[MetaFilename] = doc.Filename
	}

	return chunks, nil
}

// Classify returns the section a single line introduces, or "" if it is not a heading.
func Classify(line string) string {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	trimmed = strings.TrimLeft(trimmed, "#*-• \t")

	for _, h := range headingKeywords {
		if !strings.HasPrefix(trimmed, h.keyword) {
			continue
		}
		rest := trimmed[len(h.keyword):]
		if rest != "" && unicode.IsLetter([]rune(rest)[0]) {
			continue
		}
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		if rest == "" || strings.HasPrefix(rest, ":") {
			return h.section
		}
		// "Patient Name:" and "Test Results:" style headings.
		if idx := strings.IndexByte(rest, ':'); idx > 0 && len(strings.Fields(rest[:idx])) == 1 {
			return h.section
		}
	}
	return ""
}

// findHeadings returns heading positions as rune offsets into content.
func findHeadings(content string) []heading {
	var headings []heading
	offset := 0
	for _, line := range strings.SplitAfter(content, "\n") {
		if section := Classify(line); section != "" {
			headings = append(headings, heading{offset: offset, section: section})
		}
		offset += len([]rune(line))
	}
	return headings
}

func sectionAt(headings []heading, start, end int) string {
	section := ""
	for _, h := range headings {
		if h.offset > start {
			break
		}
		section = h.section
	}
	if section != "" {
		return section
	}
	for _, h := range headings {
		if h.offset < end {
			return h.section
		}
		break
	}
	return General
}
