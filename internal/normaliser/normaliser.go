// Package normaliser converts extracted text into the canonical stream the
// rest of the pipeline works on, and rejects input that is not worth
// processing before any expensive work starts.
package normaliser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.TextNormaliser = (*Normaliser)(nil)

// DefaultMaxBytes is the default size ceiling (50 MB).
const DefaultMaxBytes int64 = 50 * 1024 * 1024

// maxUnreadableRatio is the share of replacement characters above which
// text is treated as undecodable.
const maxUnreadableRatio = 0.25

// Normaliser validates and canonicalises raw text. It is stateless and safe
// for concurrent use.
type Normaliser struct {
	maxBytes int64
}

// Option configures the normaliser.
type Option func(*Normaliser)

// WithMaxBytes sets the size ceiling in bytes.
func WithMaxBytes(n int64) Option {
	return func(nz *Normaliser) {
		if n > 0 {
			nz.maxBytes = n
		}
	}
}

// New creates a normaliser with the given options.
func New(opts ...Option) *Normaliser {
	n := &Normaliser{maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// MaxBytes returns the configured size ceiling.
func (n *Normaliser) MaxBytes() int64 {
	return n.maxBytes
}

// Normalise validates raw and returns its canonical form with a content hash.
func (n *Normaliser) Normalise(raw domain.RawText) (domain.NormalisedText, error) {
	size := raw.SizeBytes
	if l := int64(len(raw.Text)); l > size {
		size = l
	}
	if size > n.maxBytes {
		return domain.NormalisedText{}, fmt.Errorf("%w: %s is %d bytes, limit is %d bytes",
			domain.ErrValidation, displayName(raw.Filename), size, n.maxBytes)
	}

	text := raw.Text
	if !utf8.ValidString(text) {
		repaired := strings.ToValidUTF8(text, "")
		if len(repaired) < len(text)/2 {
			return domain.NormalisedText{}, fmt.Errorf("%w: %s is not readable text",
				domain.ErrValidation, displayName(raw.Filename))
		}
		text = repaired
	}

	if unreadable(text) {
		return domain.NormalisedText{}, fmt.Errorf("%w: %s is not readable text",
			domain.ErrValidation, displayName(raw.Filename))
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	canonical, _, err := transform.String(transform.Chain(norm.NFC, runes.Remove(runes.Predicate(isNoise))), text)
	if err != nil {
		return domain.NormalisedText{}, fmt.Errorf("%w: normalising %s: %w",
			domain.ErrValidation, displayName(raw.Filename), err)
	}

	canonical = collapseWhitespace(canonical)
	if canonical == "" {
		return domain.NormalisedText{}, fmt.Errorf("%w: %s has no text content",
			domain.ErrValidation, displayName(raw.Filename))
	}

	return domain.NormalisedText{
		Text: canonical,
		Hash: Hash(canonical),
	}, nil
}

// Hash returns the hex SHA-256 of text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// isNoise reports runes removed from the canonical stream: control
// characters other than newline and tab, byte order marks and zero-width
// characters.
func isNoise(r rune) bool {
	switch r {
	case '\n', '\t':
		return false
	case '\uFEFF', '\u200B', '\u200C', '\u200D', '\u2060':
		return true
	}
	return unicode.IsControl(r)
}

// unreadable reports whether text is dominated by replacement characters,
// which extractors emit for undecodable bytes.
func unreadable(text string) bool {
	total, bad := 0, 0
	for _, r := range text {
		total++
		if r == utf8.RuneError {
			bad++
		}
	}
	return total > 0 && float64(bad)/float64(total) > maxUnreadableRatio
}

// collapseWhitespace collapses blank runs inside lines, trims lines and
// keeps at most one empty line between paragraphs.
func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")

	var b strings.Builder
	b.Grow(len(text))

	blank := 0
	wrote := false
	for _, line := range lines {
		line = strings.Join(strings.FieldsFunc(line, isInlineSpace), " ")
		if line == "" {
			blank++
			continue
		}
		if wrote {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		b.WriteString(line)
		wrote = true
		blank = 0
	}
	return b.String()
}

func isInlineSpace(r rune) bool {
	return r != '\n' && unicode.IsSpace(r)
}

func displayName(filename string) string {
	if filename == "" {
		return "document"
	}
	return filename
}
