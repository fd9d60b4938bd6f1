package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Format identifies the source format of an uploaded document.
type Format string

// Supported document formats.
const (
	FormatPDF   Format = "pdf"
	FormatText  Format = "txt"
	FormatDOCX  Format = "docx"
	FormatImage Format = "image"
)

// IsValid returns true if the format is recognised.
func (f Format) IsValid() bool {
	switch f {
	case FormatPDF, FormatText, FormatDOCX, FormatImage:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (f Format) String() string {
	return string(f)
}

// formatsByExtension maps lower-case file extensions to formats.
var formatsByExtension = map[string]Format{
	".pdf":  FormatPDF,
	".txt":  FormatText,
	".docx": FormatDOCX,
	".jpg":  FormatImage,
	".jpeg": FormatImage,
	".png":  FormatImage,
	".webp": FormatImage,
}

// FormatFromFilename detects the document format from a filename extension.
// Returns false for unsupported extensions.
func FormatFromFilename(name string) (Format, bool) {
	f, ok := formatsByExtension[strings.ToLower(filepath.Ext(name))]
	return f, ok
}

// SupportedExtensions returns the file extensions accepted for upload.
func SupportedExtensions() []string {
	return []string{".pdf", ".txt", ".docx", ".jpg", ".jpeg", ".png", ".webp"}
}

// Upload is a file handed to the pipeline before text extraction.
type Upload struct {
	// Filename is the original file name, used for format detection.
	Filename string

	// Content is the raw file bytes.
	Content []byte
}

// RawText is extracted text handed over by a format extractor or OCR engine.
type RawText struct {
	Text      string
	Format    Format
	Filename  string
	SizeBytes int64
}

// NormalisedText is the canonical text stream produced by the normaliser.
type NormalisedText struct {
	// Text is the whitespace-collapsed, NFC-normalised content.
	Text string

	// Hash is the hex SHA-256 of Text, used for idempotence checks.
	Hash string
}

// Document represents an uploaded medical report after normalisation.
// It is immutable once created.
type Document struct {
	// ID is derived from the content hash, so identical content maps to the same ID.
	ID string

	// Filename is the source file name.
	Filename string

	// Format is the source format tag.
	Format Format

	// IngestedAt is when the document entered the pipeline.
	IngestedAt time.Time

	// Content is the full normalised text.
	Content string

	// ContentHash is the hex SHA-256 of Content.
	ContentHash string

	// SizeBytes is the size of the original upload.
	SizeBytes int64

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any
}

// Chunk is an overlapping segment of a document's normalised text.
type Chunk struct {
	// ID is deterministic for a given document, position and span.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Position is the ordinal position within the document.
	Position int

	// Start is the offset of the first character (rune) of the chunk.
	Start int

	// End is the exclusive end offset (rune) of the chunk.
	End int

	// Content is the text of this chunk.
	Content string

	// Embedding is the vector representation for similarity search.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs (section, filename).
	Metadata map[string]any
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// EmbeddingRecord is a stored chunk vector. Records are owned by the index
// and are only ever inserted or purged with their document.
type EmbeddingRecord struct {
	ChunkID    string
	DocumentID string
	Filename   string
	Position   int
	Content    string
	Vector     []float32
	IndexedAt  time.Time
}
