// Package chunker provides an overlapping fixed-size text chunking processor.
package chunker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 50

// Processor splits document content into overlapping chunks.
// Sizes and offsets are counted in characters (runes), never bytes, so a
// chunk boundary cannot fall inside a multi-byte character.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
// An overlap that is not smaller than the chunk size is kept as given and
// reported by Validate and Process.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Validate returns domain.ErrChunking if the configuration cannot make progress.
func (p *Processor) Validate() error {
	if p.overlap >= p.chunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			domain.ErrChunking, p.overlap, p.chunkSize)
	}
	return nil
}

// Count returns how many chunks a text of length characters produces.
func (p *Processor) Count(length int) int {
	if length <= 0 {
		return 0
	}
	if length <= p.chunkSize {
		return 1
	}
	step := p.chunkSize - p.overlap
	return (length - p.overlap + step - 1) / step
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
//
// Chunk i starts at i*(size-overlap). The last chunk ends at the end of the
// text and may be shorter than size. The same content and configuration
// always produce the same offsets and IDs.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if doc.Content == "" {
		return nil, nil
	}

	content := []rune(doc.Content)
	contentLen := len(content)
	namespace := documentNamespace(doc.ID)

	chunks := make([]domain.Chunk, 0, p.Count(contentLen))
	step := p.chunkSize - p.overlap

	for position, start := 0, 0; ; position, start = position+1, start+step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + p.chunkSize
		if end > contentLen {
			end = contentLen
		}

		chunks = append(chunks, domain.Chunk{
			ID:         chunkID(namespace, position, start, end),
			DocumentID: doc.ID,
			Position:   position,
			Start:      start,
			End:        end,
			Content:    string(content[start:end]),
			Metadata:   make(map[string]any),
		})

		if end == contentLen {
			break
		}
	}

	return chunks, nil
}

// documentNamespace returns the UUID namespace chunk IDs are derived from.
func documentNamespace(documentID string) uuid.UUID {
	if id, err := uuid.Parse(documentID); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(documentID))
}

func chunkID(namespace uuid.UUID, position, start, end int) string {
	name := fmt.Sprintf("chunk:%d:%d:%d", position, start, end)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}
