package postprocessors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/postprocessors/sections"
)

type stubProcessor struct {
	name   string
	chunks []domain.Chunk
	err    error
	seen   []domain.Chunk
}

func (s *stubProcessor) Name() string { return s.name }

func (s *stubProcessor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	s.seen = chunks
	if s.err != nil {
		return nil, s.err
	}
	if s.chunks != nil {
		return s.chunks, nil
	}
	return chunks, nil
}

func TestPipeline_Process(t *testing.T) {
	doc := &domain.Document{ID: "doc", Content: "content"}

	t.Run("nil document", func(t *testing.T) {
		_, err := NewPipeline().Process(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("empty pipeline yields no chunks", func(t *testing.T) {
		chunks, err := NewPipeline().Process(context.Background(), doc)
		require.NoError(t, err)
		assert.Nil(t, chunks)
	})

	t.Run("chunks flow between processors", func(t *testing.T) {
		created := []domain.Chunk{{ID: "c1"}}
		first := &stubProcessor{name: "first", chunks: created}
		second := &stubProcessor{name: "second"}

		p := NewPipeline(first)
		p.Add(second)

		chunks, err := p.Process(context.Background(), doc)
		require.NoError(t, err)
		assert.Nil(t, first.seen)
		assert.Equal(t, created, second.seen)
		assert.Equal(t, created, chunks)
		assert.Equal(t, []string{"first", "second"}, p.Names())
	})

	t.Run("error names the processor", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewPipeline(&stubProcessor{name: "failing", err: boom}).Process(context.Background(), doc)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "failing")
	})
}

func TestBuildPipeline(t *testing.T) {
	r := DefaultRegistry()

	t.Run("default configuration", func(t *testing.T) {
		cfg := domain.DefaultAppSettings().Pipeline.PipelineConfig()

		p, err := BuildPipeline(r, cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"chunker", "sections"}, p.Names())

		doc := &domain.Document{
			ID:       "doc",
			Filename: "report.txt",
			Content:  "Diagnosis:\n" + strings.Repeat("Community-acquired pneumonia. ", 40),
		}
		chunks, err := p.Process(context.Background(), doc)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		for _, c := range chunks {
			assert.Equal(t, sections.Diagnoses, c.Metadata[sections.MetaSection])
		}
	})

	t.Run("unknown processor", func(t *testing.T) {
		_, err := BuildPipeline(r, domain.PipelineConfig{Processors: []string{"nope"}})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("overlap not smaller than size", func(t *testing.T) {
		cfg := domain.PipelineConfig{
			Processors: []string{"chunker"},
			ProcessorConfigs: map[string]map[string]any{
				"chunker": {"chunk_size": 100, "overlap": 100},
			},
		}
		_, err := BuildPipeline(r, cfg)
		assert.ErrorIs(t, err, domain.ErrChunking)
	})
}
