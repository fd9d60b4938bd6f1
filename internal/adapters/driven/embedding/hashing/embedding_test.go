package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestEmbed_DeterministicAndNormalised(t *testing.T) {
	svc := NewEmbeddingService(0)
	ctx := context.Background()

	a, err := svc.Embed(ctx, "Patient has type 2 diabetes and hypertension.")
	require.NoError(t, err)
	b, err := svc.Embed(ctx, "Patient has type 2 diabetes and hypertension.")
	require.NoError(t, err)

	assert.Len(t, a, DefaultDimensions)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
}

func TestEmbed_SimilarTextScoresHigher(t *testing.T) {
	svc := NewEmbeddingService(256)
	ctx := context.Background()

	query, _ := svc.Embed(ctx, "history of type 2 diabetes on metformin")
	related, _ := svc.Embed(ctx, "type 2 diabetes managed with metformin")
	unrelated, _ := svc.Embed(ctx, "ankle sprain after a football match")

	assert.Greater(t,
		domain.CosineSimilarity(query, related),
		domain.CosineSimilarity(query, unrelated))
}

func TestEmbed_OnlyStopwordsGivesZeroVector(t *testing.T) {
	svc := NewEmbeddingService(16)

	v, err := svc.Embed(context.Background(), "the patient is in the")
	require.NoError(t, err)
	assert.Len(t, v, 16)
	assert.Zero(t, norm(v))
}

func TestEmbedBatch(t *testing.T) {
	svc := NewEmbeddingService(32)
	ctx := context.Background()

	vs, err := svc.EmbedBatch(ctx, []string{"asthma", "anemia"})
	require.NoError(t, err)
	require.Len(t, vs, 2)

	single, _ := svc.Embed(ctx, "anemia")
	assert.Equal(t, single, vs[1])

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.EmbedBatch(cancelled, []string{"asthma"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetadata(t *testing.T) {
	svc := NewEmbeddingService(128)
	assert.Equal(t, 128, svc.Dimensions())
	assert.Equal(t, "hashing-128", svc.ModelName())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"bp", "140", "90", "elevated"}, tokenize("The BP was 140/90, elevated."))
}
