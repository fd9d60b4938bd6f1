// Package embedding creates embedding services from settings and rate-limits
// the remote ones.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/medreport/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/medreport/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/medreport/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// NewService creates the embedding service selected by settings.
func NewService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no embedding settings", domain.ErrEmbeddingUnavailable)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrEmbeddingUnavailable, settings.Provider)
	}

	switch settings.Provider {
	case domain.EmbeddingProviderLocal:
		return hashing.NewEmbeddingService(settings.Dimensions), nil

	case domain.EmbeddingProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      remoteModel(settings.Model),
			Timeout:    settings.Timeout,
			Dimensions: remoteDimensions(settings),
			Limiter:    NewLimiter(settings.RequestsPerSecond),
		}), nil

	case domain.EmbeddingProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      remoteModel(settings.Model),
			Timeout:    settings.Timeout,
			Dimensions: remoteDimensions(settings),
			Limiter:    NewLimiter(settings.RequestsPerSecond),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// NewValidatedService creates the configured service and pings it.
func NewValidatedService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := NewService(settings)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'medreport settings set embedding.provider local' to work offline",
			domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// ValidateService creates a service from settings and pings it.
func ValidateService(settings *domain.EmbeddingSettings) error {
	svc, err := NewValidatedService(settings)
	if err != nil {
		return err
	}
	return svc.Close()
}

// Validator implements driven.EmbeddingValidator.
type Validator struct{}

var _ driven.EmbeddingValidator = Validator{}

// ValidateEmbeddingConfig pings the provider described by settings.
func (Validator) ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	return ValidateService(settings)
}

// remoteModel drops the local default model name so remote adapters fall
// back to their own defaults.
func remoteModel(model string) string {
	if strings.HasPrefix(model, hashing.ModelPrefix) {
		return ""
	}
	return model
}

// remoteDimensions ignores the local default size, which no remote model uses.
func remoteDimensions(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions == hashing.DefaultDimensions && remoteModel(settings.Model) == "" {
		return 0
	}
	return settings.Dimensions
}
