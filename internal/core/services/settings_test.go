package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medreport/internal/adapters/driven/config/file"
	"github.com/custodia-labs/medreport/internal/core/domain"
)

type mockValidator struct {
	err  error
	seen *domain.EmbeddingSettings
}

func (m *mockValidator) ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	m.seen = settings
	return m.err
}

func newTestConfigStore(t *testing.T) *file.ConfigStore {
	t.Helper()
	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(newTestConfigStore(t), nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("embedding.model", "nomic-embed-text"))
	require.NoError(t, store.Set("pipeline.chunk_size", 800))
	require.NoError(t, store.Set("embedding.timeout", "45s"))
	require.NoError(t, store.Set("pipeline.processors", []string{"chunker"}))

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, 800, settings.Pipeline.ChunkSize)
	assert.Equal(t, 45*time.Second, settings.Embedding.Timeout)
	assert.Equal(t, []string{"chunker"}, settings.Pipeline.Processors)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("embedding.provider", "anthropic"))
	require.NoError(t, store.Set("vector_store.backend", "qdrant"))
	require.NoError(t, store.Set("embedding.timeout", "soon"))

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.VectorStore.Backend, settings.VectorStore.Backend)
	assert.Equal(t, defaults.Embedding.Timeout, settings.Embedding.Timeout)
}

func TestSettingsService_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := file.NewConfigStore(dir)
	require.NoError(t, err)
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Retrieval.TopK = 8
	settings.VectorStore.Backend = domain.VectorBackendMemory
	settings.Embedding.Timeout = 10 * time.Second
	require.NoError(t, service.Save(&settings))

	_, hasKey := store.Get("embedding.api_key")
	assert.False(t, hasKey)

	reopened, err := file.NewConfigStore(dir)
	require.NoError(t, err)
	loaded, err := NewSettingsService(reopened, nil).Get()
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.Retrieval.TopK)
	assert.Equal(t, domain.VectorBackendMemory, loaded.VectorStore.Backend)
	assert.Equal(t, 10*time.Second, loaded.Embedding.Timeout)
}

func TestSettingsService_Save_RejectsInvalid(t *testing.T) {
	store := newTestConfigStore(t)
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Pipeline.ChunkOverlap = settings.Pipeline.ChunkSize

	err := service.Save(&settings)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, store.Keys())
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"pipeline.chunk_size", "750", "750"},
		{"embedding.requests_per_second", "2.5", "2.5"},
		{"embedding.timeout", "1m", "1m0s"},
		{"pipeline.processors", "chunker, sections", "chunker,sections"},
		{"embedding.provider", "ollama", "ollama"},
		{"retrieval.top_k", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			service := NewSettingsService(newTestConfigStore(t), nil)

			require.NoError(t, service.Set(tt.key, tt.value))

			got, err := service.Lookup(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsService_Set_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "search.mode", "hybrid"},
		{"not a number", "pipeline.chunk_size", "big"},
		{"overlap too large", "pipeline.chunk_overlap", "500"},
		{"unknown provider", "embedding.provider", "anthropic"},
		{"negative rate", "embedding.requests_per_second", "-1"},
		{"zero duration", "vector_store.timeout", "0s"},
		{"empty list", "pipeline.processors", " , "},
		{"zero workers", "batch.workers", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestConfigStore(t)
			service := NewSettingsService(store, nil)

			err := service.Set(tt.key, tt.value)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, exists := store.Get(tt.key)
			assert.False(t, exists)
		})
	}
}

func TestSettingsService_Keys(t *testing.T) {
	service := NewSettingsService(newTestConfigStore(t), nil)

	keys := service.Keys()

	assert.Len(t, keys, len(settingsTable))
	assert.Equal(t, "pipeline.chunk_size", keys[0])
	assert.Contains(t, keys, "embedding.api_key")
	for _, key := range keys {
		_, err := service.Lookup(key)
		assert.NoError(t, err, key)
	}
}

func TestSettingsService_Lookup_Unknown(t *testing.T) {
	service := NewSettingsService(newTestConfigStore(t), nil)

	_, err := service.Lookup("llm.provider")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_ValidateEmbeddingConfig(t *testing.T) {
	t.Run("no validator", func(t *testing.T) {
		service := NewSettingsService(newTestConfigStore(t), nil)
		assert.NoError(t, service.ValidateEmbeddingConfig())
	})

	t.Run("passes effective settings", func(t *testing.T) {
		store := newTestConfigStore(t)
		require.NoError(t, store.Set("embedding.model", "custom"))
		validator := &mockValidator{}

		require.NoError(t, NewSettingsService(store, validator).ValidateEmbeddingConfig())
		require.NotNil(t, validator.seen)
		assert.Equal(t, "custom", validator.seen.Model)
	})

	t.Run("returns validator error", func(t *testing.T) {
		validator := &mockValidator{err: errors.New("unreachable")}
		err := NewSettingsService(newTestConfigStore(t), validator).ValidateEmbeddingConfig()
		assert.EqualError(t, err, "unreachable")
	})
}

func TestSettingsService_GetPipelineConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewSettingsService(newTestConfigStore(t), nil).GetPipelineConfig()

		assert.Equal(t, []string{"chunker", "sections"}, cfg.Processors)
		assert.Equal(t, 500, cfg.ProcessorConfigs["chunker"]["chunk_size"])
		assert.Equal(t, 50, cfg.ProcessorConfigs["chunker"]["overlap"])
	})

	t.Run("processor overrides", func(t *testing.T) {
		store := newTestConfigStore(t)
		require.NoError(t, store.Set("pipeline.chunker.overlap", 20))

		cfg := NewSettingsService(store, nil).GetPipelineConfig()

		assert.Equal(t, 500, cfg.ProcessorConfigs["chunker"]["chunk_size"])
		assert.Equal(t, 20, cfg.ProcessorConfigs["chunker"]["overlap"])
	})
}

func TestSettingsService_Path(t *testing.T) {
	store := newTestConfigStore(t)
	assert.Equal(t, store.Path(), NewSettingsService(store, nil).Path())
}
