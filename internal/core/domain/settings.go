package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// EmbeddingProvider identifies the service that turns chunks into vectors.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderLocal is the built-in feature-hashing embedder.
	EmbeddingProviderLocal EmbeddingProvider = "local"

	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI cloud API (or a compatible endpoint).
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderLocal, EmbeddingProviderOllama, EmbeddingProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// IsRemote returns true if this provider is reached over HTTP.
func (p EmbeddingProvider) IsRemote() bool {
	return p == EmbeddingProviderOllama || p == EmbeddingProviderOpenAI
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderLocal:
		return "Local (feature hashing, offline)"
	case EmbeddingProviderOllama:
		return "Ollama (local server)"
	case EmbeddingProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// AllEmbeddingProviders returns the providers in selection order.
func AllEmbeddingProviders() []EmbeddingProvider {
	return []EmbeddingProvider{
		EmbeddingProviderLocal,
		EmbeddingProviderOllama,
		EmbeddingProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns the default model for each provider.
func DefaultEmbeddingModels() map[EmbeddingProvider]string {
	return map[EmbeddingProvider]string{
		EmbeddingProviderLocal:  "hashing-384",
		EmbeddingProviderOllama: "nomic-embed-text",
		EmbeddingProviderOpenAI: "text-embedding-3-small",
	}
}

// VectorBackend identifies where embedding records are kept.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendSQLite persists records in the SQLite data directory.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendMemory keeps records for the process lifetime only.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	return b == VectorBackendSQLite || b == VectorBackendMemory
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// PipelineSettings holds text processing configuration.
type PipelineSettings struct {
	// ChunkSize is the target chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by adjacent chunks.
	ChunkOverlap int

	// MaxFileSizeMB is the upload size ceiling.
	MaxFileSizeMB int

	// Processors is the ordered post-processor chain.
	Processors []string
}

// MaxFileSizeBytes returns the size ceiling in bytes.
func (p PipelineSettings) MaxFileSizeBytes() int64 {
	return int64(p.MaxFileSizeMB) * 1024 * 1024
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider EmbeddingProvider

	// Model is the embedding model identifier.
	Model string

	// BaseURL is the API endpoint (for remote providers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size; zero uses the model default.
	Dimensions int

	// Timeout bounds a single embedding call.
	Timeout time.Duration

	// RequestsPerSecond limits calls to remote providers.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings holds vector index configuration.
type VectorStoreSettings struct {
	// Backend selects the index implementation.
	Backend VectorBackend

	// Path is the data directory for persistent backends.
	Path string

	// Timeout bounds a single index call.
	Timeout time.Duration
}

// RetrievalSettings controls historical context lookup.
type RetrievalSettings struct {
	// TopK is the number of context chunks to retrieve.
	TopK int

	// QueryChars is how much of the document text forms the query.
	QueryChars int
}

// KnowledgeSettings points at an optional knowledge table override.
type KnowledgeSettings struct {
	// Path is a TOML file replacing the built-in table. Empty uses the built-in table.
	Path string
}

// BatchSettings controls concurrent processing of independent documents.
type BatchSettings struct {
	// Workers is the maximum number of documents processed at once.
	Workers int
}

// OCRSettings configures the external OCR engine.
type OCRSettings struct {
	// Command is the tesseract executable.
	Command string

	// Language is the tesseract language code.
	Language string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Pipeline    PipelineSettings
	Embedding   EmbeddingSettings
	VectorStore VectorStoreSettings
	Retrieval   RetrievalSettings
	Knowledge   KnowledgeSettings
	Batch       BatchSettings
	OCR         OCRSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The local embedder is used by default so the pipeline runs offline.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Pipeline: PipelineSettings{
			ChunkSize:     500,
			ChunkOverlap:  50,
			MaxFileSizeMB: 50,
			Processors:    []string{"chunker", "sections"},
		},
		Embedding: EmbeddingSettings{
			Provider:          EmbeddingProviderLocal,
			Model:             "hashing-384",
			Dimensions:        384,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
		},
		VectorStore: VectorStoreSettings{
			Backend: VectorBackendSQLite,
			Timeout: 10 * time.Second,
		},
		Retrieval: RetrievalSettings{
			TopK:       5,
			QueryChars: 500,
		},
		Batch: BatchSettings{
			Workers: 4,
		},
		OCR: OCRSettings{
			Command:  "tesseract",
			Language: "eng",
		},
	}
}

// Validate checks settings for values the pipeline cannot run with.
func (s AppSettings) Validate() error {
	if s.Pipeline.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalidInput)
	}
	if s.Pipeline.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk_overlap must not be negative", ErrInvalidInput)
	}
	if s.Pipeline.ChunkOverlap >= s.Pipeline.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			ErrInvalidInput, s.Pipeline.ChunkOverlap, s.Pipeline.ChunkSize)
	}
	if s.Pipeline.MaxFileSizeMB <= 0 {
		return fmt.Errorf("%w: max_file_size_mb must be positive", ErrInvalidInput)
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidInput, s.Embedding.Provider)
	}
	if !s.VectorStore.Backend.IsValid() {
		return fmt.Errorf("%w: unknown vector store backend %q", ErrInvalidInput, s.VectorStore.Backend)
	}
	if s.Retrieval.TopK < 0 {
		return fmt.Errorf("%w: top_k must not be negative", ErrInvalidInput)
	}
	if s.Batch.Workers <= 0 {
		return fmt.Errorf("%w: batch workers must be positive", ErrInvalidInput)
	}
	return nil
}

// PipelineConfig is the post-processor chain with per-processor settings.
type PipelineConfig struct {
	// Processors is the ordered list of processor names.
	Processors []string

	// ProcessorConfigs holds settings keyed by processor name.
	ProcessorConfigs map[string]map[string]any
}

// PipelineConfig derives the post-processor configuration from pipeline settings.
func (p PipelineSettings) PipelineConfig() PipelineConfig {
	processors := p.Processors
	if len(processors) == 0 {
		processors = []string{"chunker"}
	}
	return PipelineConfig{
		Processors: processors,
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": p.ChunkSize,
				"overlap":    p.ChunkOverlap,
			},
		},
	}
}
