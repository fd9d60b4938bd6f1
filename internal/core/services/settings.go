package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
	"github.com/custodia-labs/medreport/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize        = "pipeline.chunk_size"
	keyChunkOverlap     = "pipeline.chunk_overlap"
	keyMaxFileSizeMB    = "pipeline.max_file_size_mb"
	keyProcessors       = "pipeline.processors"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedDimensions  = "embedding.dimensions"
	keyEmbedTimeout     = "embedding.timeout"
	keyEmbedRPS         = "embedding.requests_per_second"
	keyVectorBackend    = "vector_store.backend"
	keyVectorPath       = "vector_store.path"
	keyVectorTimeout    = "vector_store.timeout"
	keyRetrievalTopK    = "retrieval.top_k"
	keyRetrievalQuery   = "retrieval.query_chars"
	keyKnowledgePath    = "knowledge.path"
	keyBatchWorkers     = "batch.workers"
	keyOCRCommand       = "ocr.command"
	keyOCRLanguage      = "ocr.language"
	processorSettingsNS = "pipeline."
)

// settingKind is how a key's text value is parsed and stored.
type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindDuration
	kindList
)

// setting binds a config key to its field in AppSettings.
type setting struct {
	key   string
	kind  settingKind
	read  func(s *domain.AppSettings) any
	write func(s *domain.AppSettings, v any)
}

// settingsTable lists every known key in display order.
var settingsTable = []setting{
	{keyChunkSize, kindInt,
		func(s *domain.AppSettings) any { return s.Pipeline.ChunkSize },
		func(s *domain.AppSettings, v any) { s.Pipeline.ChunkSize = v.(int) }},
	{keyChunkOverlap, kindInt,
		func(s *domain.AppSettings) any { return s.Pipeline.ChunkOverlap },
		func(s *domain.AppSettings, v any) { s.Pipeline.ChunkOverlap = v.(int) }},
	{keyMaxFileSizeMB, kindInt,
		func(s *domain.AppSettings) any { return s.Pipeline.MaxFileSizeMB },
		func(s *domain.AppSettings, v any) { s.Pipeline.MaxFileSizeMB = v.(int) }},
	{keyProcessors, kindList,
		func(s *domain.AppSettings) any { return s.Pipeline.Processors },
		func(s *domain.AppSettings, v any) { s.Pipeline.Processors = v.([]string) }},
	{keyEmbedProvider, kindString,
		func(s *domain.AppSettings) any { return s.Embedding.Provider.String() },
		func(s *domain.AppSettings, v any) { s.Embedding.Provider = domain.EmbeddingProvider(v.(string)) }},
	{keyEmbedModel, kindString,
		func(s *domain.AppSettings) any { return s.Embedding.Model },
		func(s *domain.AppSettings, v any) { s.Embedding.Model = v.(string) }},
	{keyEmbedBaseURL, kindString,
		func(s *domain.AppSettings) any { return s.Embedding.BaseURL },
		func(s *domain.AppSettings, v any) { s.Embedding.BaseURL = v.(string) }},
	{keyEmbedAPIKey, kindString,
		func(s *domain.AppSettings) any { return s.Embedding.APIKey },
		func(s *domain.AppSettings, v any) { s.Embedding.APIKey = v.(string) }},
	{keyEmbedDimensions, kindInt,
		func(s *domain.AppSettings) any { return s.Embedding.Dimensions },
		func(s *domain.AppSettings, v any) { s.Embedding.Dimensions = v.(int) }},
	{keyEmbedTimeout, kindDuration,
		func(s *domain.AppSettings) any { return s.Embedding.Timeout },
		func(s *domain.AppSettings, v any) { s.Embedding.Timeout = v.(time.Duration) }},
	{keyEmbedRPS, kindFloat,
		func(s *domain.AppSettings) any { return s.Embedding.RequestsPerSecond },
		func(s *domain.AppSettings, v any) { s.Embedding.RequestsPerSecond = v.(float64) }},
	{keyVectorBackend, kindString,
		func(s *domain.AppSettings) any { return s.VectorStore.Backend.String() },
		func(s *domain.AppSettings, v any) { s.VectorStore.Backend = domain.VectorBackend(v.(string)) }},
	{keyVectorPath, kindString,
		func(s *domain.AppSettings) any { return s.VectorStore.Path },
		func(s *domain.AppSettings, v any) { s.VectorStore.Path = v.(string) }},
	{keyVectorTimeout, kindDuration,
		func(s *domain.AppSettings) any { return s.VectorStore.Timeout },
		func(s *domain.AppSettings, v any) { s.VectorStore.Timeout = v.(time.Duration) }},
	{keyRetrievalTopK, kindInt,
		func(s *domain.AppSettings) any { return s.Retrieval.TopK },
		func(s *domain.AppSettings, v any) { s.Retrieval.TopK = v.(int) }},
	{keyRetrievalQuery, kindInt,
		func(s *domain.AppSettings) any { return s.Retrieval.QueryChars },
		func(s *domain.AppSettings, v any) { s.Retrieval.QueryChars = v.(int) }},
	{keyKnowledgePath, kindString,
		func(s *domain.AppSettings) any { return s.Knowledge.Path },
		func(s *domain.AppSettings, v any) { s.Knowledge.Path = v.(string) }},
	{keyBatchWorkers, kindInt,
		func(s *domain.AppSettings) any { return s.Batch.Workers },
		func(s *domain.AppSettings, v any) { s.Batch.Workers = v.(int) }},
	{keyOCRCommand, kindString,
		func(s *domain.AppSettings) any { return s.OCR.Command },
		func(s *domain.AppSettings, v any) { s.OCR.Command = v.(string) }},
	{keyOCRLanguage, kindString,
		func(s *domain.AppSettings) any { return s.OCR.Language },
		func(s *domain.AppSettings, v any) { s.OCR.Language = v.(string) }},
}

func lookupSetting(key string) (setting, bool) {
	for _, st := range settingsTable {
		if st.key == key {
			return st, true
		}
	}
	return setting{}, false
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.EmbeddingValidator
}

// NewSettingsService creates a new settings service. The validator is optional.
func NewSettingsService(configStore driven.ConfigStore, validator driven.EmbeddingValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validator:   validator,
	}
}

// Get retrieves current application settings. Missing or unusable stored
// values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	for _, st := range settingsTable {
		if _, exists := s.configStore.Get(st.key); !exists {
			continue
		}
		if v, ok := s.stored(st); ok {
			st.write(&settings, v)
		}
	}

	if !settings.Embedding.Provider.IsValid() {
		settings.Embedding.Provider = domain.DefaultAppSettings().Embedding.Provider
	}
	if !settings.VectorStore.Backend.IsValid() {
		settings.VectorStore.Backend = domain.DefaultAppSettings().VectorStore.Backend
	}
	return &settings, nil
}

// stored reads a key from the config store in its native type.
func (s *SettingsService) stored(st setting) (any, bool) {
	switch st.kind {
	case kindInt:
		n := s.configStore.GetInt(st.key)
		return n, n != 0 || isZeroNumber(s.configStore, st.key)
	case kindFloat:
		f := s.configStore.GetFloat(st.key)
		return f, f > 0
	case kindDuration:
		d, err := time.ParseDuration(s.configStore.GetString(st.key))
		return d, err == nil && d > 0
	case kindList:
		list := s.configStore.GetStringSlice(st.key)
		return list, len(list) > 0
	default:
		str := s.configStore.GetString(st.key)
		return str, str != ""
	}
}

// isZeroNumber reports whether key explicitly holds the number zero.
func isZeroNumber(store driven.ConfigStore, key string) bool {
	v, _ := store.Get(key)
	switch n := v.(type) {
	case int:
		return n == 0
	case int64:
		return n == 0
	case float64:
		return n == 0
	default:
		return false
	}
}

// Save persists application settings. The API key is only written when set.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	for _, st := range settingsTable {
		v := st.read(settings)
		if st.key == keyEmbedAPIKey && v.(string) == "" {
			continue
		}
		if err := s.configStore.Set(st.key, storable(st.kind, v)); err != nil {
			return fmt.Errorf("save %s: %w", st.key, err)
		}
	}
	return nil
}

// storable converts a field value to what the config file holds.
func storable(kind settingKind, v any) any {
	if kind == kindDuration {
		return v.(time.Duration).String()
	}
	return v
}

// Set parses value for a known key, validates the resulting settings and
// persists the key.
func (s *SettingsService) Set(key, value string) error {
	st, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseSetting(st.kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	st.write(settings, parsed)
	if err := settings.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(key, storable(st.kind, parsed)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func parseSetting(kind settingKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err == nil && f <= 0 {
			return nil, fmt.Errorf("must be positive")
		}
		return f, err
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err == nil && d <= 0 {
			return nil, fmt.Errorf("must be positive")
		}
		return d, err
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("at least one item is required")
		}
		return items, nil
	default:
		return value, nil
	}
}

// Keys returns the known setting keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingsTable))
	for i, st := range settingsTable {
		keys[i] = st.key
	}
	return keys
}

// Lookup returns the effective value of a known key as text.
func (s *SettingsService) Lookup(key string) (string, error) {
	st, ok := lookupSetting(key)
	if !ok {
		return "", fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	settings, err := s.Get()
	if err != nil {
		return "", err
	}
	return formatSetting(st.read(settings)), nil
}

func formatSetting(v any) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, ",")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.validator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.validator.ValidateEmbeddingConfig(&settings.Embedding)
}

// GetPipelineConfig returns the post-processor pipeline configuration.
// Per-processor keys such as pipeline.chunker.chunk_size override the
// top-level chunking settings.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	settings, _ := s.Get()
	cfg := settings.Pipeline.PipelineConfig()

	for _, name := range cfg.Processors {
		overrides := s.loadProcessorConfig(processorSettingsNS + name + ".")
		if len(overrides) == 0 {
			continue
		}
		merged := make(map[string]any)
		for k, v := range cfg.ProcessorConfigs[name] {
			merged[k] = v
		}
		for k, v := range overrides {
			merged[k] = v
		}
		cfg.ProcessorConfigs[name] = merged
	}
	return cfg
}

// loadProcessorConfig loads config keys with a given prefix into a map.
func (s *SettingsService) loadProcessorConfig(prefix string) map[string]any {
	cfg := make(map[string]any)
	for _, key := range s.configStore.Keys() {
		if rest, ok := strings.CutPrefix(key, prefix); ok && rest != "" && !strings.Contains(rest, ".") {
			v, _ := s.configStore.Get(key)
			cfg[rest] = v
		}
	}
	return cfg
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}
