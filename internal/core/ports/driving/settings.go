package driving

import "github.com/custodia-labs/medreport/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings with defaults applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single known key, converting value to the key's type.
	Set(key, value string) error

	// Keys returns the known setting keys in display order.
	Keys() []string

	// Lookup returns the effective value of a known key as text.
	Lookup(key string) (string, error)

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig() error

	// Path returns the configuration file path.
	Path() string
}
