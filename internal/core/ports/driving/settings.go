package driving

import "github.com/custodia-labs/repochat/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with environment overrides applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks the current settings for errors that would fail at first use.
	Validate() error

	// CheckProviders pings the configured embedding and LLM providers.
	CheckProviders() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
