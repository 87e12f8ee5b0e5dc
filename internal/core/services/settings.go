package services

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyEmbedProvider   = "embedding.provider"
	KeyEmbedModel      = "embedding.model"
	KeyEmbedBaseURL    = "embedding.base_url"
	KeyEmbedAPIKey     = "embedding.api_key"
	KeyEmbedDimensions = "embedding.dimensions"
	KeyLLMProvider     = "llm.provider"
	KeyLLMModel        = "llm.model"
	KeyLLMBaseURL      = "llm.base_url"
	KeyLLMAPIKey       = "llm.api_key"
	KeyStoreBackend    = "store.backend"
	KeyStoreIndex      = "store.index"
	KeyStoreMetric     = "store.metric"
	KeyStoreDataDir    = "store.data_dir"
	KeyStoreURL        = "store.url"
	KeyStoreAPIKey     = "store.api_key"
	KeyStoreUsername   = "store.username"
	KeyStorePassword   = "store.password"
	KeyStoreDatabase   = "store.database"
	KeyChunkSize       = "chunking.size"
	KeyChunkOverlap    = "chunking.overlap"
	KeyTopK            = "retrieval.top_k"
	KeyConcurrency     = "retrieval.concurrency"
	KeyIDScheme        = "retrieval.id_scheme"
	KeyNamespace       = "session.namespace"
	KeyCacheEnabled    = "cache.enabled"
	KeyCacheRedisURL   = "cache.redis_url"
	KeyCacheTTL        = "cache.ttl"
	KeyGitHubToken     = "github.token"
	KeyGitHubAPI       = "github.api"
	KeyServerAddr      = "server.addr"
)

// Environment variables that override stored secrets and endpoints.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvAnthropicKey   = "ANTHROPIC_API_KEY"
	EnvGroqKey        = "GROQ_API"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvRedisURL       = "REDIS_URL"
	EnvQdrantAPIKey   = "QDRANT_API_KEY"
	EnvMilvusPassword = "MILVUS_PASSWORD"
)

// DefaultOllamaURL is used for local providers with no base URL.
const DefaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service reading environment
// overrides from the process environment.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// SetEnvLookup replaces the environment lookup. Used in tests.
func (s *SettingsService) SetEnvLookup(getenv func(string) string) {
	s.getenv = getenv
}

// SetAIValidator enables provider connectivity checks in CheckProviders.
func (s *SettingsService) SetAIValidator(v driven.AIConfigValidator) {
	s.aiValidator = v
}

// Get retrieves current application settings.
// Stored values win over defaults; environment variables fill empty secrets.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	ttl := d.Cache.TTL
	if raw := s.configStore.GetString(KeyCacheTTL); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, KeyCacheTTL, err)
		}
		ttl = parsed
	}

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(KeyEmbedProvider, d.Embedding.Provider),
			Model:      s.configStore.GetString(KeyEmbedModel),
			BaseURL:    s.configStore.GetString(KeyEmbedBaseURL),
			APIKey:     s.configStore.GetString(KeyEmbedAPIKey),
			Dimensions: s.configStore.GetInt(KeyEmbedDimensions),
		},
		LLM: domain.LLMSettings{
			Provider: domain.AIProvider(s.configStore.GetString(KeyLLMProvider)),
			Model:    s.configStore.GetString(KeyLLMModel),
			BaseURL:  s.configStore.GetString(KeyLLMBaseURL),
			APIKey:   s.configStore.GetString(KeyLLMAPIKey),
		},
		Store: domain.StoreSettings{
			Backend:  domain.StoreBackend(s.getString(KeyStoreBackend, d.Store.Backend.String())),
			Index:    s.getString(KeyStoreIndex, d.Store.Index),
			Metric:   domain.Metric(s.getString(KeyStoreMetric, d.Store.Metric.String())),
			DataDir:  s.configStore.GetString(KeyStoreDataDir),
			URL:      s.configStore.GetString(KeyStoreURL),
			APIKey:   s.configStore.GetString(KeyStoreAPIKey),
			Username: s.configStore.GetString(KeyStoreUsername),
			Password: s.configStore.GetString(KeyStorePassword),
			Database: s.configStore.GetString(KeyStoreDatabase),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(KeyChunkSize, d.Chunking.Size),
			Overlap: s.getIntAllowZero(KeyChunkOverlap, d.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:        s.getInt(KeyTopK, d.Retrieval.TopK),
			Concurrency: s.getInt(KeyConcurrency, d.Retrieval.Concurrency),
			IDScheme:    domain.IDScheme(s.getString(KeyIDScheme, string(d.Retrieval.IDScheme))),
		},
		Cache: domain.CacheSettings{
			Enabled:  s.getBool(KeyCacheEnabled, d.Cache.Enabled),
			RedisURL: s.configStore.GetString(KeyCacheRedisURL),
			TTL:      ttl,
		},
		GitHub: domain.GitHubSettings{
			Token:  s.configStore.GetString(KeyGitHubToken),
			UseAPI: s.getBool(KeyGitHubAPI, d.GitHub.UseAPI),
		},
		Namespace:  s.getString(KeyNamespace, d.Namespace),
		ServerAddr: s.getString(KeyServerAddr, d.ServerAddr),
	}

	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.Embedding.Dimensions == 0 {
		settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]
	}
	if settings.LLM.Provider != "" && settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}

	s.applyEnv(settings)
	return settings, nil
}

// applyEnv fills empty secrets and endpoints from the environment.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	fill := func(dst *string, env string) {
		if *dst == "" {
			*dst = s.getenv(env)
		}
	}
	if env := providerKeyEnv(settings.Embedding.Provider); env != "" {
		fill(&settings.Embedding.APIKey, env)
	}
	if env := providerKeyEnv(settings.LLM.Provider); env != "" {
		fill(&settings.LLM.APIKey, env)
	}
	fill(&settings.GitHub.Token, EnvGitHubToken)
	fill(&settings.Cache.RedisURL, EnvRedisURL)
	if settings.Store.Backend == domain.StoreBackendQdrant {
		fill(&settings.Store.APIKey, EnvQdrantAPIKey)
	}
	if settings.Store.Backend == domain.StoreBackendMilvus {
		fill(&settings.Store.Password, EnvMilvusPassword)
	}
}

// providerKeyEnv returns the environment variable holding a provider's API key.
func providerKeyEnv(p domain.AIProvider) string {
	switch p {
	case domain.AIProviderOpenAI:
		return EnvOpenAIKey
	case domain.AIProviderAnthropic:
		return EnvAnthropicKey
	case domain.AIProviderGroq:
		return EnvGroqKey
	default:
		return ""
	}
}

// Save persists application settings.
// API keys are only written when set, so environment-provided keys stay out of the file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{KeyEmbedProvider, settings.Embedding.Provider.String()},
		{KeyEmbedModel, settings.Embedding.Model},
		{KeyEmbedBaseURL, settings.Embedding.BaseURL},
		{KeyEmbedDimensions, settings.Embedding.Dimensions},
		{KeyLLMProvider, settings.LLM.Provider.String()},
		{KeyLLMModel, settings.LLM.Model},
		{KeyLLMBaseURL, settings.LLM.BaseURL},
		{KeyStoreBackend, settings.Store.Backend.String()},
		{KeyStoreIndex, settings.Store.Index},
		{KeyStoreMetric, settings.Store.Metric.String()},
		{KeyChunkSize, settings.Chunking.Size},
		{KeyChunkOverlap, settings.Chunking.Overlap},
		{KeyTopK, settings.Retrieval.TopK},
		{KeyConcurrency, settings.Retrieval.Concurrency},
		{KeyIDScheme, string(settings.Retrieval.IDScheme)},
		{KeyNamespace, settings.Namespace},
		{KeyCacheEnabled, settings.Cache.Enabled},
		{KeyCacheTTL, settings.Cache.TTL.String()},
		{KeyGitHubAPI, settings.GitHub.UseAPI},
		{KeyServerAddr, settings.ServerAddr},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	optional := []struct {
		key   string
		value string
	}{
		{KeyEmbedAPIKey, s.unlessFromEnv(settings.Embedding.APIKey, providerKeyEnv(settings.Embedding.Provider))},
		{KeyLLMAPIKey, s.unlessFromEnv(settings.LLM.APIKey, providerKeyEnv(settings.LLM.Provider))},
		{KeyStoreDataDir, settings.Store.DataDir},
		{KeyStoreURL, settings.Store.URL},
		{KeyCacheRedisURL, s.unlessFromEnv(settings.Cache.RedisURL, EnvRedisURL)},
	}
	for _, v := range optional {
		if v.value == "" {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return nil
}

// unlessFromEnv returns "" when value was filled from the environment variable env.
func (s *SettingsService) unlessFromEnv(value, env string) string {
	if env != "" && value != "" && s.getenv(env) == value {
		return ""
	}
	return value
}

// SetEmbeddingProvider configures the embedding provider.
// The index dimension follows the model when the model is known.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(providerKeyEnv(provider)) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	switch {
	case provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "":
		settings.Embedding.BaseURL = DefaultOllamaURL
	case !provider.IsLocal():
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() || !slices.Contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(providerKeyEnv(provider)) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = DefaultOllamaURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks the current settings for errors that would fail at first use.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %s is not configured", domain.ErrConfiguration, settings.Embedding.Provider)
	}
	if settings.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: unknown dimension for embedding model %q; set %s",
			domain.ErrConfiguration, settings.Embedding.Model, KeyEmbedDimensions)
	}
	if settings.Store.Backend.IsRemote() && settings.Store.URL == "" {
		return fmt.Errorf("%w: %s backend requires %s", domain.ErrConfiguration, settings.Store.Backend, KeyStoreURL)
	}
	if settings.Cache.Enabled && settings.Cache.RedisURL == "" {
		return fmt.Errorf("%w: cache enabled without %s", domain.ErrConfiguration, KeyCacheRedisURL)
	}
	return nil
}

// CheckProviders pings the configured embedding and LLM providers.
// It is a no-op without an AI validator.
func (s *SettingsService) CheckProviders() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := s.aiValidator.ValidateEmbedding(&settings.Embedding); err != nil {
		return fmt.Errorf("embedding %s: %w", settings.Embedding.Provider, err)
	}
	if settings.LLM.IsConfigured() {
		if err := s.aiValidator.ValidateLLM(&settings.LLM); err != nil {
			return fmt.Errorf("llm %s: %w", settings.LLM.Provider, err)
		}
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero distinguishes an explicit 0 from an absent key.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
