// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	embedcache "github.com/custodia-labs/repochat/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/repochat/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/repochat/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/repochat/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/repochat/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/repochat/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/repochat/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService // Nil when no LLM is configured or reachable.
	Warnings         []string          // Non-fatal issues that caused fallback.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		_ = r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		_ = r.LLMService.Close()
	}
}

// Initialise builds the embedding service (wrapped in the Redis cache when
// enabled) and the optional LLM service. The embedding service is required;
// an LLM that cannot be created or reached is dropped with a warning so that
// retrieval keeps working.
func Initialise(ctx context.Context, settings *domain.AppSettings, prompts driven.PromptStore) (*InitResult, error) {
	embedder, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrConfiguration, settings.Embedding.Provider)
	}

	embedder, err = WithCache(embedder, settings.Cache)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	result := &InitResult{EmbeddingService: embedder}

	if !settings.LLM.IsConfigured() {
		if settings.LLM.Provider != "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("LLM provider %s is missing an API key; answers will contain context only", settings.LLM.Provider))
		}
		return result, nil
	}

	llmSvc, err := CreateLLMService(&settings.LLM)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		return result, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := llmSvc.Ping(pingCtx); err != nil {
		_ = llmSvc.Close()
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("LLM %s unreachable (%v); answers will contain context only", settings.LLM.Provider, err))
		return result, nil
	}

	if aware, ok := llmSvc.(driven.PromptStoreAware); ok && prompts != nil {
		aware.SetPromptStore(prompts)
	}
	result.LLMService = llmSvc
	return result, nil
}

// WithCache wraps svc in the Redis embedding cache when caching is enabled.
func WithCache(svc driven.EmbeddingService, cache domain.CacheSettings) (driven.EmbeddingService, error) {
	if !cache.Enabled {
		return svc, nil
	}
	if cache.RedisURL == "" {
		return svc, fmt.Errorf("%w: embedding cache enabled without a Redis URL", domain.ErrConfiguration)
	}
	cached, err := embedcache.NewFromURL(svc, cache.RedisURL, embedcache.Config{TTL: cache.TTL})
	if err != nil {
		return svc, fmt.Errorf("%w: redis url: %w", domain.ErrConfiguration, err)
	}
	logger.Debugw("embedding cache enabled", "ttl", cache.TTL)
	return cached, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'repochat config set embedding.provider' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil || svc == nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'repochat config set llm.provider' to fix",
			domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the embedding service named by settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderHashing:
		return hashing.NewEmbeddingService(hashing.Config{Dimensions: settings.Dimensions}), nil

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensionsFor(settings),
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensionsFor(settings),
		})

	case domain.AIProviderAnthropic, domain.AIProviderGroq:
		return nil, fmt.Errorf("%w: %s does not provide embeddings, use hashing, ollama or openai",
			domain.ErrConfiguration, settings.Provider)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrConfiguration, settings.Provider)
	}
}

// dimensionsFor prefers an explicit dimension over the known model default.
func dimensionsFor(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return domain.EmbeddingDimensions()[settings.Model]
}

// CreateLLMService creates the LLM service named by settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGroq:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = openaillm.GroqBaseURL
		}
		model := settings.Model
		if model == "" {
			model = openaillm.DefaultGroqModel
		}
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: baseURL,
			Model:   model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrConfiguration, settings.Provider)
	}
}
