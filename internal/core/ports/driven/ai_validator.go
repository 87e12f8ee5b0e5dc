package driven

import "github.com/custodia-labs/repochat/internal/core/domain"

// AIConfigValidator checks that configured AI providers are reachable.
type AIConfigValidator interface {
	// ValidateEmbedding creates the embedding service and pings it.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM creates the LLM service and pings it.
	ValidateLLM(config *domain.LLMSettings) error
}
