package domain

import (
	"errors"
	"fmt"
)

// Domain errors classify failures for the transport layer.
// Adapters wrap their causes with one of these so callers can use errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceUnavailable indicates the document source could not be read or cloned.
	// Ingest is aborted.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrConfiguration indicates invalid chunking parameters or an embedding
	// dimension that does not match the existing index. Not retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrProviderUnavailable indicates an embedding or language model backend call failed.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrEmbeddingUnavailable indicates the embedding backend failed or is not configured.
	ErrEmbeddingUnavailable = fmt.Errorf("embedding %w", ErrProviderUnavailable)

	// ErrLLMUnavailable indicates the language model backend failed or is not configured.
	ErrLLMUnavailable = fmt.Errorf("LLM %w", ErrProviderUnavailable)

	// ErrStoreUnavailable indicates the vector index is unreachable or rejected a request.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
