package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderHashing is the built-in offline feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGroq is Groq's OpenAI-compatible API.
	AIProviderGroq AIProvider = "groq"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderHashing, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGroq:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGroq
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHashing:
		return "Hashing (offline, built-in)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGroq:
		return "Groq (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector length. Zero means the model default.
	Dimensions int
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

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key.
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHashing {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StoreBackend selects the vector index implementation.
type StoreBackend string

// Available vector index backends.
const (
	StoreBackendMemory StoreBackend = "memory"
	StoreBackendSQLite StoreBackend = "sqlite"
	StoreBackendQdrant StoreBackend = "qdrant"
	StoreBackendMilvus StoreBackend = "milvus"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreBackendMemory, StoreBackendSQLite, StoreBackendQdrant, StoreBackendMilvus:
		return true
	default:
		return false
	}
}

// IsRemote returns true if the backend is a network service.
func (b StoreBackend) IsRemote() bool {
	return b == StoreBackendQdrant || b == StoreBackendMilvus
}

// String returns the string representation.
func (b StoreBackend) String() string {
	return string(b)
}

// StoreSettings holds vector index configuration.
type StoreSettings struct {
	// Backend is the index implementation.
	Backend StoreBackend

	// Index is the fixed index (collection) name shared by all sessions.
	Index string

	// Metric is the similarity metric of the index.
	Metric Metric

	// DataDir is the directory for the sqlite backend.
	DataDir string

	// URL is the endpoint of a remote backend (qdrant URL, milvus address).
	URL string

	// APIKey authenticates against qdrant.
	APIKey string

	// Username, Password and Database configure milvus.
	Username string
	Password string
	Database string
}

// IDScheme selects how chunk identifiers are generated.
type IDScheme string

// Available ID schemes.
const (
	// IDSchemeRandom appends a random UUID; re-ingest adds new entries.
	IDSchemeRandom IDScheme = "random"

	// IDSchemeContent appends a hash of origin and text; re-ingest overwrites.
	IDSchemeContent IDScheme = "content"
)

// IsValid returns true if the scheme is recognised.
func (s IDScheme) IsValid() bool {
	return s == IDSchemeRandom || s == IDSchemeContent
}

// ChunkingSettings holds chunker parameters, in characters.
type ChunkingSettings struct {
	Size    int
	Overlap int
}

// Validate enforces 0 <= overlap < size.
func (c ChunkingSettings) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, c.Size)
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", ErrConfiguration, c.Size, c.Overlap)
	}
	return nil
}

// RetrievalSettings holds coordinator parameters.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per question.
	TopK int

	// Concurrency bounds parallel embedding calls during ingest.
	Concurrency int

	// IDScheme selects random or content-addressed chunk IDs.
	IDScheme IDScheme
}

// CacheSettings configures the Redis embedding cache.
type CacheSettings struct {
	Enabled  bool
	RedisURL string
	TTL      time.Duration
}

// GitHubSettings configures the GitHub API document source.
type GitHubSettings struct {
	// Token is a personal access token. Optional for public repositories.
	Token string

	// UseAPI fetches github.com repositories through the API instead of git clone.
	UseAPI bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Store     StoreSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Cache     CacheSettings
	GitHub    GitHubSettings

	// Namespace is the session namespace used when a caller does not supply one.
	Namespace string

	// ServerAddr is the listen address of the HTTP API.
	ServerAddr string
}

// Validate checks cross-field constraints that would otherwise fail at first use.
func (s *AppSettings) Validate() error {
	if err := s.Chunking.Validate(); err != nil {
		return err
	}
	if !s.Store.Backend.IsValid() {
		return fmt.Errorf("%w: unsupported store backend %q", ErrConfiguration, s.Store.Backend)
	}
	if !s.Retrieval.IDScheme.IsValid() {
		return fmt.Errorf("%w: unsupported id scheme %q", ErrConfiguration, s.Retrieval.IDScheme)
	}
	if s.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval top_k must be positive", ErrConfiguration)
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unsupported embedding provider %q", ErrConfiguration, s.Embedding.Provider)
	}
	return ValidateNamespace(s.Namespace)
}

// DefaultAppSettings returns settings with sensible defaults.
// The offline hashing embedder and sqlite store work without any setup;
// the LLM is left unconfigured until a provider and key are supplied.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHashing,
			Model:      DefaultEmbeddingModels()[AIProviderHashing],
			Dimensions: 384,
		},
		LLM: LLMSettings{},
		Store: StoreSettings{
			Backend: StoreBackendSQLite,
			Index:   "chat-with-code",
			Metric:  MetricCosine,
		},
		Chunking: ChunkingSettings{
			Size:    500,
			Overlap: 50,
		},
		Retrieval: RetrievalSettings{
			TopK:        3,
			Concurrency: 8,
			IDScheme:    IDSchemeRandom,
		},
		Cache: CacheSettings{
			TTL: 24 * time.Hour,
		},
		Namespace:  DefaultNamespace,
		ServerAddr: ":8000",
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHashing,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGroq,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHashing: "hashing-v1",
		AIProviderOllama:  "all-minilm",
		AIProviderOpenAI:  "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGroq:      "meta-llama/llama-4-scout-17b-16e-instruct",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"hashing-v1": 384,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
