// Package cache provides a Redis-backed embedding cache that decorates any
// driven.EmbeddingService.
//
// Vectors are keyed by model name and the SHA-256 of the text, so switching
// models never serves stale vectors. Redis failures are logged and fall
// through to the wrapped service; the cache never fails a call on its own.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultTTL       = 24 * time.Hour
	DefaultKeyPrefix = "repochat:emb:"
)

// Config configures the cache decorator.
type Config struct {
	// TTL is how long a cached vector lives (default: 24h).
	TTL time.Duration

	// KeyPrefix namespaces cache keys (default: repochat:emb:).
	KeyPrefix string
}

// Store is the subset of the Redis client used by the cache.
// *goredis.Client satisfies it.
type Store interface {
	MGet(ctx context.Context, keys ...string) *goredis.SliceCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// EmbeddingService serves embeddings from Redis and computes misses with the
// wrapped service.
type EmbeddingService struct {
	inner  driven.EmbeddingService
	store  Store
	closer func() error
	ttl    time.Duration
	prefix string
}

// New wraps inner with a cache backed by store.
func New(inner driven.EmbeddingService, store Store, cfg Config) *EmbeddingService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	return &EmbeddingService{
		inner:  inner,
		store:  store,
		ttl:    cfg.TTL,
		prefix: cfg.KeyPrefix,
	}
}

// NewFromURL connects to the Redis server at redisURL and wraps inner.
// The connection is closed by Close.
func NewFromURL(inner driven.EmbeddingService, redisURL string, cfg Config) (*EmbeddingService, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := goredis.NewClient(opts)
	svc := New(inner, client, cfg)
	svc.closer = client.Close
	return svc, nil
}

func (s *EmbeddingService) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return s.prefix + s.inner.ModelName() + ":" + hex.EncodeToString(sum[:])
}

// Embed returns the cached vector for text or computes and caches it.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch looks up all texts with one MGET and embeds only the misses.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = s.key(text)
	}

	vectors := make([][]float32, len(texts))
	s.lookup(ctx, keys, vectors)

	var missIdx []int
	var missTexts []string
	for i, v := range vectors {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missTexts) == 0 {
		logger.Debugw("embedding cache hit", "count", len(texts))
		return vectors, nil
	}

	logger.Debugw("embedding cache miss", "total", len(texts), "uncached", len(missTexts))
	computed, err := s.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		if j >= len(computed) {
			break
		}
		vectors[idx] = computed[j]
		s.cacheVector(ctx, keys[idx], computed[j])
	}
	return vectors, nil
}

// lookup fills vectors with cache hits. Corrupt or wrong-sized entries are
// deleted and treated as misses.
func (s *EmbeddingService) lookup(ctx context.Context, keys []string, vectors [][]float32) {
	values, err := s.store.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Warnw("redis get failed, falling back to provider", "error", err)
		return
	}
	for i, raw := range values {
		if i >= len(vectors) {
			break
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var v []float32
		if err := json.Unmarshal([]byte(str), &v); err != nil || len(v) != s.inner.Dimensions() {
			logger.Warnw("discarding corrupt cached embedding", "key", keys[i])
			_ = s.store.Del(ctx, keys[i]).Err()
			continue
		}
		vectors[i] = v
	}
}

func (s *EmbeddingService) cacheVector(ctx context.Context, key string, v []float32) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warnw("failed to encode embedding for caching", "error", err)
		return
	}
	if err := s.store.Set(ctx, key, data, s.ttl).Err(); err != nil {
		logger.Warnw("failed to cache embedding", "key", key, "error", err)
	}
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service. Redis reachability is not required.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the wrapped service and any connection opened by NewFromURL.
func (s *EmbeddingService) Close() error {
	err := s.inner.Close()
	if s.closer != nil {
		if cerr := s.closer(); err == nil {
			err = cerr
		}
	}
	return err
}
