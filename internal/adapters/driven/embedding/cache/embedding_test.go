package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/repochat/internal/adapters/driven/embedding/hashing"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) MGet(_ context.Context, keys ...string) *goredis.SliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return goredis.NewSliceResult(nil, f.getErr)
	}
	out := make([]any, len(keys))
	for i, k := range keys {
		if v, ok := f.data[k]; ok {
			out[i] = v
		}
	}
	return goredis.NewSliceResult(out, nil)
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) *goredis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return goredis.NewStatusResult("", f.setErr)
	}
	f.data[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

// countingEmbedder counts texts sent to the wrapped embedder.
type countingEmbedder struct {
	*hashing.EmbeddingService
	texts int
	err   error
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.texts += len(texts)
	if c.err != nil {
		return nil, c.err
	}
	return c.EmbeddingService.EmbedBatch(ctx, texts)
}

func newCounting() *countingEmbedder {
	return &countingEmbedder{EmbeddingService: hashing.NewEmbeddingService(hashing.Config{Dimensions: 16})}
}

func TestEmbedBatch_CachesMisses(t *testing.T) {
	inner := newCounting()
	store := newFakeStore()
	svc := New(inner, store, Config{TTL: time.Hour})
	ctx := context.Background()

	first, err := svc.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.texts)
	assert.Len(t, store.data, 2)
	for _, ttl := range store.ttls {
		assert.Equal(t, time.Hour, ttl)
	}

	second, err := svc.EmbedBatch(ctx, []string{"beta", "gamma", "alpha"})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.texts, "only gamma should be embedded")
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])
}

func TestEmbed_KeyIncludesModel(t *testing.T) {
	svc := New(newCounting(), newFakeStore(), Config{})

	key := svc.key("text")

	assert.Contains(t, key, DefaultKeyPrefix+"hashing-v1:")
	assert.Len(t, key, len(DefaultKeyPrefix+"hashing-v1:")+64)
}

func TestEmbed_RedisDownFallsThrough(t *testing.T) {
	inner := newCounting()
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	svc := New(inner, store, Config{})

	vec, err := svc.Embed(context.Background(), "alpha")

	require.NoError(t, err)
	assert.Len(t, vec, 16)
	assert.Equal(t, 1, inner.texts)
}

func TestEmbed_CorruptEntryIsDiscarded(t *testing.T) {
	inner := newCounting()
	store := newFakeStore()
	svc := New(inner, store, Config{})
	store.data[svc.key("alpha")] = "[1,2,3]"

	vec, err := svc.Embed(context.Background(), "alpha")

	require.NoError(t, err)
	assert.Len(t, vec, 16)
	assert.Equal(t, 1, inner.texts)
	assert.NotEqual(t, "[1,2,3]", store.data[svc.key("alpha")], "fresh vector was written back")
}

func TestEmbed_InnerErrorPropagates(t *testing.T) {
	inner := newCounting()
	inner.err = errors.New("provider down")
	svc := New(inner, newFakeStore(), Config{})

	_, err := svc.Embed(context.Background(), "alpha")

	assert.EqualError(t, err, "provider down")
}

func TestDelegates(t *testing.T) {
	svc := New(newCounting(), newFakeStore(), Config{})

	assert.Equal(t, 16, svc.Dimensions())
	assert.Equal(t, "hashing-v1", svc.ModelName())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
