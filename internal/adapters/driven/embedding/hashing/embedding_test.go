package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, "hashing-v1", svc.ModelName())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}

func TestEmbed_DimensionAndNorm(t *testing.T) {
	svc := NewEmbeddingService(Config{Dimensions: 64})

	vec, err := svc.Embed(context.Background(), "func main() { fmt.Println(\"hi\") }")

	require.NoError(t, err)
	require.Len(t, vec, 64)
	assert.InDelta(t, 1.0, math.Sqrt(cosine(vec, vec)), 1e-5)
}

func TestEmbed_Deterministic(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	a, err := svc.Embed(context.Background(), "class Foo: pass")
	require.NoError(t, err)
	b, err := svc.Embed(context.Background(), "class Foo: pass")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestEmbed_CaseInsensitive(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	a, _ := svc.Embed(context.Background(), "Hello World")
	b, _ := svc.Embed(context.Background(), "hello world")

	assert.Equal(t, a, b)
}

func TestEmbed_SharedFragmentsRankHigher(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	ctx := context.Background()

	query, err := svc.Embed(ctx, "addition function")
	require.NoError(t, err)
	add, err := svc.Embed(ctx, "def add(a,b): return a+b")
	require.NoError(t, err)
	foo, err := svc.Embed(ctx, "class Foo: pass")
	require.NoError(t, err)

	assert.Greater(t, cosine(query, add), cosine(query, foo))
}

func TestEmbed_PunctuationOnly(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	vec, err := svc.Embed(context.Background(), "{ }")

	require.NoError(t, err)
	assert.InDelta(t, 1.0, cosine(vec, vec), 1e-5)
}

func TestEmbed_EmptyText(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	_, err := svc.Embed(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEmbed_WhitespaceOnly(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	vec, err := svc.Embed(context.Background(), "\n\t\t  ")

	require.NoError(t, err)
	assert.InDelta(t, 1.0, cosine(vec, vec), 1e-5)
}

func TestEmbed_CancelledContext(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Embed(ctx, "text")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbedBatch(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"alpha", "beta"})

	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.NotEqual(t, vecs[0], vecs[1])

	_, err = svc.EmbedBatch(context.Background(), []string{"ok", ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed text 1")
}
