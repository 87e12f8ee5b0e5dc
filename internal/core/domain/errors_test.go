package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrSourceUnavailable", ErrSourceUnavailable},
		{"ErrConfiguration", ErrConfiguration},
		{"ErrProviderUnavailable", ErrProviderUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrStoreUnavailable", ErrStoreUnavailable},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrProviderUnavailable_Family(t *testing.T) {
	assert.ErrorIs(t, ErrEmbeddingUnavailable, ErrProviderUnavailable)
	assert.ErrorIs(t, ErrLLMUnavailable, ErrProviderUnavailable)
	assert.NotErrorIs(t, ErrEmbeddingUnavailable, ErrLLMUnavailable)
	assert.Equal(t, "embedding provider unavailable", ErrEmbeddingUnavailable.Error())
	assert.Equal(t, "LLM provider unavailable", ErrLLMUnavailable.Error())
}

func TestErrors_AreDistinct(t *testing.T) {
	taxonomy := []error{
		ErrSourceUnavailable,
		ErrConfiguration,
		ErrProviderUnavailable,
		ErrStoreUnavailable,
	}

	for i, a := range taxonomy {
		for j, b := range taxonomy {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestErrors_WrappedClassification(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	wrapped := fmt.Errorf("%w: %w", ErrStoreUnavailable, cause)

	assert.ErrorIs(t, wrapped, ErrStoreUnavailable)
	assert.ErrorIs(t, wrapped, cause)
	assert.NotErrorIs(t, wrapped, ErrProviderUnavailable)
	assert.Contains(t, wrapped.Error(), "store unavailable")
}
