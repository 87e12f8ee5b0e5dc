package driven

import (
	"context"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

// VectorIndex is a namespaced similarity index keyed by opaque chunk IDs.
//
// Entries carry their chunk text in the payload, so a successful Upsert
// never leaves a vector without retrievable text.
type VectorIndex interface {
	// EnsureIndex creates the named index if absent. It is idempotent.
	// If the index exists with a different dimension or metric it returns
	// domain.ErrConfiguration instead of reusing it.
	EnsureIndex(ctx context.Context, spec domain.IndexSpec) error

	// Upsert writes or overwrites entries in a namespace in one batch.
	// Entries with the same ID in the same namespace are last-write-wins.
	// The namespace is created implicitly.
	Upsert(ctx context.Context, namespace string, entries []domain.VectorEntry) error

	// Query returns up to topK entries of the namespace ordered by descending
	// similarity. An empty or unknown namespace yields an empty slice, not an error.
	Query(
		ctx context.Context,
		namespace string,
		vector []float32,
		topK int,
		includePayload bool,
	) ([]domain.VectorMatch, error)

	// Stats reports the number of entries in a namespace.
	Stats(ctx context.Context, namespace string) (domain.IndexStats, error)

	// Close releases resources.
	Close() error
}
