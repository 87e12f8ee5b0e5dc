package driving

import (
	"context"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

// RetrievalService stores chunk embeddings and retrieves the nearest chunks.
// Every call is scoped to exactly one namespace.
type RetrievalService interface {
	// EmbedAndStore embeds every chunk and writes them to the index in a
	// single batch. Any embedding or store failure aborts the call before
	// anything is written.
	EmbedAndStore(ctx context.Context, chunks []domain.Chunk, namespace string) error

	// RetrieveTopChunks returns the texts of the k chunks nearest to query,
	// most relevant first. Fewer than k are returned when the namespace holds
	// fewer entries; an empty namespace yields an empty slice.
	RetrieveTopChunks(ctx context.Context, query, namespace string, k int) ([]string, error)

	// Retrieve is RetrieveTopChunks with origin and score for each chunk.
	Retrieve(ctx context.Context, query, namespace string, k int) ([]domain.RetrievedChunk, error)

	// Stats reports how many chunks a namespace holds.
	Stats(ctx context.Context, namespace string) (domain.IndexStats, error)
}
