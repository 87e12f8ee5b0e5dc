package driving

import (
	"context"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

// AssistantService is the entry point used by transports.
// It wraps chunking, storage and retrieval behind two verbs: ingest and ask.
type AssistantService interface {
	// Ingest chunks the documents and stores them under namespace.
	// Returns the number of chunks stored.
	Ingest(ctx context.Context, docs []domain.Document, namespace string) (int, error)

	// IngestSource loads documents from a local path or repository URL and ingests them.
	IngestSource(ctx context.Context, root, namespace string) (int, error)

	// Ask retrieves context for the question and asks the language model.
	// An answer with no sources is a valid result, not an error.
	Ask(ctx context.Context, question, namespace string) (*domain.Answer, error)

	// Retrieve returns the chunks that Ask would use as context.
	Retrieve(ctx context.Context, question, namespace string) ([]domain.RetrievedChunk, error)

	// Status reports the index contents for a namespace.
	Status(ctx context.Context, namespace string) (domain.IndexStats, error)
}
