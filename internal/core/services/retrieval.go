package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/core/ports/driving"
	"github.com/custodia-labs/repochat/internal/logger"
)

// Ensure RetrievalCoordinator implements the interface.
var _ driving.RetrievalService = (*RetrievalCoordinator)(nil)

const (
	// DefaultConcurrency bounds parallel embedding batches per process.
	DefaultConcurrency = 8

	// embedBatchSize is the number of chunk texts sent per EmbedBatch call.
	embedBatchSize = 16

	// workerExpiry is how long an idle pool worker is kept.
	workerExpiry = 30 * time.Second
)

// RetrievalConfig configures a RetrievalCoordinator.
type RetrievalConfig struct {
	// Index is the shared index the coordinator writes to and reads from.
	Index domain.IndexSpec

	// Concurrency bounds parallel embedding calls. Zero means DefaultConcurrency.
	Concurrency int

	// IDScheme selects random or content-addressed chunk identifiers.
	IDScheme domain.IDScheme
}

// RetrievalCoordinator embeds chunks into the vector index and retrieves them.
// It is safe for concurrent use; all mutable state lives in the call.
type RetrievalCoordinator struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	spec     domain.IndexSpec
	newID    idFunc
	pool     *ants.Pool
}

// NewRetrievalCoordinator ensures the index exists and checks that the embedding
// model produces vectors of the index dimension. A mismatch fails with
// domain.ErrConfiguration before anything is written.
func NewRetrievalCoordinator(
	ctx context.Context,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	cfg RetrievalConfig,
) (*RetrievalCoordinator, error) {
	if embedder == nil || index == nil {
		return nil, fmt.Errorf("%w: embedding service and vector index are required", domain.ErrConfiguration)
	}
	if err := cfg.Index.Validate(); err != nil {
		return nil, err
	}
	if dims := embedder.Dimensions(); dims != cfg.Index.Dimension {
		return nil, fmt.Errorf("%w: embedding model %s produces %d dimensions, index %q expects %d",
			domain.ErrConfiguration, embedder.ModelName(), dims, cfg.Index.Name, cfg.Index.Dimension)
	}
	if err := index.EnsureIndex(ctx, cfg.Index); err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	pool, err := ants.NewPool(concurrency,
		ants.WithExpiryDuration(workerExpiry),
		ants.WithPanicHandler(func(p any) {
			logger.Error("embedding worker panic: %v", p)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}

	return &RetrievalCoordinator{
		embedder: embedder,
		index:    index,
		spec:     cfg.Index,
		newID:    idFuncFor(cfg.IDScheme),
		pool:     pool,
	}, nil
}

// EmbedAndStore embeds every chunk and upserts all entries in one call.
// Embedding runs in parallel; any failure aborts before the upsert.
func (c *RetrievalCoordinator) EmbedAndStore(ctx context.Context, chunks []domain.Chunk, namespace string) error {
	if err := domain.ValidateNamespace(namespace); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if chunks[i].Content == "" {
			return fmt.Errorf("%w: chunk %d from %s has no text", domain.ErrInvalidInput, i, chunks[i].Origin)
		}
	}

	logger.Section("Embed and Store")
	logger.Debugw("embedding chunks", "namespace", namespace, "count", len(chunks))

	vectors, err := c.embedAll(ctx, chunks)
	if err != nil {
		return err
	}

	entries := make([]domain.VectorEntry, len(chunks))
	for i := range chunks {
		entries[i] = domain.VectorEntry{
			ID:     c.newID(namespace, chunks[i]),
			Vector: vectors[i],
			Payload: domain.Payload{
				Text:     chunks[i].Content,
				Origin:   chunks[i].Origin,
				Position: chunks[i].Position,
				Language: chunks[i].MetadataString("language"),
			},
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.index.Upsert(ctx, namespace, entries); err != nil {
		return storeError("upsert", err)
	}

	logger.Infow("stored chunks", "namespace", namespace, "count", len(entries))
	return nil
}

// embedAll embeds chunk texts in batches on the worker pool.
// The returned slice is index-aligned with chunks.
func (c *RetrievalCoordinator) embedAll(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(chunks))

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		submitErr := c.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			texts := make([]string, 0, end-start)
			for i := start; i < end; i++ {
				texts = append(texts, chunks[i].Content)
			}
			batch, err := c.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				fail(embeddingError(err))
				return
			}
			if len(batch) != len(texts) {
				fail(fmt.Errorf("%w: requested %d embeddings, got %d",
					domain.ErrEmbeddingUnavailable, len(texts), len(batch)))
				return
			}
			copy(vectors[start:end], batch)
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submit embedding task: %w", submitErr))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	// Parent cancellation leaves the batch incomplete.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: no embedding for chunk %d", domain.ErrEmbeddingUnavailable, i)
		}
		if err := c.checkDimension(v); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

// RetrieveTopChunks returns the texts of the k nearest chunks, most relevant first.
func (c *RetrievalCoordinator) RetrieveTopChunks(ctx context.Context, query, namespace string, k int) ([]string, error) {
	retrieved, err := c.Retrieve(ctx, query, namespace, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(retrieved))
	for i, r := range retrieved {
		texts[i] = r.Text
	}
	return texts, nil
}

// Retrieve embeds the query and returns up to k chunks of the namespace in
// descending similarity. The index order is preserved.
func (c *RetrievalCoordinator) Retrieve(
	ctx context.Context, query, namespace string, k int,
) ([]domain.RetrievedChunk, error) {
	if err := domain.ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	logger.Section("Retrieve")
	logger.Debugw("query", "namespace", namespace, "k", k)

	vector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, embeddingError(err)
	}
	if err := c.checkDimension(vector); err != nil {
		return nil, err
	}

	matches, err := c.index.Query(ctx, namespace, vector, k, true)
	if err != nil {
		return nil, storeError("query", err)
	}

	results := make([]domain.RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		if m.Payload == nil {
			return nil, fmt.Errorf("%w: entry %s returned without payload", domain.ErrStoreUnavailable, m.ID)
		}
		results = append(results, domain.RetrievedChunk{
			ID:     m.ID,
			Text:   m.Payload.Text,
			Origin: m.Payload.Origin,
			Score:  m.Score,
		})
		logger.Debug("  %.4f %s", m.Score, m.Payload.Origin)
	}
	return results, nil
}

// Stats reports the number of entries stored under a namespace.
func (c *RetrievalCoordinator) Stats(ctx context.Context, namespace string) (domain.IndexStats, error) {
	if err := domain.ValidateNamespace(namespace); err != nil {
		return domain.IndexStats{}, err
	}
	stats, err := c.index.Stats(ctx, namespace)
	if err != nil {
		return domain.IndexStats{}, storeError("stats", err)
	}
	return stats, nil
}

// Close releases the worker pool. It does not close the embedder or the index.
func (c *RetrievalCoordinator) Close() {
	c.pool.Release()
}

func (c *RetrievalCoordinator) checkDimension(v []float32) error {
	if len(v) != c.spec.Dimension {
		return fmt.Errorf("%w: embedding has %d dimensions, index %q expects %d",
			domain.ErrConfiguration, len(v), c.spec.Name, c.spec.Dimension)
	}
	return nil
}

// embeddingError classifies an embedder failure as provider unavailable,
// keeping cancellation and already-classified errors as they are.
func embeddingError(err error) error {
	if errors.Is(err, domain.ErrProviderUnavailable) ||
		errors.Is(err, domain.ErrConfiguration) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
}

// storeError classifies a vector index failure as store unavailable.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) ||
		errors.Is(err, domain.ErrConfiguration) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
