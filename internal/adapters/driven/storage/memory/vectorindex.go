package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/repochat/internal/adapters/driven/storage/rank"
	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory driven.VectorIndex with brute-force search.
// Contents are lost when the process exits.
type VectorIndex struct {
	mu         sync.RWMutex
	spec       *domain.IndexSpec
	namespaces map[string]map[string]domain.VectorEntry
}

// NewVectorIndex creates an empty in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		namespaces: make(map[string]map[string]domain.VectorEntry),
	}
}

// EnsureIndex records the index definition on first call and rejects a different one later.
func (v *VectorIndex) EnsureIndex(_ context.Context, spec domain.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.spec == nil {
		v.spec = &spec
		return nil
	}
	return spec.Matches(*v.spec)
}

// Upsert writes entries; an existing ID in the namespace is replaced.
func (v *VectorIndex) Upsert(_ context.Context, namespace string, entries []domain.VectorEntry) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.spec == nil {
		return fmt.Errorf("%w: index not created", domain.ErrStoreUnavailable)
	}
	// Validate the whole batch first so a bad entry writes nothing.
	for _, e := range entries {
		if len(e.Vector) != v.spec.Dimension {
			return fmt.Errorf("%w: entry %s has dimension %d, index expects %d",
				domain.ErrConfiguration, e.ID, len(e.Vector), v.spec.Dimension)
		}
	}

	ns, ok := v.namespaces[namespace]
	if !ok {
		ns = make(map[string]domain.VectorEntry)
		v.namespaces[namespace] = ns
	}
	for _, e := range entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		e.Vector = vec
		ns[e.ID] = e
	}
	return nil
}

// Query scores every entry of the namespace against vector.
func (v *VectorIndex) Query(
	_ context.Context,
	namespace string,
	vector []float32,
	topK int,
	includePayload bool,
) ([]domain.VectorMatch, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.spec == nil {
		return []domain.VectorMatch{}, nil
	}
	if len(vector) != v.spec.Dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			domain.ErrConfiguration, len(vector), v.spec.Dimension)
	}

	ns := v.namespaces[namespace]
	candidates := make([]rank.Candidate, 0, len(ns))
	for id, e := range ns {
		candidates = append(candidates, rank.Candidate{
			ID:      id,
			Score:   rank.Score(v.spec.Metric, vector, e.Vector),
			Payload: e.Payload,
		})
	}
	return rank.TopK(candidates, topK, includePayload), nil
}

// Stats returns the number of entries in the namespace.
func (v *VectorIndex) Stats(_ context.Context, namespace string) (domain.IndexStats, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	stats := domain.IndexStats{
		Namespace: namespace,
		Count:     int64(len(v.namespaces[namespace])),
	}
	if v.spec != nil {
		stats.Index = v.spec.Name
		stats.Dimension = v.spec.Dimension
	}
	return stats, nil
}

// Close releases resources.
func (v *VectorIndex) Close() error {
	return nil
}
