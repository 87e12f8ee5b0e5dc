// Package storage selects the vector index backend named in the settings.
package storage

import (
	"context"
	"fmt"

	"github.com/custodia-labs/repochat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/repochat/internal/adapters/driven/storage/milvus"
	"github.com/custodia-labs/repochat/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/repochat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
	"github.com/custodia-labs/repochat/internal/logger"
)

// NewVectorIndex opens the backend configured in settings. The caller owns
// the returned index and must Close it.
func NewVectorIndex(ctx context.Context, settings domain.StoreSettings) (driven.VectorIndex, error) {
	logger.Debugw("opening vector index", "backend", settings.Backend, "index", settings.Index)

	switch settings.Backend {
	case domain.StoreBackendMemory:
		return memory.NewVectorIndex(), nil

	case domain.StoreBackendSQLite, "":
		return sqlite.NewVectorIndex(settings.DataDir)

	case domain.StoreBackendQdrant:
		return qdrant.NewVectorIndex(qdrant.Config{
			URL:    settings.URL,
			APIKey: settings.APIKey,
		}), nil

	case domain.StoreBackendMilvus:
		return milvus.NewVectorIndex(ctx, milvus.Config{
			Address:  settings.URL,
			Username: settings.Username,
			Password: settings.Password,
			Database: settings.Database,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported store backend %q", domain.ErrConfiguration, settings.Backend)
	}
}

// IndexSpec builds the shared index spec for an embedding dimension.
func IndexSpec(settings domain.StoreSettings, dimension int) domain.IndexSpec {
	metric := settings.Metric
	if metric == "" {
		metric = domain.MetricCosine
	}
	return domain.IndexSpec{Name: settings.Index, Dimension: dimension, Metric: metric}
}
