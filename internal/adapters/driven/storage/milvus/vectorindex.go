// Package milvus provides a driven.VectorIndex backed by a Milvus collection.
//
// The chunk ID is the VarChar primary key and the namespace is a VarChar
// field used as a filter expression on every search.
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/custodia-labs/repochat/internal/adapters/driven/storage/rank"
	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// Default configuration values.
const (
	DefaultAddress = "localhost:19530"
	DefaultTimeout = 30 * time.Second
)

// Field names of the collection schema.
const (
	fieldID        = "id"
	fieldEmbedding = "embedding"
	fieldNamespace = "namespace"
	fieldText      = "text"
	fieldOrigin    = "origin"
	fieldPosition  = "position"
	fieldLanguage  = "language"
	fieldCount     = "count(*)"

	// The primary key combines namespace and chunk ID.
	maxIDLength = domain.MaxNamespaceLength + 1 + 256
)

var outputFields = []string{fieldID, fieldNamespace, fieldText, fieldOrigin, fieldPosition, fieldLanguage}

// Config holds connection settings for Milvus.
type Config struct {
	// Address is host:port of the Milvus proxy (default: localhost:19530).
	Address string

	Username string
	Password string
	Database string

	// Timeout bounds the initial connection (default: 30s).
	Timeout time.Duration
}

// VectorIndex stores entries as rows of one Milvus collection.
type VectorIndex struct {
	client *milvusclient.Client

	mu   sync.RWMutex
	spec *domain.IndexSpec
}

// NewVectorIndex connects to Milvus.
func NewVectorIndex(ctx context.Context, cfg Config) (*VectorIndex, error) {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	c, err := milvusclient.New(connectCtx, &milvusclient.ClientConfig{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect to milvus at %s: %w", domain.ErrStoreUnavailable, cfg.Address, err)
	}
	return &VectorIndex{client: c}, nil
}

// EnsureIndex creates, indexes and loads the collection if absent, or checks
// the dimension and metric of an existing one.
func (v *VectorIndex) EnsureIndex(ctx context.Context, spec domain.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	exists, err := v.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(spec.Name))
	if err != nil {
		return wrap(ctx, "check collection", err)
	}

	if exists {
		coll, err := v.client.DescribeCollection(ctx, milvusclient.NewDescribeCollectionOption(spec.Name))
		if err != nil {
			return wrap(ctx, "describe collection", err)
		}
		existing, err := specFromSchema(spec.Name, coll.Schema)
		if err != nil {
			return err
		}
		if err := spec.Matches(existing); err != nil {
			return err
		}
	} else if err := v.create(ctx, spec); err != nil {
		return err
	}

	loadTask, err := v.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(spec.Name))
	if err != nil {
		return wrap(ctx, "load collection", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return wrap(ctx, "wait for collection load", err)
	}

	v.mu.Lock()
	v.spec = &spec
	v.mu.Unlock()
	return nil
}

func (v *VectorIndex) create(ctx context.Context, spec domain.IndexSpec) error {
	if err := v.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(spec.Name, buildSchema(spec))); err != nil {
		return wrap(ctx, "create collection", err)
	}

	idx := index.NewIvfFlatIndex(metricType(spec.Metric), 128)
	task, err := v.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(spec.Name, fieldEmbedding, idx))
	if err != nil {
		return wrap(ctx, "create index", err)
	}
	if err := task.Await(ctx); err != nil {
		return wrap(ctx, "wait for index", err)
	}
	return nil
}

// buildSchema records the metric in the description so an existing
// collection can be checked without describing its index.
func buildSchema(spec domain.IndexSpec) *entity.Schema {
	return entity.NewSchema().
		WithName(spec.Name).
		WithDescription("repochat metric=" + spec.Metric.String()).
		WithAutoID(false).
		WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).
			WithIsPrimaryKey(true).WithMaxLength(maxIDLength)).
		WithField(entity.NewField().WithName(fieldEmbedding).WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(spec.Dimension))).
		WithField(entity.NewField().WithName(fieldNamespace).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(domain.MaxNamespaceLength)).
		WithField(entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(65535)).
		WithField(entity.NewField().WithName(fieldOrigin).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(2048)).
		WithField(entity.NewField().WithName(fieldPosition).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(fieldLanguage).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(64))
}

// specFromSchema reads dimension and metric back from a collection schema.
func specFromSchema(name string, schema *entity.Schema) (domain.IndexSpec, error) {
	spec := domain.IndexSpec{Name: name, Metric: domain.MetricCosine}
	if schema == nil {
		return spec, fmt.Errorf("%w: collection %q has no schema", domain.ErrStoreUnavailable, name)
	}
	if _, metric, ok := strings.Cut(schema.Description, "metric="); ok {
		spec.Metric = domain.Metric(strings.TrimSpace(metric))
	}
	for _, f := range schema.Fields {
		if f.Name != fieldEmbedding {
			continue
		}
		dim, err := strconv.Atoi(f.TypeParams["dim"])
		if err != nil {
			return spec, fmt.Errorf("%w: collection %q: bad vector dimension %q",
				domain.ErrConfiguration, name, f.TypeParams["dim"])
		}
		spec.Dimension = dim
		return spec, nil
	}
	return spec, fmt.Errorf("%w: collection %q has no %s field", domain.ErrConfiguration, name, fieldEmbedding)
}

func metricType(m domain.Metric) entity.MetricType {
	if m == domain.MetricDot {
		return entity.IP
	}
	return entity.COSINE
}

func (v *VectorIndex) currentSpec() *domain.IndexSpec {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.spec
}

// Upsert writes the batch as one column-based upsert, then flushes so the
// rows are searchable when the call returns.
func (v *VectorIndex) Upsert(ctx context.Context, namespace string, entries []domain.VectorEntry) error {
	spec := v.currentSpec()
	if spec == nil {
		return fmt.Errorf("%w: index not created", domain.ErrStoreUnavailable)
	}
	for _, e := range entries {
		if len(e.Vector) != spec.Dimension {
			return fmt.Errorf("%w: entry %s has dimension %d, index expects %d",
				domain.ErrConfiguration, e.ID, len(e.Vector), spec.Dimension)
		}
	}
	if len(entries) == 0 {
		return nil
	}

	opt := milvusclient.NewColumnBasedInsertOption(spec.Name, buildColumns(namespace, spec.Dimension, entries)...)
	if _, err := v.client.Upsert(ctx, opt); err != nil {
		return wrap(ctx, "upsert", err)
	}

	flushTask, err := v.client.Flush(ctx, milvusclient.NewFlushOption(spec.Name))
	if err != nil {
		return wrap(ctx, "flush", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return wrap(ctx, "wait for flush", err)
	}
	return nil
}

// rowID scopes a chunk ID to its namespace so namespaces never overwrite each other.
func rowID(namespace, chunkID string) string {
	return namespace + "/" + chunkID
}

func buildColumns(namespace string, dim int, entries []domain.VectorEntry) []column.Column {
	n := len(entries)
	ids := make([]string, n)
	vectors := make([][]float32, n)
	namespaces := make([]string, n)
	texts := make([]string, n)
	origins := make([]string, n)
	positions := make([]int64, n)
	languages := make([]string, n)

	for i, e := range entries {
		ids[i] = rowID(namespace, e.ID)
		vectors[i] = e.Vector
		namespaces[i] = namespace
		texts[i] = e.Payload.Text
		origins[i] = e.Payload.Origin
		positions[i] = int64(e.Payload.Position)
		languages[i] = e.Payload.Language
	}

	return []column.Column{
		column.NewColumnVarChar(fieldID, ids),
		column.NewColumnFloatVector(fieldEmbedding, dim, vectors),
		column.NewColumnVarChar(fieldNamespace, namespaces),
		column.NewColumnVarChar(fieldText, texts),
		column.NewColumnVarChar(fieldOrigin, origins),
		column.NewColumnInt64(fieldPosition, positions),
		column.NewColumnVarChar(fieldLanguage, languages),
	}
}

// namespaceExpr filters rows of one namespace. Namespaces are validated to
// a quote-free character set before they reach the store.
func namespaceExpr(namespace string) string {
	return fmt.Sprintf("%s == %q", fieldNamespace, namespace)
}

// Query searches the collection restricted to the namespace.
func (v *VectorIndex) Query(
	ctx context.Context,
	namespace string,
	vector []float32,
	topK int,
	includePayload bool,
) ([]domain.VectorMatch, error) {
	spec := v.currentSpec()
	if spec == nil || topK <= 0 {
		return []domain.VectorMatch{}, nil
	}
	if len(vector) != spec.Dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			domain.ErrConfiguration, len(vector), spec.Dimension)
	}

	results, err := v.client.Search(ctx, milvusclient.NewSearchOption(
		spec.Name,
		topK,
		[]entity.Vector{entity.FloatVector(vector)},
	).WithANNSField(fieldEmbedding).
		WithSearchParam("nprobe", "16").
		WithFilter(namespaceExpr(namespace)).
		WithOutputFields(outputFields...))
	if err != nil {
		return nil, wrap(ctx, "search", err)
	}
	if len(results) == 0 {
		return []domain.VectorMatch{}, nil
	}
	return rank.TopK(candidatesFrom(namespace, results[0]), topK, includePayload), nil
}

// candidatesFrom converts one search result set into rank candidates.
func candidatesFrom(namespace string, rs milvusclient.ResultSet) []rank.Candidate {
	candidates := make([]rank.Candidate, rs.ResultCount)
	for i := range candidates {
		if i < len(rs.Scores) {
			candidates[i].Score = float64(rs.Scores[i])
		}
	}

	prefix := namespace + "/"
	for _, field := range rs.Fields {
		switch col := field.(type) {
		case *column.ColumnVarChar:
			data := col.Data()
			for i := range candidates {
				if i >= len(data) {
					break
				}
				switch col.Name() {
				case fieldID:
					candidates[i].ID = strings.TrimPrefix(data[i], prefix)
				case fieldText:
					candidates[i].Payload.Text = data[i]
				case fieldOrigin:
					candidates[i].Payload.Origin = data[i]
				case fieldLanguage:
					candidates[i].Payload.Language = data[i]
				}
			}
		case *column.ColumnInt64:
			if col.Name() != fieldPosition {
				continue
			}
			data := col.Data()
			for i := range candidates {
				if i < len(data) {
					candidates[i].Payload.Position = int(data[i])
				}
			}
		}
	}

	// Result sets carry the primary key in IDs even when it is not an output field.
	if ids, ok := rs.IDs.(*column.ColumnVarChar); ok {
		data := ids.Data()
		for i := range candidates {
			if candidates[i].ID == "" && i < len(data) {
				candidates[i].ID = strings.TrimPrefix(data[i], prefix)
			}
		}
	}
	return candidates
}

// Stats counts the namespace rows with a count(*) query.
func (v *VectorIndex) Stats(ctx context.Context, namespace string) (domain.IndexStats, error) {
	stats := domain.IndexStats{Namespace: namespace}
	spec := v.currentSpec()
	if spec == nil {
		return stats, nil
	}
	stats.Index = spec.Name
	stats.Dimension = spec.Dimension

	rs, err := v.client.Query(ctx, milvusclient.NewQueryOption(spec.Name).
		WithFilter(namespaceExpr(namespace)).
		WithOutputFields(fieldCount))
	if err != nil {
		return stats, wrap(ctx, "count", err)
	}
	stats.Count = countFrom(rs)
	return stats, nil
}

func countFrom(rs milvusclient.ResultSet) int64 {
	for _, field := range rs.Fields {
		if col, ok := field.(*column.ColumnInt64); ok && col.Name() == fieldCount {
			if data := col.Data(); len(data) > 0 {
				return data[0]
			}
		}
	}
	return 0
}

// Close closes the client connection.
func (v *VectorIndex) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return v.client.Close(ctx)
}

func wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: milvus %s: %w", domain.ErrStoreUnavailable, op, err)
}
