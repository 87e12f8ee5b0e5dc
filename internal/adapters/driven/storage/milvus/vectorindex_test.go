package milvus

import (
	"context"
	"testing"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

var testSpec = domain.IndexSpec{Name: "chat-with-code", Dimension: 3, Metric: domain.MetricCosine}

func TestBuildSchema_RoundTrip(t *testing.T) {
	schema := buildSchema(testSpec)

	got, err := specFromSchema(testSpec.Name, schema)

	require.NoError(t, err)
	assert.Equal(t, testSpec, got)

	var primary string
	for _, f := range schema.Fields {
		if f.PrimaryKey {
			primary = f.Name
		}
	}
	assert.Equal(t, fieldID, primary)
}

func TestSpecFromSchema_Mismatch(t *testing.T) {
	existing, err := specFromSchema("chat-with-code", buildSchema(domain.IndexSpec{
		Name: "chat-with-code", Dimension: 1536, Metric: domain.MetricDot,
	}))
	require.NoError(t, err)

	assert.ErrorIs(t, testSpec.Matches(existing), domain.ErrConfiguration)
}

func TestSpecFromSchema_Errors(t *testing.T) {
	_, err := specFromSchema("c", nil)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	noVector := entity.NewSchema().WithName("c").
		WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar))
	_, err = specFromSchema("c", noVector)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSpecFromSchema_ForeignCollectionDefaultsToCosine(t *testing.T) {
	schema := entity.NewSchema().WithName("c").WithDescription("made elsewhere").
		WithField(entity.NewField().WithName(fieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(3))

	got, err := specFromSchema("c", schema)

	require.NoError(t, err)
	assert.Equal(t, domain.MetricCosine, got.Metric)
	assert.Equal(t, 3, got.Dimension)
}

func TestMetricType(t *testing.T) {
	assert.Equal(t, entity.COSINE, metricType(domain.MetricCosine))
	assert.Equal(t, entity.IP, metricType(domain.MetricDot))
}

func TestNamespaceExpr(t *testing.T) {
	assert.Equal(t, `namespace == "session-01J"`, namespaceExpr("session-01J"))
}

func TestBuildColumns(t *testing.T) {
	entries := []domain.VectorEntry{
		{ID: "a", Vector: []float32{1, 0, 0}, Payload: domain.Payload{Text: "ta", Origin: "a.go", Position: 0, Language: "go"}},
		{ID: "b", Vector: []float32{0, 1, 0}, Payload: domain.Payload{Text: "tb", Origin: "b.py", Position: 4}},
	}

	cols := buildColumns("ns", 3, entries)

	byName := make(map[string]column.Column, len(cols))
	for _, c := range cols {
		byName[c.Name()] = c
		assert.Equal(t, 2, c.Len(), c.Name())
	}
	assert.Equal(t, []string{"ns/a", "ns/b"}, byName[fieldID].(*column.ColumnVarChar).Data())
	assert.Equal(t, []string{"ns", "ns"}, byName[fieldNamespace].(*column.ColumnVarChar).Data())
	assert.Equal(t, []string{"ta", "tb"}, byName[fieldText].(*column.ColumnVarChar).Data())
	assert.Equal(t, []int64{0, 4}, byName[fieldPosition].(*column.ColumnInt64).Data())
	assert.Equal(t, []string{"go", ""}, byName[fieldLanguage].(*column.ColumnVarChar).Data())
}

func TestCandidatesFrom(t *testing.T) {
	rs := milvusclient.ResultSet{
		ResultCount: 2,
		Scores:      []float32{0.9, 0.5},
		IDs:         column.NewColumnVarChar(fieldID, []string{"ns/b", "ns/a"}),
		Fields: []column.Column{
			column.NewColumnVarChar(fieldText, []string{"tb", "ta"}),
			column.NewColumnVarChar(fieldOrigin, []string{"b.py", "a.go"}),
			column.NewColumnInt64(fieldPosition, []int64{4, 0}),
		},
	}

	got := candidatesFrom("ns", rs)

	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.InDelta(t, 0.9, got[0].Score, 1e-6)
	assert.Equal(t, domain.Payload{Text: "tb", Origin: "b.py", Position: 4}, got[0].Payload)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "ta", got[1].Payload.Text)
}

func TestCountFrom(t *testing.T) {
	rs := milvusclient.ResultSet{Fields: []column.Column{column.NewColumnInt64(fieldCount, []int64{42})}}

	assert.Equal(t, int64(42), countFrom(rs))
	assert.Zero(t, countFrom(milvusclient.ResultSet{}))
}

func TestVectorIndex_BeforeEnsure(t *testing.T) {
	idx := &VectorIndex{}
	ctx := context.Background()

	err := idx.Upsert(ctx, "ns", []domain.VectorEntry{{ID: "a", Vector: []float32{1, 0, 0}}})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	matches, err := idx.Query(ctx, "ns", []float32{1, 0, 0}, 3, true)
	require.NoError(t, err)
	assert.Empty(t, matches)

	stats, err := idx.Stats(ctx, "ns")
	require.NoError(t, err)
	assert.Zero(t, stats.Count)
}

func TestVectorIndex_DimensionChecks(t *testing.T) {
	spec := testSpec
	idx := &VectorIndex{spec: &spec}
	ctx := context.Background()

	err := idx.Upsert(ctx, "ns", []domain.VectorEntry{{ID: "a", Vector: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = idx.Query(ctx, "ns", []float32{1}, 3, true)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	assert.NoError(t, idx.Upsert(ctx, "ns", nil))
}
