// Package qdrant provides a driven.VectorIndex backed by a Qdrant collection
// accessed over its REST API.
//
// All namespaces share one collection. The namespace is stored in an indexed
// keyword payload field and every query filters on it.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/repochat/internal/adapters/driven/storage/rank"
	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// Default configuration values.
const (
	DefaultURL     = "http://localhost:6333"
	DefaultTimeout = 15 * time.Second
)

// pointNamespace seeds the UUIDv5 point IDs derived from (namespace, chunk ID).
var pointNamespace = uuid.MustParse("6f1c2a4e-8f0b-4a53-9d59-2b7f4f0e9c11")

// Config holds configuration for the Qdrant index.
type Config struct {
	// URL is the Qdrant REST endpoint (default: http://localhost:6333).
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Timeout is the request timeout (default: 15s).
	Timeout time.Duration
}

// VectorIndex stores entries as Qdrant points.
type VectorIndex struct {
	client *http.Client
	url    string
	apiKey string

	mu   sync.RWMutex
	spec *domain.IndexSpec
}

// NewVectorIndex creates a Qdrant-backed index. No request is made until EnsureIndex.
func NewVectorIndex(cfg Config) *VectorIndex {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &VectorIndex{
		client: &http.Client{Timeout: cfg.Timeout},
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
	}
}

// statusError is a non-2xx reply from Qdrant.
type statusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

type point struct {
	ID      string       `json:"id"`
	Vector  []float32    `json:"vector"`
	Payload pointPayload `json:"payload"`
}

type pointPayload struct {
	ChunkID   string `json:"chunk_id"`
	Namespace string `json:"namespace"`
	Text      string `json:"text"`
	Origin    string `json:"origin"`
	Position  int    `json:"position"`
	Language  string `json:"language,omitempty"`
}

type fieldMatch struct {
	Key   string `json:"key"`
	Match struct {
		Value string `json:"value"`
	} `json:"match"`
}

type filter struct {
	Must []fieldMatch `json:"must"`
}

func namespaceFilter(namespace string) *filter {
	m := fieldMatch{Key: "namespace"}
	m.Match.Value = namespace
	return &filter{Must: []fieldMatch{m}}
}

type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
	Filter      *filter   `json:"filter"`
}

type searchResponse struct {
	Result []struct {
		ID      any          `json:"id"`
		Score   float64      `json:"score"`
		Payload pointPayload `json:"payload"`
	} `json:"result"`
}

type countResponse struct {
	Result struct {
		Count int64 `json:"count"`
	} `json:"result"`
}

// PointID returns the Qdrant point UUID for a chunk ID within a namespace.
func PointID(namespace, chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(namespace+"\x00"+chunkID)).String()
}

func distanceFor(m domain.Metric) string {
	if m == domain.MetricDot {
		return "Dot"
	}
	return "Cosine"
}

func metricFor(distance string) domain.Metric {
	switch strings.ToLower(distance) {
	case "dot":
		return domain.MetricDot
	case "cosine":
		return domain.MetricCosine
	default:
		return domain.Metric(strings.ToLower(distance))
	}
}

// EnsureIndex creates the collection and its namespace payload index if absent,
// or checks the existing collection's vector parameters.
func (v *VectorIndex) EnsureIndex(ctx context.Context, spec domain.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	path := "/collections/" + spec.Name

	var info collectionInfo
	err := v.do(ctx, http.MethodGet, path, nil, &info)
	var se *statusError
	switch {
	case err == nil:
		existing := domain.IndexSpec{
			Name:      spec.Name,
			Dimension: info.Result.Config.Params.Vectors.Size,
			Metric:    metricFor(info.Result.Config.Params.Vectors.Distance),
		}
		if err := spec.Matches(existing); err != nil {
			return err
		}

	case errors.As(err, &se) && se.Code == http.StatusNotFound:
		create := map[string]any{
			"vectors": map[string]any{
				"size":     spec.Dimension,
				"distance": distanceFor(spec.Metric),
			},
		}
		if err := v.do(ctx, http.MethodPut, path, create, nil); err != nil {
			return v.wrap(ctx, err)
		}
		fieldIndex := map[string]any{"field_name": "namespace", "field_schema": "keyword"}
		if err := v.do(ctx, http.MethodPut, path+"/index?wait=true", fieldIndex, nil); err != nil {
			return v.wrap(ctx, err)
		}

	default:
		return v.wrap(ctx, err)
	}

	v.mu.Lock()
	v.spec = &spec
	v.mu.Unlock()
	return nil
}

func (v *VectorIndex) currentSpec() *domain.IndexSpec {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.spec
}

// Upsert writes all entries in one points request and waits for it to apply.
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

	points := make([]point, len(entries))
	for i, e := range entries {
		points[i] = point{
			ID:     PointID(namespace, e.ID),
			Vector: e.Vector,
			Payload: pointPayload{
				ChunkID:   e.ID,
				Namespace: namespace,
				Text:      e.Payload.Text,
				Origin:    e.Payload.Origin,
				Position:  e.Payload.Position,
				Language:  e.Payload.Language,
			},
		}
	}

	body := map[string]any{"points": points}
	if err := v.do(ctx, http.MethodPut, "/collections/"+spec.Name+"/points?wait=true", body, nil); err != nil {
		return v.wrap(ctx, err)
	}
	return nil
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

	req := searchRequest{
		Vector:      vector,
		Limit:       topK,
		WithPayload: true,
		Filter:      namespaceFilter(namespace),
	}
	var resp searchResponse
	if err := v.do(ctx, http.MethodPost, "/collections/"+spec.Name+"/points/search", req, &resp); err != nil {
		return nil, v.wrap(ctx, err)
	}

	candidates := make([]rank.Candidate, 0, len(resp.Result))
	for _, r := range resp.Result {
		candidates = append(candidates, rank.Candidate{
			ID:    r.Payload.ChunkID,
			Score: r.Score,
			Payload: domain.Payload{
				Text:     r.Payload.Text,
				Origin:   r.Payload.Origin,
				Position: r.Payload.Position,
				Language: r.Payload.Language,
			},
		})
	}
	return rank.TopK(candidates, topK, includePayload), nil
}

// Stats counts the points of the namespace exactly.
func (v *VectorIndex) Stats(ctx context.Context, namespace string) (domain.IndexStats, error) {
	stats := domain.IndexStats{Namespace: namespace}
	spec := v.currentSpec()
	if spec == nil {
		return stats, nil
	}
	stats.Index = spec.Name
	stats.Dimension = spec.Dimension

	req := map[string]any{"filter": namespaceFilter(namespace), "exact": true}
	var resp countResponse
	if err := v.do(ctx, http.MethodPost, "/collections/"+spec.Name+"/points/count", req, &resp); err != nil {
		return stats, v.wrap(ctx, err)
	}
	stats.Count = resp.Result.Count
	return stats, nil
}

// Close releases resources.
func (v *VectorIndex) Close() error {
	v.client.CloseIdleConnections()
	return nil
}

// wrap classifies a request failure, preferring the context error.
func (v *VectorIndex) wrap(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}

// do sends a JSON request and decodes a 2xx reply into out when non-nil.
func (v *VectorIndex) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, v.url+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("api-key", v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &statusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("qdrant %s %s: decode response: %w", method, path, err)
	}
	return nil
}
