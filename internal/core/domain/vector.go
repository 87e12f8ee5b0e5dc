package domain

import "fmt"

// Metric is the similarity function of a vector index.
type Metric string

// Supported metrics.
const (
	// MetricCosine ranks by cosine similarity.
	MetricCosine Metric = "cosine"

	// MetricDot ranks by inner product.
	MetricDot Metric = "dot"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	switch m {
	case MetricCosine, MetricDot:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// IndexSpec describes the single shared vector index.
// Every namespace of every session lives inside one index.
type IndexSpec struct {
	// Name is the fixed index name.
	Name string

	// Dimension is the embedding vector length; constant for the index lifetime.
	Dimension int

	// Metric is the similarity function.
	Metric Metric
}

// Validate checks the index definition is usable.
func (s IndexSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: index name is required", ErrConfiguration)
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("%w: index dimension must be positive, got %d", ErrConfiguration, s.Dimension)
	}
	if !s.Metric.IsValid() {
		return fmt.Errorf("%w: unsupported metric %q", ErrConfiguration, s.Metric)
	}
	return nil
}

// Matches returns an error when an existing index differs from the wanted spec.
func (s IndexSpec) Matches(existing IndexSpec) error {
	if existing.Dimension != s.Dimension {
		return fmt.Errorf("%w: index %q has dimension %d, embedding model produces %d",
			ErrConfiguration, s.Name, existing.Dimension, s.Dimension)
	}
	if existing.Metric != s.Metric {
		return fmt.Errorf("%w: index %q uses metric %q, want %q",
			ErrConfiguration, s.Name, existing.Metric, s.Metric)
	}
	return nil
}

// Payload is stored alongside each vector. The chunk text lives here,
// so an entry is never present without retrievable text.
type Payload struct {
	Text     string `json:"text"`
	Origin   string `json:"origin"`
	Position int    `json:"position"`
	Language string `json:"language,omitempty"`
}

// VectorEntry is one (id, vector, payload) triple written to the index.
type VectorEntry struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// VectorMatch is one query result. Payload is nil unless requested.
type VectorMatch struct {
	ID      string
	Score   float64
	Payload *Payload
}

// IndexStats summarises the contents of one namespace.
type IndexStats struct {
	Index     string `json:"index"`
	Namespace string `json:"namespace"`
	Count     int64  `json:"count"`
	Dimension int    `json:"dimension"`
}
