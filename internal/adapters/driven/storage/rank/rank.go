// Package rank scores and orders vectors for the brute-force index backends.
package rank

import (
	"cmp"
	"math"
	"slices"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

// Candidate is a scored entry awaiting selection.
type Candidate struct {
	ID      string
	Score   float64
	Payload domain.Payload
}

// Score returns the similarity of a and b under metric.
// Cosine of a zero vector is 0.
func Score(metric domain.Metric, a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if metric == domain.MetricDot {
		return dot
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK sorts candidates by descending score, ties by ascending ID, and keeps
// at most k. The input slice is reordered.
func TopK(candidates []Candidate, k int, includePayload bool) []domain.VectorMatch {
	slices.SortFunc(candidates, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if k < len(candidates) {
		candidates = candidates[:k]
	}

	matches := make([]domain.VectorMatch, len(candidates))
	for i, c := range candidates {
		matches[i] = domain.VectorMatch{ID: c.ID, Score: c.Score}
		if includePayload {
			p := c.Payload
			matches[i].Payload = &p
		}
	}
	return matches
}
