// Package vector provides nearest-neighbour search over chunk embeddings.
package vector

import "context"

// VectorIndex stores vectors by chunk ID and searches them by inner product.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Dimensions() int
	Size() int
	Close() error
}

// VectorResult is a single search hit. Score is the raw inner product, so
// it is only comparable between hits of the same query.
type VectorResult struct {
	ID    string
	Score float64
}

// InnerProduct returns the dot product of a and b, or 0 when their lengths
// differ or both are empty.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i, v := range a {
		sum += float64(v) * float64(b[i])
	}
	return sum
}
