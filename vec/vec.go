// Package vec provides the vector operations trackers apply to appearance
// embeddings, distance measures between single vectors and batched
// similarity and cost matrices for the association step.
package vec

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Normalize returns v scaled to unit length as a new slice.  A zero
// magnitude vector is returned unchanged.
func Normalize(v []float32) []float32 {

	var sumSquares float32

	for _, x := range v {
		sumSquares += x * x
	}

	if sumSquares == 0 {
		// avoid /0
		return v
	}

	norm := float32(math.Sqrt(float64(sumSquares)))
	out := make([]float32, len(v))

	for i, x := range v {
		out[i] = x / norm
	}

	return out
}

// CosineSimilarity returns the dot product of a and b, which is the cosine
// of their angle when both are L2-normalized.  Assumes len(a) == len(b).
func CosineSimilarity(a, b []float32) float32 {

	var dot float32

	for i := range a {
		dot += a[i] * b[i]
	}

	return dot
}

// CosineDistance returns 1 - cosine similarity, small values mean very
// similar
func CosineDistance(a, b []float32) float32 {
	return 1 - CosineSimilarity(a, b)
}

// EuclideanDistance returns the L2 distance between two vectors, lower
// means more similar when the features are L2-normalized
func EuclideanDistance(a, b []float32) float32 {

	var sum float32

	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return float32(math.Sqrt(float64(sum)))
}

// SimilarityMatrix computes the len(a) x len(b) matrix of dot products
// between every vector of a and every vector of b.  For L2-normalized
// embeddings the entries are cosine similarities.
func SimilarityMatrix(a, b [][]float32) (*mat.Dense, error) {

	dense := func(rows [][]float32, dim int) (*mat.Dense, error) {

		data := make([]float64, 0, len(rows)*dim)

		for i, r := range rows {
			if len(r) != dim {
				return nil, fmt.Errorf("vector %d has dimension %d, want %d",
					i, len(r), dim)
			}

			for _, v := range r {
				data = append(data, float64(v))
			}
		}

		return mat.NewDense(len(rows), dim, data), nil
	}

	if len(a) == 0 || len(b) == 0 {
		return nil, fmt.Errorf("empty vector batch")
	}

	dim := len(a[0])

	if dim == 0 || len(b[0]) != dim {
		return nil, fmt.Errorf("dimension mismatch: %d vs %d", dim, len(b[0]))
	}

	A, err := dense(a, dim)

	if err != nil {
		return nil, err
	}

	B, err := dense(b, dim)

	if err != nil {
		return nil, err
	}

	var s mat.Dense
	s.Mul(A, B.T())

	return &s, nil
}

// CostMatrix returns 1 - similarity for every pair, the form association
// solvers consume
func CostMatrix(a, b [][]float32) (*mat.Dense, error) {

	s, err := SimilarityMatrix(a, b)

	if err != nil {
		return nil, err
	}

	s.Apply(func(_, _ int, v float64) float64 { return 1 - v }, s)

	return s, nil
}
