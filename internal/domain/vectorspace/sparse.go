// Package vectorspace fits the TF-IDF term weighting model over a corpus and
// projects queries into the frozen vector space.
package vectorspace

import "math"

// SparseVector holds non-zero weights over vocabulary columns.
// Indices are strictly increasing.
type SparseVector struct {
	dim     int
	indices []int32
	values  []float64
}

// NewSparseVector creates a vector without validation (storage hydration and tests).
func NewSparseVector(dim int, indices []int32, values []float64) SparseVector {
	return SparseVector{dim: dim, indices: indices, values: values}
}

// Dim returns the vocabulary size the vector lives in.
func (v SparseVector) Dim() int { return v.dim }

// NNZ returns the number of non-zero entries.
func (v SparseVector) NNZ() int { return len(v.indices) }

// IsZero reports whether the vector has no non-zero entries.
func (v SparseVector) IsZero() bool { return len(v.indices) == 0 }

// Indices returns the column indices.
func (v SparseVector) Indices() []int32 { return v.indices }

// Values returns the weights aligned with Indices.
func (v SparseVector) Values() []float64 { return v.values }

// Norm returns the L2 norm.
func (v SparseVector) Norm() float64 {
	var sum float64
	for _, x := range v.values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// dot merges two sorted index lists.
func dot(ai []int32, av []float64, bi []int32, bv []float64) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(ai) && j < len(bi) {
		switch {
		case ai[i] == bi[j]:
			sum += av[i] * bv[j]
			i++
			j++
		case ai[i] < bi[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// l2Normalize scales values in place to unit length; zero vectors are left as is.
func l2Normalize(values []float64) {
	var sum float64
	for _, x := range values {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range values {
		values[i] /= norm
	}
}
