package vectorspace

import (
	"fmt"

	"github.com/kailas-cloud/jobrec/internal/domain"
)

// Matrix is the document-term weight matrix in compressed sparse row form.
// Row i corresponds to Corpus[i]; every non-empty row is L2 normalized.
type Matrix struct {
	rows    int
	cols    int
	indptr  []int64
	indices []int32
	values  []float64
}

// NewMatrix validates CSR arrays and creates a Matrix.
func NewMatrix(rows, cols int, indptr []int64, indices []int32, values []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: negative matrix shape %dx%d", domain.ErrInvalidArgument, rows, cols)
	}
	if len(indptr) != rows+1 {
		return nil, fmt.Errorf("%w: indptr length %d, want %d", domain.ErrInvalidArgument, len(indptr), rows+1)
	}
	if len(indices) != len(values) {
		return nil, fmt.Errorf("%w: %d indices but %d values", domain.ErrInvalidArgument, len(indices), len(values))
	}
	if indptr[0] != 0 || indptr[rows] != int64(len(indices)) {
		return nil, fmt.Errorf("%w: indptr bounds [%d,%d] do not cover %d entries",
			domain.ErrInvalidArgument, indptr[0], indptr[rows], len(indices))
	}
	for r := 0; r < rows; r++ {
		start, end := indptr[r], indptr[r+1]
		if end < start {
			return nil, fmt.Errorf("%w: indptr decreases at row %d", domain.ErrInvalidArgument, r)
		}
		for k := start; k < end; k++ {
			c := indices[k]
			if c < 0 || int(c) >= cols {
				return nil, fmt.Errorf("%w: column %d out of range at row %d", domain.ErrInvalidArgument, c, r)
			}
			if k > start && indices[k-1] >= c {
				return nil, fmt.Errorf("%w: columns not strictly increasing at row %d", domain.ErrInvalidArgument, r)
			}
		}
	}
	return &Matrix{rows: rows, cols: cols, indptr: indptr, indices: indices, values: values}, nil
}

// Rows returns the number of documents.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the vocabulary size.
func (m *Matrix) Cols() int { return m.cols }

// NNZ returns the number of stored weights.
func (m *Matrix) NNZ() int { return len(m.indices) }

// Indptr returns the row pointer array (len Rows()+1).
func (m *Matrix) Indptr() []int64 { return m.indptr }

// Indices returns the column index array.
func (m *Matrix) Indices() []int32 { return m.indices }

// Values returns the weight array aligned with Indices.
func (m *Matrix) Values() []float64 { return m.values }

// Row returns row i as a sparse vector sharing the matrix storage.
func (m *Matrix) Row(i int) SparseVector {
	start, end := m.indptr[i], m.indptr[i+1]
	return SparseVector{dim: m.cols, indices: m.indices[start:end], values: m.values[start:end]}
}

// DotRow returns the dot product of row i with v.
func (m *Matrix) DotRow(i int, v SparseVector) float64 {
	start, end := m.indptr[i], m.indptr[i+1]
	return dot(m.indices[start:end], m.values[start:end], v.indices, v.values)
}
