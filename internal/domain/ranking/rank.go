// Package ranking scores documents against a query vector and selects the top K.
package ranking

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/vectorspace"
)

// Hit is a ranked document: its corpus index and cosine similarity.
type Hit struct {
	Index int
	Score float64
}

// less orders hits: higher score first; on equal scores, lower index first.
func less(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Index < b.Index
}

// Rank returns at most k documents by descending cosine similarity to q.
// Rows and query are L2 normalized, so cosine is the dot product.
// A query without vocabulary overlap yields an empty result; otherwise the
// result holds min(k, rows) hits and rows sharing no term with the query
// fill the tail with score 0 in ascending index order.
func Rank(q vectorspace.SparseVector, m *vectorspace.Matrix, k int) ([]Hit, error) {
	return RankFunc(q, m, k, nil)
}

// RankFunc is Rank restricted to rows for which keep returns true.
// A nil keep admits every row.
func RankFunc(q vectorspace.SparseVector, m *vectorspace.Matrix, k int, keep func(row int) bool) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}
	if q.Dim() != m.Cols() {
		return nil, fmt.Errorf("%w: query dimension %d, matrix has %d columns",
			domain.ErrInvalidArgument, q.Dim(), m.Cols())
	}
	if q.IsZero() {
		return []Hit{}, nil
	}

	h := make(minHeap, 0, min(k, m.Rows()))
	for row := 0; row < m.Rows(); row++ {
		if keep != nil && !keep(row) {
			continue
		}
		hit := Hit{Index: row, Score: m.DotRow(row, q)}
		if len(h) < k {
			heap.Push(&h, hit)
			continue
		}
		if less(hit, h[0]) {
			h[0] = hit
			heap.Fix(&h, 0)
		}
	}

	out := []Hit(h)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

// minHeap keeps the worst retained hit at the root.
type minHeap []Hit

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return less(h[j], h[i]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(Hit)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
