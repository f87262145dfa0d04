// Package result holds a hydrated recommendation.
package result

import "github.com/kailas-cloud/jobrec/internal/domain/posting"

// Result is one ranked posting.
type Result struct {
	rank    int
	index   int
	score   float64
	posting posting.Posting
}

// New creates a result. rank is 1-based.
func New(rank, index int, score float64, p posting.Posting) Result {
	return Result{rank: rank, index: index, score: score, posting: p}
}

// Rank returns the 1-based position in the result list.
func (r *Result) Rank() int { return r.rank }

// Index returns the corpus row of the posting.
func (r *Result) Index() int { return r.index }

// Score returns the cosine similarity.
func (r *Result) Score() float64 { return r.score }

// Posting returns the display fields.
func (r *Result) Posting() posting.Posting { return r.posting }
