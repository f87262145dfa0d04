package request

import (
	"fmt"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/search/filter"
)

// SimilarRequest is a validated "postings like this one" query.
type SimilarRequest struct {
	index    int
	k        int
	filters  filter.Filter
	minScore float64
}

// NewSimilar validates and normalizes similar request parameters.
func NewSimilar(index, k int, filters filter.Filter, minScore float64, lim Limits) (SimilarRequest, error) {
	if index < 0 {
		return SimilarRequest{}, fmt.Errorf("%w: posting index must be >= 0, got %d", domain.ErrInvalidArgument, index)
	}
	k, err := lim.resolve(k)
	if err != nil {
		return SimilarRequest{}, err
	}
	if err := validMinScore(minScore); err != nil {
		return SimilarRequest{}, err
	}
	return SimilarRequest{index: index, k: k, filters: filters, minScore: minScore}, nil
}

// Index returns the reference posting index.
func (r *SimilarRequest) Index() int { return r.index }

// K returns the number of recommendations to return.
func (r *SimilarRequest) K() int { return r.k }

// Filters returns the eligibility filter.
func (r *SimilarRequest) Filters() filter.Filter { return r.filters }

// MinScore returns the minimum similarity threshold.
func (r *SimilarRequest) MinScore() float64 { return r.minScore }
