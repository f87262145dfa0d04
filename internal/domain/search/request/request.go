// Package request validates recommendation queries.
package request

import (
	"fmt"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/search/filter"
)

// Request parameter limits.
const (
	// MaxTextLength bounds the profile text (a pasted resume fits comfortably).
	MaxTextLength = 256 << 10
	DefaultK      = 3
	MaxK          = 50
)

// Limits are the K bounds applied by New.
type Limits struct {
	DefaultK int
	MaxK     int
}

// DefaultLimits returns DefaultK and MaxK.
func DefaultLimits() Limits {
	return Limits{DefaultK: DefaultK, MaxK: MaxK}
}

func (l Limits) resolve(k int) (int, error) {
	if l.DefaultK <= 0 {
		l.DefaultK = DefaultK
	}
	if l.MaxK <= 0 {
		l.MaxK = MaxK
	}
	if k < 0 {
		return 0, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}
	if k == 0 {
		k = l.DefaultK
	}
	if k > l.MaxK {
		k = l.MaxK
	}
	return k, nil
}

func validMinScore(s float64) error {
	if s < 0 || s > 1 {
		return fmt.Errorf("%w: min_score must be between 0 and 1", domain.ErrInvalidArgument)
	}
	return nil
}

// Request is a validated recommendation query.
type Request struct {
	text     string
	k        int
	filters  filter.Filter
	minScore float64
}

// New validates and normalizes recommendation parameters.
// k == 0 selects lim.DefaultK; k above lim.MaxK is clamped.
// Empty text is allowed and yields no matches downstream.
func New(text string, k int, filters filter.Filter, minScore float64, lim Limits) (Request, error) {
	if len(text) > MaxTextLength {
		return Request{}, fmt.Errorf("%w: text too long (max %d bytes)", domain.ErrInvalidArgument, MaxTextLength)
	}
	k, err := lim.resolve(k)
	if err != nil {
		return Request{}, err
	}
	if err := validMinScore(minScore); err != nil {
		return Request{}, err
	}
	return Request{text: text, k: k, filters: filters, minScore: minScore}, nil
}

// Text returns the raw profile text.
func (r *Request) Text() string { return r.text }

// K returns the number of recommendations to return.
func (r *Request) K() int { return r.k }

// Filters returns the eligibility filter.
func (r *Request) Filters() filter.Filter { return r.filters }

// MinScore returns the minimum similarity threshold.
func (r *Request) MinScore() float64 { return r.minScore }
