// Package filter restricts recommendations to postings matching structured criteria.
package filter

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/posting"
)

// Filter is an eligibility predicate over postings. The zero value matches everything.
// Conditions combine with AND; experience levels combine with OR.
type Filter struct {
	levels     []string
	minSalary  *float64
	remoteOnly bool
}

// New validates and creates a Filter. Levels are deduplicated and sorted.
func New(levels []string, minSalary *float64, remoteOnly bool) (Filter, error) {
	var norm []string
	seen := make(map[string]struct{}, len(levels))
	for _, lvl := range levels {
		lvl = strings.ToLower(strings.TrimSpace(lvl))
		if !posting.IsValidLevel(lvl) {
			return Filter{}, fmt.Errorf("%w: unknown experience level %q", domain.ErrInvalidArgument, lvl)
		}
		if _, ok := seen[lvl]; ok {
			continue
		}
		seen[lvl] = struct{}{}
		norm = append(norm, lvl)
	}
	sort.Strings(norm)

	if minSalary != nil {
		if *minSalary < 0 || math.IsNaN(*minSalary) || math.IsInf(*minSalary, 0) {
			return Filter{}, fmt.Errorf("%w: min_salary must be a non-negative number", domain.ErrInvalidArgument)
		}
		v := *minSalary
		minSalary = &v
	}
	return Filter{levels: norm, minSalary: minSalary, remoteOnly: remoteOnly}, nil
}

// ExperienceLevels returns the accepted levels (empty = any).
func (f Filter) ExperienceLevels() []string { return f.levels }

// MinSalary returns the annual salary floor.
func (f Filter) MinSalary() *float64 { return f.minSalary }

// RemoteOnly reports whether only remote postings are eligible.
func (f Filter) RemoteOnly() bool { return f.remoteOnly }

// IsEmpty reports whether the filter has no conditions.
func (f Filter) IsEmpty() bool {
	return len(f.levels) == 0 && f.minSalary == nil && !f.remoteOnly
}

// Matches reports whether p satisfies every condition.
// Postings without a salary never pass a salary floor.
func (f Filter) Matches(p *posting.Posting) bool {
	if f.remoteOnly && !p.Remote() {
		return false
	}
	if f.minSalary != nil {
		s, ok := p.Salary()
		if !ok || s < *f.minSalary {
			return false
		}
	}
	if len(f.levels) > 0 {
		lvl := p.Experience()
		for _, want := range f.levels {
			if want == lvl {
				return true
			}
		}
		return false
	}
	return true
}

// Key is a canonical encoding used in cache keys.
func (f Filter) Key() string {
	var b strings.Builder
	b.WriteString("lvl=")
	b.WriteString(strings.Join(f.levels, ","))
	b.WriteString(";min=")
	if f.minSalary != nil {
		b.WriteString(strconv.FormatFloat(*f.minSalary, 'g', -1, 64))
	}
	b.WriteString(";remote=")
	b.WriteString(strconv.FormatBool(f.remoteOnly))
	return b.String()
}
