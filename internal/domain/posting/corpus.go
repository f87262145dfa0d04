package posting

import (
	"fmt"

	"github.com/kailas-cloud/jobrec/internal/domain"
)

// Corpus is the ordered sequence of postings. The slice index is the
// canonical document ID used by the vector space and the ranker.
type Corpus struct {
	postings []Posting
}

// NewCorpus validates and creates a Corpus. Duplicate job IDs are rejected.
func NewCorpus(postings []Posting) (Corpus, error) {
	seen := make(map[string]int, len(postings))
	for i := range postings {
		id := postings[i].ID()
		if prev, ok := seen[id]; ok {
			return Corpus{}, fmt.Errorf("%w: duplicate job id %q at rows %d and %d", domain.ErrData, id, prev, i)
		}
		seen[id] = i
	}
	cp := make([]Posting, len(postings))
	copy(cp, postings)
	return Corpus{postings: cp}, nil
}

// Len returns the number of postings.
func (c *Corpus) Len() int { return len(c.postings) }

// At returns the posting at index i.
func (c *Corpus) At(i int) (Posting, bool) {
	if i < 0 || i >= len(c.postings) {
		return Posting{}, false
	}
	return c.postings[i], true
}

// All returns a copy of the postings in canonical order.
func (c *Corpus) All() []Posting {
	cp := make([]Posting, len(c.postings))
	copy(cp, c.postings)
	return cp
}

// NormalizedTexts returns the normalized text of every posting, row-aligned.
func (c *Corpus) NormalizedTexts() []string {
	out := make([]string, len(c.postings))
	for i := range c.postings {
		out[i] = c.postings[i].Normalized()
	}
	return out
}
