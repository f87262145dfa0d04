package vectorspace

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/text"
)

// Vocabulary maps normalized terms to column indices. Terms are sorted, so the
// mapping is a bijection between terms and [0, Size()).
type Vocabulary struct {
	terms []string
	index map[string]int32
}

// NewVocabulary builds a Vocabulary from strictly sorted, unique terms.
func NewVocabulary(terms []string) (Vocabulary, error) {
	index := make(map[string]int32, len(terms))
	for i, t := range terms {
		if t == "" {
			return Vocabulary{}, fmt.Errorf("%w: empty term at column %d", domain.ErrInvalidArgument, i)
		}
		if i > 0 && terms[i-1] >= t {
			return Vocabulary{}, fmt.Errorf("%w: terms not strictly sorted at column %d", domain.ErrInvalidArgument, i)
		}
		index[t] = int32(i)
	}
	return Vocabulary{terms: terms, index: index}, nil
}

// Size returns the number of terms.
func (v Vocabulary) Size() int { return len(v.terms) }

// Index returns the column of term.
func (v Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return int(i), ok
}

// Term returns the term at column i.
func (v Vocabulary) Term(i int) string { return v.terms[i] }

// Terms returns the terms in column order.
func (v Vocabulary) Terms() []string { return v.terms }

// Model is the fitted term weighting model: vocabulary plus smoothed
// inverse document frequencies. Immutable after Fit.
type Model struct {
	vocab       Vocabulary
	idf         []float64
	docCount    int
	maxFeatures int
}

// NewModel validates and creates a Model (storage hydration).
func NewModel(vocab Vocabulary, idf []float64, docCount, maxFeatures int) (*Model, error) {
	if len(idf) != vocab.Size() {
		return nil, fmt.Errorf("%w: %d idf weights for %d terms", domain.ErrInvalidArgument, len(idf), vocab.Size())
	}
	for i, w := range idf {
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return nil, fmt.Errorf("%w: invalid idf %v at column %d", domain.ErrInvalidArgument, w, i)
		}
	}
	if docCount <= 0 {
		return nil, fmt.Errorf("%w: document count must be positive, got %d", domain.ErrInvalidArgument, docCount)
	}
	return &Model{vocab: vocab, idf: idf, docCount: docCount, maxFeatures: maxFeatures}, nil
}

// Vocabulary returns the frozen vocabulary.
func (m *Model) Vocabulary() Vocabulary { return m.vocab }

// IDF returns the weight of every column.
func (m *Model) IDF() []float64 { return m.idf }

// DocCount returns the number of documents the model was fit on.
func (m *Model) DocCount() int { return m.docCount }

// MaxFeatures returns the vocabulary cap used at fit time (0 = unlimited).
func (m *Model) MaxFeatures() int { return m.maxFeatures }

// Project maps normalized query tokens into the vector space: raw term
// frequency times stored idf, L2 normalized. Out-of-vocabulary tokens are
// ignored. Returns domain.ErrEmptyQuery when no token is in the vocabulary.
func (m *Model) Project(tokens []string) (SparseVector, error) {
	return m.weigh(tokens, domain.ErrEmptyQuery)
}

// ProjectText normalizes raw text with n and projects the tokens.
func (m *Model) ProjectText(n *text.Normalizer, raw string) (SparseVector, error) {
	return m.Project(n.Normalize(raw))
}

// Transform weighs a corpus document the same way Project weighs a query,
// but an empty result is a zero vector rather than an error.
func (m *Model) Transform(tokens []string) SparseVector {
	v, _ := m.weigh(tokens, nil)
	return v
}

func (m *Model) weigh(tokens []string, emptyErr error) (SparseVector, error) {
	tf := make(map[int32]int, len(tokens))
	for _, tok := range tokens {
		if col, ok := m.vocab.index[tok]; ok {
			tf[col]++
		}
	}
	if len(tf) == 0 {
		v := SparseVector{dim: m.vocab.Size()}
		if emptyErr != nil {
			return v, fmt.Errorf("%w: no term overlaps the vocabulary", emptyErr)
		}
		return v, nil
	}

	indices := make([]int32, 0, len(tf))
	for col := range tf {
		indices = append(indices, col)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float64, len(indices))
	for i, col := range indices {
		values[i] = float64(tf[col]) * m.idf[col]
	}
	l2Normalize(values)
	return SparseVector{dim: m.vocab.Size(), indices: indices, values: values}, nil
}
