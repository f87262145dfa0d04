package vectorspace

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/jobrec/internal/domain"
)

// FitOptions tunes Fit.
type FitOptions struct {
	// MaxFeatures keeps only the most frequent terms by total corpus count
	// (ties broken alphabetically). 0 means unlimited.
	MaxFeatures int
}

// SmoothIDF is the smoothed inverse document frequency ln((1+n)/(1+df)) + 1.
func SmoothIDF(n, df int) float64 {
	return math.Log(float64(1+n)/float64(1+df)) + 1
}

// Fit builds the vocabulary, idf weights and the row-aligned document matrix
// from normalized documents. docs[i] becomes row i.
func Fit(docs [][]string, opts FitOptions) (*Model, *Matrix, error) {
	if len(docs) == 0 {
		return nil, nil, fmt.Errorf("%w: corpus is empty", domain.ErrData)
	}
	if opts.MaxFeatures < 0 {
		return nil, nil, fmt.Errorf("%w: max features must be >= 0, got %d", domain.ErrInvalidArgument, opts.MaxFeatures)
	}

	df := make(map[string]int)
	total := make(map[string]int)
	for _, tokens := range docs {
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			total[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return nil, nil, fmt.Errorf("%w: every document normalized to no tokens", domain.ErrData)
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	if opts.MaxFeatures > 0 && len(terms) > opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:opts.MaxFeatures]
	}
	sort.Strings(terms)

	vocab, err := NewVocabulary(terms)
	if err != nil {
		return nil, nil, err
	}
	idf := make([]float64, len(terms))
	for i, t := range terms {
		idf[i] = SmoothIDF(len(docs), df[t])
	}
	model, err := NewModel(vocab, idf, len(docs), opts.MaxFeatures)
	if err != nil {
		return nil, nil, err
	}

	indptr := make([]int64, 1, len(docs)+1)
	var indices []int32
	var values []float64
	for _, tokens := range docs {
		row := model.Transform(tokens)
		indices = append(indices, row.indices...)
		values = append(values, row.values...)
		indptr = append(indptr, int64(len(indices)))
	}
	matrix, err := NewMatrix(len(docs), vocab.Size(), indptr, indices, values)
	if err != nil {
		return nil, nil, err
	}
	return model, matrix, nil
}
