// Package artifacttest builds small bundles and an in-memory backend for tests.
package artifacttest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/posting"
	"github.com/kailas-cloud/jobrec/internal/domain/text"
	"github.com/kailas-cloud/jobrec/internal/domain/vectorspace"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
)

// Jobs is the fixture corpus: id, title, description, skills.
var Jobs = [][4]string{
	{"101", "Python Developer", "Build backend APIs in Python and Django", "python, django, sql"},
	{"102", "Frontend Engineer", "React and TypeScript single page apps", "javascript, react"},
	{"103", "Data Scientist", "Machine learning models in Python", "python, statistics"},
	{"104", "Go Engineer", "Distributed systems and gRPC services in Go", "golang, kubernetes"},
}

// NewBundle fits the fixture corpus with the default normalizer.
func NewBundle(t testing.TB) *artifact.Bundle {
	t.Helper()
	b, err := Build(Jobs)
	if err != nil {
		t.Fatalf("build fixture bundle: %v", err)
	}
	return b
}

// Build fits jobs into a bundle. Odd rows are remote senior postings with a
// salary; even rows are onsite juniors without one.
func Build(jobs [][4]string) (*artifact.Bundle, error) {
	n, err := text.NewNormalizer(text.DefaultConfig())
	if err != nil {
		return nil, err
	}
	postings := make([]posting.Posting, len(jobs))
	docs := make([][]string, len(jobs))
	for i, j := range jobs {
		f := posting.Fields{ID: j[0], Title: j[1], Description: j[2], Skills: j[3], Company: "Acme", URL: "https://jobs.example/" + j[0]}
		if i%2 == 1 {
			salary := float64(100000 + i*1000)
			f.Salary, f.Remote, f.Experience = &salary, true, "Mid-Senior level"
		} else {
			f.Experience = "Entry level"
		}
		p, err := posting.New(f)
		if err != nil {
			return nil, err
		}
		normalized := n.NormalizeFields(p.Text()...)
		postings[i] = p.WithNormalized(normalized)
		docs[i] = strings.Fields(normalized)
	}
	corpus, err := posting.NewCorpus(postings)
	if err != nil {
		return nil, err
	}
	model, matrix, err := vectorspace.Fit(docs, vectorspace.FitOptions{})
	if err != nil {
		return nil, err
	}
	return &artifact.Bundle{Corpus: corpus, Model: model, Matrix: matrix, Normalizer: n.Config()}, nil
}

// MemBackend is an in-memory artifact.Backend.
type MemBackend struct {
	mu      sync.Mutex
	parts   map[string][]byte
	current string

	// FailPut makes PutPart fail for the named part.
	FailPut string
}

// NewMemBackend creates an empty backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{parts: make(map[string][]byte)}
}

func (m *MemBackend) PutPart(_ context.Context, version, part string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if part == m.FailPut {
		return fmt.Errorf("put %s: injected failure", part)
	}
	m.parts[version+"/"+part] = append([]byte(nil), data...)
	return nil
}

func (m *MemBackend) GetPart(_ context.Context, version, part string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.parts[version+"/"+part]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrNotFound, version, part)
	}
	return data, nil
}

func (m *MemBackend) Publish(_ context.Context, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = version
	return nil
}

func (m *MemBackend) CurrentVersion(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == "" {
		return "", fmt.Errorf("%w: nothing published", domain.ErrNotFound)
	}
	return m.current, nil
}

// Mutate rewrites a stored part in place.
func (m *MemBackend) Mutate(version, part string, fn func([]byte) []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parts[version+"/"+part] = fn(m.parts[version+"/"+part])
}
