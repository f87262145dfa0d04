package build

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/posting"
	"github.com/kailas-cloud/jobrec/internal/domain/text"
	"github.com/kailas-cloud/jobrec/internal/domain/vectorspace"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact/artifacttest"
)

// --- Mocks ---

type mockSource struct {
	corpus posting.Corpus
	err    error
}

func (m *mockSource) Load(_ context.Context) (posting.Corpus, error) { return m.corpus, m.err }

type mockNotifier struct {
	published []artifact.Manifest
	err       error
}

func (m *mockNotifier) Published(_ context.Context, man artifact.Manifest) error {
	m.published = append(m.published, man)
	return m.err
}

func rawCorpus(t *testing.T, jobs [][4]string) posting.Corpus {
	t.Helper()
	ps := make([]posting.Posting, len(jobs))
	for i, j := range jobs {
		p, err := posting.New(posting.Fields{ID: j[0], Title: j[1], Description: j[2], Skills: j[3]})
		if err != nil {
			t.Fatal(err)
		}
		ps[i] = p
	}
	c, err := posting.NewCorpus(ps)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func newService(t *testing.T, src Source, backend artifact.Backend, n Notifier) (*Service, *artifact.BlobStore) {
	t.Helper()
	norm, err := text.NewNormalizer(text.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	store := artifact.NewStore(backend, zap.NewNop())
	return New(src, store, norm, vectorspace.FitOptions{}, n, zap.NewNop()), store
}

// --- Tests ---

func TestRun_PublishesLoadableArtifact(t *testing.T) {
	notifier := &mockNotifier{}
	svc, store := newService(t, &mockSource{corpus: rawCorpus(t, artifacttest.Jobs)}, artifacttest.NewMemBackend(), notifier)

	m, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Rows != len(artifacttest.Jobs) {
		t.Errorf("rows = %d, want %d", m.Rows, len(artifacttest.Jobs))
	}
	if len(notifier.published) != 1 || notifier.published[0].Version != m.Version {
		t.Errorf("notifier got %v, want one event for %s", notifier.published, m.Version)
	}

	b, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Matrix.Rows() != b.Corpus.Len() {
		t.Fatalf("matrix rows %d != corpus %d", b.Matrix.Rows(), b.Corpus.Len())
	}
	for i := 0; i < b.Corpus.Len(); i++ {
		p, _ := b.Corpus.At(i)
		if p.ID() != artifacttest.Jobs[i][0] {
			t.Errorf("row %d id = %s, want %s", i, p.ID(), artifacttest.Jobs[i][0])
		}
		if p.Normalized() == "" {
			t.Errorf("row %d has no normalized text", i)
		}
	}
}

func TestRun_FitTokensMatchStoredText(t *testing.T) {
	svc, store := newService(t, &mockSource{corpus: rawCorpus(t, artifacttest.Jobs)}, artifacttest.NewMemBackend(), nil)
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	b, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < b.Corpus.Len(); i++ {
		p, _ := b.Corpus.At(i)
		for _, tok := range strings.Fields(p.Normalized()) {
			if _, ok := b.Model.Vocabulary().Index(tok); !ok {
				t.Errorf("row %d token %q missing from vocabulary", i, tok)
			}
		}
	}
}

func TestRun_MaxFeatures(t *testing.T) {
	norm, _ := text.NewNormalizer(text.DefaultConfig())
	store := artifact.NewStore(artifacttest.NewMemBackend(), zap.NewNop())
	svc := New(&mockSource{corpus: rawCorpus(t, artifacttest.Jobs)}, store, norm,
		vectorspace.FitOptions{MaxFeatures: 5}, nil, zap.NewNop())

	m, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if m.Cols != 5 {
		t.Errorf("cols = %d, want 5", m.Cols)
	}
}

func TestRun_SourceError(t *testing.T) {
	notifier := &mockNotifier{}
	svc, _ := newService(t, &mockSource{err: errors.New("file not found")}, artifacttest.NewMemBackend(), notifier)

	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(notifier.published) != 0 {
		t.Error("failed build must not be announced")
	}
}

func TestRun_EmptyCorpus(t *testing.T) {
	svc, _ := newService(t, &mockSource{}, artifacttest.NewMemBackend(), nil)

	_, err := svc.Run(context.Background())
	if !errors.Is(err, domain.ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
}

func TestRun_StoreErrorKeepsPrevious(t *testing.T) {
	backend := artifacttest.NewMemBackend()
	svc, store := newService(t, &mockSource{corpus: rawCorpus(t, artifacttest.Jobs)}, backend, nil)
	first, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	backend.FailPut = artifact.PartMatrix
	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected save error")
	}

	m, err := store.Current(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if m.Version != first.Version {
		t.Errorf("current = %s, want previous %s", m.Version, first.Version)
	}
}

func TestRun_NotifierErrorIsNotFatal(t *testing.T) {
	notifier := &mockNotifier{err: errors.New("broker down")}
	svc, _ := newService(t, &mockSource{corpus: rawCorpus(t, artifacttest.Jobs)}, artifacttest.NewMemBackend(), notifier)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRun_Canceled(t *testing.T) {
	svc, _ := newService(t, &mockSource{corpus: rawCorpus(t, artifacttest.Jobs)}, artifacttest.NewMemBackend(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
