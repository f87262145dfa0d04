// Package recommend answers recommendation requests against the loaded artifact.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/posting"
	"github.com/kailas-cloud/jobrec/internal/domain/ranking"
	"github.com/kailas-cloud/jobrec/internal/domain/search/filter"
	"github.com/kailas-cloud/jobrec/internal/domain/search/request"
	"github.com/kailas-cloud/jobrec/internal/domain/search/result"
	"github.com/kailas-cloud/jobrec/internal/domain/text"
	"github.com/kailas-cloud/jobrec/internal/domain/vectorspace"
	"github.com/kailas-cloud/jobrec/internal/metrics"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
	"github.com/kailas-cloud/jobrec/internal/repository/reccache"
)

// Response is the outcome of a recommendation request.
// NoMatches is set when the text shares no term with the vocabulary.
type Response struct {
	Version   string
	NoMatches bool
	Results   []result.Result
}

// Stats describes the loaded artifact.
type Stats struct {
	Version     string
	CreatedAt   time.Time
	LoadedAt    time.Time
	Rows        int
	Cols        int
	NNZ         int
	MaxFeatures int
	Normalizer  text.Config
}

// snapshot is one loaded artifact. It is never mutated after publication.
type snapshot struct {
	bundle     *artifact.Bundle
	normalizer *text.Normalizer
	loadedAt   time.Time
}

func (s *snapshot) version() string { return s.bundle.Manifest.Version }

// Service serves recommendations from an atomically swapped snapshot.
type Service struct {
	store  Store
	cache  Cache
	logger *zap.Logger

	current atomic.Pointer[snapshot]
}

// New creates a recommend service. cache can be nil.
func New(store Store, cache Cache, logger *zap.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// Load reads the current artifact and swaps it in. On failure the previous
// snapshot, if any, stays in service.
func (s *Service) Load(ctx context.Context) error {
	b, err := s.store.Load(ctx)
	if err != nil {
		metrics.ModelReloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("load artifact: %w", err)
	}
	n, err := text.NewNormalizer(b.Normalizer)
	if err != nil {
		metrics.ModelReloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: normalizer config: %w", domain.ErrArtifactCorruption, err)
	}

	s.current.Store(&snapshot{bundle: b, normalizer: n, loadedAt: time.Now()})
	metrics.ModelReloadsTotal.WithLabelValues("ok").Inc()
	metrics.CorpusRows.Set(float64(b.Matrix.Rows()))
	metrics.VocabularySize.Set(float64(b.Matrix.Cols()))

	s.logger.Info("Artifact loaded",
		zap.String("version", b.Manifest.Version),
		zap.Int("rows", b.Matrix.Rows()),
		zap.Int("cols", b.Matrix.Cols()),
	)
	return nil
}

// Reload loads the current artifact unless version is already serving.
// An empty version always reloads.
func (s *Service) Reload(ctx context.Context, version string) error {
	if snap := s.current.Load(); snap != nil && version != "" && snap.version() == version {
		s.logger.Debug("Artifact already loaded", zap.String("version", version))
		return nil
	}
	if err := s.Load(ctx); err != nil {
		s.logger.Error("Artifact reload failed, keeping previous", zap.Error(err))
		return err
	}
	return nil
}

// Ready reports whether an artifact is loaded.
func (s *Service) Ready(_ context.Context) error {
	if s.current.Load() == nil {
		return domain.ErrModelNotLoaded
	}
	return nil
}

// Recommend ranks postings against free text.
func (s *Service) Recommend(ctx context.Context, req request.Request) (Response, error) {
	snap, err := s.snapshot()
	if err != nil {
		return Response{}, err
	}
	start := time.Now()
	defer func() { metrics.RecommendDuration.WithLabelValues("text").Observe(time.Since(start).Seconds()) }()

	tokens := snap.normalizer.Normalize(req.Text())
	q, err := snap.bundle.Model.Project(tokens)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			metrics.RecommendRequestsTotal.WithLabelValues("text", "empty").Inc()
			metrics.RecommendEmptyTotal.Inc()
			return Response{Version: snap.version(), NoMatches: true, Results: []result.Result{}}, nil
		}
		metrics.RecommendRequestsTotal.WithLabelValues("text", "error").Inc()
		return Response{}, fmt.Errorf("project query: %w", err)
	}

	var key string
	if s.cache != nil {
		key = reccache.Key(snap.version(), tokens, req.K(), req.Filters(), req.MinScore())
		if hits, ok := s.cache.Get(ctx, key); ok {
			metrics.RecommendRequestsTotal.WithLabelValues("text", "ok").Inc()
			return s.respond(snap, hits), nil
		}
	}

	hits, err := s.rank(snap, q, req.K(), req.Filters(), req.MinScore(), -1)
	if err != nil {
		metrics.RecommendRequestsTotal.WithLabelValues("text", "error").Inc()
		return Response{}, err
	}
	if s.cache != nil {
		s.cache.Put(ctx, key, hits)
	}

	metrics.RecommendRequestsTotal.WithLabelValues("text", "ok").Inc()
	return s.respond(snap, hits), nil
}

// Similar ranks postings against the stored vector of another posting,
// excluding that posting itself.
func (s *Service) Similar(_ context.Context, req request.SimilarRequest) (Response, error) {
	snap, err := s.snapshot()
	if err != nil {
		return Response{}, err
	}
	start := time.Now()
	defer func() { metrics.RecommendDuration.WithLabelValues("similar").Observe(time.Since(start).Seconds()) }()

	if req.Index() >= snap.bundle.Matrix.Rows() {
		metrics.RecommendRequestsTotal.WithLabelValues("similar", "error").Inc()
		return Response{}, fmt.Errorf("%w: posting %d", domain.ErrNotFound, req.Index())
	}

	q := snap.bundle.Matrix.Row(req.Index())
	if q.IsZero() {
		metrics.RecommendRequestsTotal.WithLabelValues("similar", "empty").Inc()
		return Response{Version: snap.version(), NoMatches: true, Results: []result.Result{}}, nil
	}

	hits, err := s.rank(snap, q, req.K(), req.Filters(), req.MinScore(), req.Index())
	if err != nil {
		metrics.RecommendRequestsTotal.WithLabelValues("similar", "error").Inc()
		return Response{}, err
	}
	metrics.RecommendRequestsTotal.WithLabelValues("similar", "ok").Inc()
	return s.respond(snap, hits), nil
}

// Posting returns the corpus entry at index.
func (s *Service) Posting(_ context.Context, index int) (posting.Posting, error) {
	snap, err := s.snapshot()
	if err != nil {
		return posting.Posting{}, err
	}
	p, ok := snap.bundle.Corpus.At(index)
	if !ok {
		return posting.Posting{}, fmt.Errorf("%w: posting %d", domain.ErrNotFound, index)
	}
	return p, nil
}

// Stats describes the loaded artifact.
func (s *Service) Stats() (Stats, error) {
	snap, err := s.snapshot()
	if err != nil {
		return Stats{}, err
	}
	b := snap.bundle
	return Stats{
		Version:     b.Manifest.Version,
		CreatedAt:   b.Manifest.CreatedAt,
		LoadedAt:    snap.loadedAt,
		Rows:        b.Matrix.Rows(),
		Cols:        b.Matrix.Cols(),
		NNZ:         b.Matrix.NNZ(),
		MaxFeatures: b.Model.MaxFeatures(),
		Normalizer:  b.Normalizer,
	}, nil
}

func (s *Service) snapshot() (*snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, domain.ErrModelNotLoaded
	}
	return snap, nil
}

// rank selects the top k eligible rows. exclude is a row to skip, or -1.
// Hits below minScore are dropped after selection.
func (s *Service) rank(
	snap *snapshot, q vectorspace.SparseVector, k int, f filter.Filter, minScore float64, exclude int,
) ([]ranking.Hit, error) {
	var keep func(row int) bool
	if !f.IsEmpty() || exclude >= 0 {
		keep = func(row int) bool {
			if row == exclude {
				return false
			}
			if f.IsEmpty() {
				return true
			}
			p, _ := snap.bundle.Corpus.At(row)
			return f.Matches(&p)
		}
	}

	hits, err := ranking.RankFunc(q, snap.bundle.Matrix, k, keep)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	if minScore > 0 {
		filtered := hits[:0]
		for _, h := range hits {
			if h.Score >= minScore {
				filtered = append(filtered, h)
			}
		}
		hits = filtered
	}
	return hits, nil
}

func (s *Service) respond(snap *snapshot, hits []ranking.Hit) Response {
	results := make([]result.Result, 0, len(hits))
	for i, h := range hits {
		p, ok := snap.bundle.Corpus.At(h.Index)
		if !ok {
			// unreachable while cache keys carry the version
			continue
		}
		results = append(results, result.New(i+1, h.Index, h.Score, p))
	}
	return Response{Version: snap.version(), Results: results}
}
