// Package build runs the offline pipeline: load postings, normalize, fit the
// vector space and publish the artifact.
package build

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/domain/posting"
	"github.com/kailas-cloud/jobrec/internal/domain/text"
	"github.com/kailas-cloud/jobrec/internal/domain/vectorspace"
	"github.com/kailas-cloud/jobrec/internal/metrics"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
)

// ctxCheckEvery is how many postings are normalized between context checks.
const ctxCheckEvery = 1024

// Service builds and publishes artifacts.
type Service struct {
	source     Source
	store      Store
	normalizer *text.Normalizer
	fit        vectorspace.FitOptions
	notifier   Notifier
	logger     *zap.Logger
}

// New creates a build service. notifier can be nil.
func New(
	source Source, store Store, normalizer *text.Normalizer,
	fit vectorspace.FitOptions, notifier Notifier, logger *zap.Logger,
) *Service {
	return &Service{
		source:     source,
		store:      store,
		normalizer: normalizer,
		fit:        fit,
		notifier:   notifier,
		logger:     logger,
	}
}

// Run executes one build. Any stage failure aborts the build and leaves the
// previously published artifact current.
func (s *Service) Run(ctx context.Context) (artifact.Manifest, error) {
	m, err := s.run(ctx)
	if err != nil {
		metrics.BuildsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Build failed", zap.Error(err))
		return artifact.Manifest{}, err
	}
	metrics.BuildsTotal.WithLabelValues("ok").Inc()

	if s.notifier != nil {
		if err := s.notifier.Published(ctx, m); err != nil {
			s.logger.Warn("Failed to announce artifact", zap.String("version", m.Version), zap.Error(err))
		}
	}
	return m, nil
}

func (s *Service) run(ctx context.Context) (artifact.Manifest, error) {
	start := time.Now()

	corpus, err := s.source.Load(ctx)
	if err != nil {
		return artifact.Manifest{}, fmt.Errorf("load corpus: %w", err)
	}
	s.stageDone("load", start, zap.Int("postings", corpus.Len()))

	stageStart := time.Now()
	corpus, docs, err := s.normalize(ctx, corpus)
	if err != nil {
		return artifact.Manifest{}, err
	}
	s.stageDone("normalize", stageStart)

	stageStart = time.Now()
	model, matrix, err := vectorspace.Fit(docs, s.fit)
	if err != nil {
		return artifact.Manifest{}, fmt.Errorf("fit: %w", err)
	}
	s.stageDone("fit", stageStart,
		zap.Int("vocabulary", model.Vocabulary().Size()),
		zap.Int("nnz", matrix.NNZ()),
	)

	stageStart = time.Now()
	m, err := s.store.Save(ctx, &artifact.Bundle{
		Corpus:     corpus,
		Model:      model,
		Matrix:     matrix,
		Normalizer: s.normalizer.Config(),
	})
	if err != nil {
		return artifact.Manifest{}, fmt.Errorf("save artifact: %w", err)
	}
	s.stageDone("save", stageStart, zap.String("version", m.Version))

	s.logger.Info("Build complete",
		zap.String("version", m.Version),
		zap.Int("rows", m.Rows),
		zap.Int("cols", m.Cols),
		zap.Duration("duration", time.Since(start)),
	)
	return m, nil
}

// normalize stores the normalized text on every posting and returns the
// token streams to fit on. Tokens are split from the stored text so the fit
// input and the persisted corpus can never disagree.
func (s *Service) normalize(ctx context.Context, c posting.Corpus) (posting.Corpus, [][]string, error) {
	all := c.All()
	docs := make([][]string, len(all))
	for i := range all {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return posting.Corpus{}, nil, fmt.Errorf("normalize: %w", err)
			}
		}
		normalized := s.normalizer.NormalizeFields(all[i].Text()...)
		all[i] = all[i].WithNormalized(normalized)
		docs[i] = strings.Fields(normalized)
	}
	out, err := posting.NewCorpus(all)
	if err != nil {
		return posting.Corpus{}, nil, fmt.Errorf("normalize: %w", err)
	}
	return out, docs, nil
}

func (s *Service) stageDone(stage string, start time.Time, fields ...zap.Field) {
	d := time.Since(start)
	metrics.BuildStageDuration.WithLabelValues(stage).Observe(d.Seconds())
	s.logger.Info("Build stage done", append([]zap.Field{zap.String("stage", stage), zap.Duration("duration", d)}, fields...)...)
}
