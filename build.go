package jobrec

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/jobrec/internal/domain/posting"
	"github.com/kailas-cloud/jobrec/internal/domain/text"
	builduc "github.com/kailas-cloud/jobrec/internal/usecase/build"
)

// sliceSource serves an in-memory corpus to the build pipeline.
type sliceSource struct {
	corpus posting.Corpus
}

func (s sliceSource) Load(context.Context) (posting.Corpus, error) { return s.corpus, nil }

// Build fits the vector space over postings and publishes the artifact to
// the configured store. Row order of postings becomes the corpus index.
func Build(ctx context.Context, postings []Posting, opts ...Option) (m Manifest, err error) {
	cfg := newEngineConfig(opts)
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return Manifest{}, err
	}
	defer func(start time.Time) { obs.observe("build", start, err) }(time.Now())

	domainPostings := make([]posting.Posting, len(postings))
	for i, p := range postings {
		dp, err := toDomainPosting(p)
		if err != nil {
			return Manifest{}, fmt.Errorf("posting %d: %w", i, err)
		}
		domainPostings[i] = dp
	}
	corpus, err := posting.NewCorpus(domainPostings)
	if err != nil {
		return Manifest{}, err
	}

	normalizer, err := text.NewNormalizer(cfg.cfg.Text.Normalizer())
	if err != nil {
		return Manifest{}, err
	}
	store, deps, err := openStore(ctx, cfg)
	if err != nil {
		return Manifest{}, err
	}
	defer deps.Close()

	svc := builduc.New(sliceSource{corpus: corpus}, store, normalizer, cfg.cfg.Model.FitOptions(), nil, cfg.logger)
	am, err := svc.Run(ctx)
	if err != nil {
		return Manifest{}, err
	}
	return fromManifest(am), nil
}
