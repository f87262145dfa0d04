package jobrec

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/jobrec/internal/app"
	"github.com/kailas-cloud/jobrec/internal/domain/search/filter"
	"github.com/kailas-cloud/jobrec/internal/domain/search/request"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
	recommenduc "github.com/kailas-cloud/jobrec/internal/usecase/recommend"
)

// Engine answers recommendation queries from a loaded artifact.
// It is safe for concurrent use; Reload swaps the artifact without blocking
// queries.
type Engine struct {
	svc    *recommenduc.Service
	limits request.Limits
	obs    *observer
	deps   *app.Deps
}

// Open connects to the artifact store and loads the published artifact.
func Open(opts ...Option) (*Engine, error) {
	cfg := newEngineConfig(opts)
	ctx := context.Background()

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	store, deps, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc := recommenduc.New(store, nil, cfg.logger)
	start := time.Now()
	err = svc.Load(ctx)
	obs.observe("open", start, err)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("jobrec: load artifact: %w", err)
	}
	return &Engine{svc: svc, limits: cfg.limits, obs: obs, deps: deps}, nil
}

func openStore(ctx context.Context, cfg *engineConfig) (artifact.Store, *app.Deps, error) {
	deps := app.New(cfg.cfg, cfg.logger)
	if cfg.store != nil {
		return cfg.store, deps, nil
	}
	store, err := deps.ArtifactStore(ctx)
	if err != nil {
		deps.Close()
		return nil, nil, fmt.Errorf("jobrec: open artifact store: %w", err)
	}
	return store, deps, nil
}

// Close releases store connections.
func (e *Engine) Close() {
	e.deps.Close()
}

// Recommend ranks postings against text and returns at most k of them.
// k == 0 uses the default; text without known terms yields NoMatches.
func (e *Engine) Recommend(ctx context.Context, text string, k int) (Recommendations, error) {
	return e.RecommendFiltered(ctx, text, k, Filter{})
}

// RecommendFiltered is Recommend restricted by f.
func (e *Engine) RecommendFiltered(ctx context.Context, text string, k int, f Filter) (recs Recommendations, err error) {
	defer func(start time.Time) { e.obs.observe("recommend", start, err) }(time.Now())

	flt, err := filter.New(f.ExperienceLevels, f.MinSalary, f.RemoteOnly)
	if err != nil {
		return Recommendations{}, err
	}
	req, err := request.New(text, k, flt, f.MinScore, e.limits)
	if err != nil {
		return Recommendations{}, err
	}
	resp, err := e.svc.Recommend(ctx, req)
	if err != nil {
		return Recommendations{}, err
	}
	return fromResponse(resp), nil
}

// Similar returns up to k postings closest to the posting at index,
// excluding that posting.
func (e *Engine) Similar(ctx context.Context, index, k int) (recs Recommendations, err error) {
	defer func(start time.Time) { e.obs.observe("similar", start, err) }(time.Now())

	req, err := request.NewSimilar(index, k, filter.Filter{}, 0, e.limits)
	if err != nil {
		return Recommendations{}, err
	}
	resp, err := e.svc.Similar(ctx, req)
	if err != nil {
		return Recommendations{}, err
	}
	return fromResponse(resp), nil
}

// Posting returns the posting at corpus row index.
func (e *Engine) Posting(ctx context.Context, index int) (Posting, error) {
	p, err := e.svc.Posting(ctx, index)
	if err != nil {
		return Posting{}, err
	}
	return fromDomainPosting(p), nil
}

// Manifest describes the loaded artifact.
func (e *Engine) Manifest() Manifest {
	st, err := e.svc.Stats()
	if err != nil {
		return Manifest{}
	}
	return Manifest{Version: st.Version, CreatedAt: st.CreatedAt, Postings: st.Rows, Terms: st.Cols, NonZeros: st.NNZ}
}

// Reload loads the currently published artifact. On failure the engine
// keeps serving the previous one.
func (e *Engine) Reload(ctx context.Context) (err error) {
	defer func(start time.Time) { e.obs.observe("reload", start, err) }(time.Now())
	return e.svc.Load(ctx)
}
