// Package chi exposes the recommendation use cases over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/posting"
	"github.com/kailas-cloud/jobrec/internal/domain/search/filter"
	"github.com/kailas-cloud/jobrec/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/jobrec/internal/logger"
	"github.com/kailas-cloud/jobrec/internal/metrics"
	"github.com/kailas-cloud/jobrec/internal/repository/resume"
	healthuc "github.com/kailas-cloud/jobrec/internal/usecase/health"
	"github.com/kailas-cloud/jobrec/internal/usecase/recommend"
)

// maxJSONBody bounds JSON request bodies; the text field is the bulk of it.
const maxJSONBody = 2 * request.MaxTextLength

// Recommender is the recommendation use case.
type Recommender interface {
	Recommend(ctx context.Context, req request.Request) (recommend.Response, error)
	Similar(ctx context.Context, req request.SimilarRequest) (recommend.Response, error)
	Posting(ctx context.Context, index int) (posting.Posting, error)
	Stats() (recommend.Stats, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Options configures the HTTP surface.
type Options struct {
	Limits    request.Limits
	MaxUpload int64 // bytes, resume uploads
	APIKeys   []string
}

// Server serves the recommendation API.
type Server struct {
	recommender   Recommender
	health        HealthChecker
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(rec Recommender, health HealthChecker, opts Options, logger *zap.Logger) *Server {
	if opts.MaxUpload <= 0 || opts.MaxUpload > resume.MaxSize {
		opts.MaxUpload = resume.MaxSize
	}
	return &Server{
		recommender:   rec,
		health:        health,
		opts:          opts,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Handler returns the router with the middleware chain installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.opts.APIKeys))
	r.Use(metrics.Middleware("/metrics", "/health"))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/recommendations", s.Recommend)
		r.Post("/recommendations/resume", s.RecommendResume)
		r.Get("/postings/{index}", s.GetPosting)
		r.Get("/postings/{index}/similar", s.SimilarPostings)
		r.Get("/model", s.GetModel)
	})
	return r
}

// Recommend handles POST /v1/recommendations.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var body RecommendationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.handleDomainError(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	filters, err := filtersFromDTO(body.Filters)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	req, err := request.New(body.Text, derefInt(body.K), filters, derefFloat(body.MinScore), s.opts.Limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp, err := s.recommender.Recommend(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendationToDTO(resp))
}

// RecommendResume handles POST /v1/recommendations/resume (multipart: file, k).
func (s *Server) RecommendResume(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload+1<<20)
	if err := r.ParseMultipartForm(s.opts.MaxUpload); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.handleDomainError(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	var k int
	if err := runtime.BindQueryParameter("form", true, false, "k", r.MultipartForm.Value, &k); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter k")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUpload+1))
	if err != nil {
		s.handleDomainError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > s.opts.MaxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "resume too large")
		return
	}

	text, err := resume.ExtractFile(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	req, err := request.New(truncateText(text, request.MaxTextLength), k, filter.Filter{}, 0, s.opts.Limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp, err := s.recommender.Recommend(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendationToDTO(resp))
}

// GetPosting handles GET /v1/postings/{index}.
func (s *Server) GetPosting(w http.ResponseWriter, r *http.Request) {
	index, ok := s.bindIndex(w, r)
	if !ok {
		return
	}
	r = r.WithContext(logpkg.With(r.Context(), zap.Int("posting_index", index)))

	p, err := s.recommender.Posting(r.Context(), index)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, postingToDTO(index, &p))
}

// similarParams are the query parameters of the similar-postings route.
type similarParams struct {
	K                *int
	MinScore         *float64
	MinSalary        *float64
	RemoteOnly       *bool
	ExperienceLevels []string
}

// bindSimilarParams returns the name of the first malformed parameter, if any.
func bindSimilarParams(r *http.Request) (similarParams, string) {
	var p similarParams
	q := r.URL.Query()
	binds := []struct {
		name string
		dest any
	}{
		{"k", &p.K},
		{"min_score", &p.MinScore},
		{"min_salary", &p.MinSalary},
		{"remote_only", &p.RemoteOnly},
		{"experience_levels", &p.ExperienceLevels},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return similarParams{}, b.name
		}
	}
	return p, ""
}

// SimilarPostings handles GET /v1/postings/{index}/similar.
// Query: k, min_score, min_salary, remote_only, experience_levels (repeated).
func (s *Server) SimilarPostings(w http.ResponseWriter, r *http.Request) {
	index, ok := s.bindIndex(w, r)
	if !ok {
		return
	}
	r = r.WithContext(logpkg.With(r.Context(), zap.Int("posting_index", index)))

	params, bad := bindSimilarParams(r)
	if bad != "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter "+bad)
		return
	}
	filters, err := filter.New(params.ExperienceLevels, params.MinSalary, derefBool(params.RemoteOnly))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	req, err := request.NewSimilar(index, derefInt(params.K), filters, derefFloat(params.MinScore), s.opts.Limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp, err := s.recommender.Similar(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendationToDTO(resp))
}

// GetModel handles GET /v1/model.
func (s *Server) GetModel(w http.ResponseWriter, r *http.Request) {
	st, err := s.recommender.Stats()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modelToDTO(st))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	// A degraded service still answers recommendations.
	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func (s *Server) bindIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	var index int
	err := runtime.BindStyledParameterWithOptions("simple", "index", chi.URLParam(r, "index"), &index,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter index")
		return 0, false
	}
	if index < 0 {
		s.handleDomainError(w, r, fmt.Errorf("%w: posting %d", domain.ErrNotFound, index))
		return 0, false
	}
	return index, true
}

// truncateText cuts s to at most n bytes, dropping a split trailing rune.
func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefBool(p *bool) bool {
	return p != nil && *p
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
