package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/posting"
	"github.com/kailas-cloud/jobrec/internal/domain/search/request"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact/artifacttest"
	healthuc "github.com/kailas-cloud/jobrec/internal/usecase/health"
	"github.com/kailas-cloud/jobrec/internal/usecase/recommend"
)

// --- Mocks ---

type failingRecommender struct {
	err   error
	panic bool
}

func (f *failingRecommender) fail() error {
	if f.panic {
		panic("boom")
	}
	return f.err
}

func (f *failingRecommender) Recommend(context.Context, request.Request) (recommend.Response, error) {
	return recommend.Response{}, f.fail()
}

func (f *failingRecommender) Similar(context.Context, request.SimilarRequest) (recommend.Response, error) {
	return recommend.Response{}, f.fail()
}

func (f *failingRecommender) Posting(context.Context, int) (posting.Posting, error) {
	return posting.Posting{}, f.fail()
}

func (f *failingRecommender) Stats() (recommend.Stats, error) { return recommend.Stats{}, f.fail() }

func (f *failingRecommender) Ready(context.Context) error { return f.err }

// --- Helpers ---

func loadedService(t *testing.T) *recommend.Service {
	t.Helper()
	store := artifact.NewStore(artifacttest.NewMemBackend(), zap.NewNop())
	if _, err := store.Save(context.Background(), artifacttest.NewBundle(t)); err != nil {
		t.Fatal(err)
	}
	svc := recommend.New(store, nil, zap.NewNop())
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return svc
}

func newHandler(t *testing.T, opts Options) http.Handler {
	t.Helper()
	svc := loadedService(t)
	return NewServer(svc, healthuc.New(svc, nil), opts, zap.NewNop()).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code ErrorCode) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	if e := decode[ErrorResponse](t, rr); e.Code != code {
		t.Errorf("code = %s, want %s", e.Code, code)
	}
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

// --- Tests ---

func TestRecommend(t *testing.T) {
	h := newHandler(t, Options{})

	rr := do(t, h, "POST", "/v1/recommendations", `{"text":"Python developer, Django and SQL","k":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	resp := decode[RecommendationResponse](t, rr)
	if resp.NoMatches || len(resp.Results) == 0 || len(resp.Results) > 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Results[0].JobID != "101" || resp.Results[0].Rank != 1 {
		t.Errorf("first result = %+v, want job 101 at rank 1", resp.Results[0])
	}
	if resp.Version == "" {
		t.Error("expected artifact version")
	}
}

func TestRecommend_Filters(t *testing.T) {
	h := newHandler(t, Options{})

	rr := do(t, h, "POST", "/v1/recommendations",
		`{"text":"engineer","k":5,"filters":{"experience_levels":["senior"],"remote_only":true,"min_salary":100000}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	resp := decode[RecommendationResponse](t, rr)
	if len(resp.Results) == 0 {
		t.Fatal("expected filtered results")
	}
	for _, r := range resp.Results {
		if !r.Remote || r.ExperienceLevel != "senior" || r.Salary == nil || *r.Salary < 100000 {
			t.Errorf("result violates filters: %+v", r)
		}
	}
}

func TestRecommend_NoMatches(t *testing.T) {
	h := newHandler(t, Options{})

	rr := do(t, h, "POST", "/v1/recommendations", `{"text":""}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[RecommendationResponse](t, rr)
	if !resp.NoMatches || resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("expected no_matches with empty results array, got %+v", resp)
	}
}

func TestRecommend_BadRequests(t *testing.T) {
	h := newHandler(t, Options{})

	tests := []struct {
		name string
		body string
		code ErrorCode
	}{
		{"malformed json", `{"text":`, CodeBadRequest},
		{"unknown field", `{"query":"go"}`, CodeBadRequest},
		{"negative k", `{"text":"go","k":-1}`, CodeValidationFailed},
		{"min score above one", `{"text":"go","min_score":1.5}`, CodeValidationFailed},
		{"unknown level", `{"text":"go","filters":{"experience_levels":["guru"]}}`, CodeValidationFailed},
		{"negative salary", `{"text":"go","filters":{"min_salary":-1}}`, CodeValidationFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expectError(t, do(t, h, "POST", "/v1/recommendations", tc.body), http.StatusBadRequest, tc.code)
		})
	}
}

func TestRecommend_BodyTooLarge(t *testing.T) {
	h := newHandler(t, Options{})
	body := `{"text":"` + strings.Repeat("a", maxJSONBody) + `"}`

	expectError(t, do(t, h, "POST", "/v1/recommendations", body), http.StatusRequestEntityTooLarge, CodePayloadTooLarge)
}

func TestRecommendResume(t *testing.T) {
	h := newHandler(t, Options{})

	body, ct := multipartBody(t, "cv.txt", []byte("Senior Go engineer: gRPC, Kubernetes, distributed systems"),
		map[string]string{"k": "1"})
	req := httptest.NewRequest("POST", "/v1/recommendations/resume", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	resp := decode[RecommendationResponse](t, rr)
	if len(resp.Results) != 1 || resp.Results[0].JobID != "104" {
		t.Errorf("expected the Go posting, got %+v", resp.Results)
	}
}

func TestRecommendResume_Errors(t *testing.T) {
	h := newHandler(t, Options{})

	tests := []struct {
		name     string
		filename string
		content  []byte
		fields   map[string]string
		status   int
		code     ErrorCode
	}{
		{"missing file", "", nil, nil, http.StatusBadRequest, CodeValidationFailed},
		{"unsupported", "cv.bin", []byte{0x7f, 'E', 'L', 'F', 0, 1, 2}, nil, http.StatusUnsupportedMediaType, CodeUnsupportedFormat},
		{"bad k", "cv.txt", []byte("go"), map[string]string{"k": "many"}, http.StatusBadRequest, CodeBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartBody(t, tc.filename, tc.content, tc.fields)
			req := httptest.NewRequest("POST", "/v1/recommendations/resume", body)
			req.Header.Set("Content-Type", ct)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			expectError(t, rr, tc.status, tc.code)
		})
	}
}

func TestRecommendResume_TooLarge(t *testing.T) {
	h := newHandler(t, Options{MaxUpload: 1024})

	body, ct := multipartBody(t, "cv.txt", bytes.Repeat([]byte("go "), 1024), nil)
	req := httptest.NewRequest("POST", "/v1/recommendations/resume", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	expectError(t, rr, http.StatusRequestEntityTooLarge, CodePayloadTooLarge)
}

func TestGetPosting(t *testing.T) {
	h := newHandler(t, Options{})

	rr := do(t, h, "GET", "/v1/postings/1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	p := decode[PostingDTO](t, rr)
	if p.Index != 1 || p.JobID != "102" || p.Title != "Frontend Engineer" || !p.Remote {
		t.Errorf("unexpected posting: %+v", p)
	}

	expectError(t, do(t, h, "GET", "/v1/postings/abc", ""), http.StatusBadRequest, CodeBadRequest)
	expectError(t, do(t, h, "GET", "/v1/postings/99", ""), http.StatusNotFound, CodeNotFound)
	expectError(t, do(t, h, "GET", "/v1/postings/-1", ""), http.StatusNotFound, CodeNotFound)
}

func TestSimilarPostings(t *testing.T) {
	h := newHandler(t, Options{})

	rr := do(t, h, "GET", "/v1/postings/0/similar?k=2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	resp := decode[RecommendationResponse](t, rr)
	for _, r := range resp.Results {
		if r.Index == 0 {
			t.Error("similar postings must not include the posting itself")
		}
	}

	expectError(t, do(t, h, "GET", "/v1/postings/0/similar?k=x", ""), http.StatusBadRequest, CodeBadRequest)
	expectError(t, do(t, h, "GET", "/v1/postings/42/similar", ""), http.StatusNotFound, CodeNotFound)
}

func TestSimilarPostings_QueryFilters(t *testing.T) {
	h := newHandler(t, Options{})

	rr := do(t, h, "GET", "/v1/postings/0/similar?k=10&remote_only=true&experience_levels=senior&min_salary=100000", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	resp := decode[RecommendationResponse](t, rr)
	if len(resp.Results) == 0 {
		t.Fatal("expected remote senior postings")
	}
	for _, r := range resp.Results {
		if !r.Remote || r.ExperienceLevel != "senior" || r.Salary == nil {
			t.Errorf("result %d escaped the filter: %+v", r.Index, r)
		}
	}

	rr = do(t, h, "GET", "/v1/postings/0/similar?k=10&min_score=0.99", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	for _, r := range decode[RecommendationResponse](t, rr).Results {
		if r.Score < 0.99 {
			t.Errorf("result %d below min_score: %f", r.Index, r.Score)
		}
	}

	tests := []struct {
		query  string
		status int
		code   ErrorCode
	}{
		{"min_score=high", http.StatusBadRequest, CodeBadRequest},
		{"remote_only=maybe", http.StatusBadRequest, CodeBadRequest},
		{"min_salary=lots", http.StatusBadRequest, CodeBadRequest},
		{"min_score=1.5", http.StatusBadRequest, CodeValidationFailed},
		{"min_salary=-1", http.StatusBadRequest, CodeValidationFailed},
		{"experience_levels=wizard", http.StatusBadRequest, CodeValidationFailed},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			expectError(t, do(t, h, "GET", "/v1/postings/0/similar?"+tc.query, ""), tc.status, tc.code)
		})
	}
}

func TestGetModel(t *testing.T) {
	h := newHandler(t, Options{})

	rr := do(t, h, "GET", "/v1/model", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	m := decode[ModelDTO](t, rr)
	if m.Rows != len(artifacttest.Jobs) || m.Cols == 0 || m.Version == "" {
		t.Errorf("unexpected model: %+v", m)
	}
	if m.Normalizer.Language != "english" || !m.Normalizer.Stem {
		t.Errorf("unexpected normalizer: %+v", m.Normalizer)
	}
}

func TestHealthCheck(t *testing.T) {
	rr := do(t, newHandler(t, Options{}), "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if h := decode[HealthResponse](t, rr); h.Status != "ok" || h.Checks["model"] != "ok" {
		t.Errorf("unexpected health: %+v", h)
	}

	rec := &failingRecommender{err: domain.ErrModelNotLoaded}
	unloaded := NewServer(rec, healthuc.New(rec, nil), Options{}, zap.NewNop()).Handler()
	rr = do(t, unloaded, "GET", "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		rec    *failingRecommender
		status int
		code   ErrorCode
	}{
		{"not loaded", &failingRecommender{err: domain.ErrModelNotLoaded}, http.StatusServiceUnavailable, CodeModelNotLoaded},
		{"corrupt artifact", &failingRecommender{err: domain.ErrArtifactCorruption}, http.StatusInternalServerError, CodeInternalError},
		{"unexpected", &failingRecommender{err: errors.New("disk on fire")}, http.StatusInternalServerError, CodeInternalError},
		{"panic", &failingRecommender{panic: true}, http.StatusInternalServerError, CodeInternalError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewServer(tc.rec, healthuc.New(tc.rec, nil), Options{}, zap.NewNop()).Handler()
			rr := do(t, h, "POST", "/v1/recommendations", `{"text":"go"}`)
			expectError(t, rr, tc.status, tc.code)
			if strings.Contains(rr.Body.String(), "disk on fire") {
				t.Error("internal error details leaked to the client")
			}
		})
	}
}

func TestErrorLogging_CarriesRequestID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	rec := &failingRecommender{err: errors.New("disk on fire")}
	h := NewServer(rec, healthuc.New(rec, nil), Options{}, zap.New(core)).Handler()

	req := httptest.NewRequest("GET", "/v1/postings/3", http.NoBody)
	req.Header.Set("X-Request-Id", "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	expectError(t, rr, http.StatusInternalServerError, CodeInternalError)

	entries := logs.FilterMessage("internal error").All()
	if len(entries) != 1 {
		t.Fatalf("internal error entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-42" {
		t.Errorf("request_id = %v, want req-42", fields["request_id"])
	}
	if fields["posting_index"] != int64(3) {
		t.Errorf("posting_index = %v, want 3", fields["posting_index"])
	}

	// Rejections are logged at debug level through the same request logger.
	rec.err = domain.ErrModelNotLoaded
	req = httptest.NewRequest("GET", "/v1/model", http.NoBody)
	req.Header.Set("X-Request-Id", "req-43")
	h.ServeHTTP(httptest.NewRecorder(), req)

	rejected := logs.FilterMessage("request rejected").All()
	if len(rejected) != 1 || rejected[0].ContextMap()["request_id"] != "req-43" {
		t.Errorf("rejection not logged with request_id: %+v", rejected)
	}
}

func TestHandler_Auth(t *testing.T) {
	h := newHandler(t, Options{APIKeys: []string{"secret"}})

	expectError(t, do(t, h, "GET", "/v1/model", ""), http.StatusUnauthorized, CodeUnauthorized)
	if rr := do(t, h, "GET", "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("health must bypass auth, got %d", rr.Code)
	}

	req := httptest.NewRequest("GET", "/v1/model", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("authorized request: got %d", rr.Code)
	}
}

func TestHandler_UnknownRoute(t *testing.T) {
	expectError(t, do(t, newHandler(t, Options{}), "GET", "/v2/anything", ""), http.StatusNotFound, CodeNotFound)
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("héllo", 2); got != "h" {
		t.Errorf("truncateText split a rune: %q", got)
	}
	if got := truncateText("go", 10); got != "go" {
		t.Errorf("short text changed: %q", got)
	}
}
