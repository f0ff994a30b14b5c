package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrec/internal/domain"
	"github.com/kailas-cloud/newsrec/internal/domain/article"
	healthuc "github.com/kailas-cloud/newsrec/internal/usecase/health"
	"github.com/kailas-cloud/newsrec/internal/usecase/recommend"
)

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func TestListArticles(t *testing.T) {
	env := newTestEnv(t)
	env.articles.list = []article.Article{
		{ID: 1, Heading: "Asian markets rally", Content: "Stocks rose.", Category: "Business"},
	}

	rr := env.do(http.MethodGet, "/api/articles?limit=10&offset=20")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	if env.articles.gotLimit != 10 || env.articles.gotOffset != 20 {
		t.Errorf("params not bound: limit=%d offset=%d", env.articles.gotLimit, env.articles.gotOffset)
	}

	var raw []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw) != 1 || raw[0]["newsType"] != "Business" || raw[0]["heading"] != "Asian markets rally" {
		t.Errorf("unexpected body %v", raw)
	}
}

func TestListArticles_DefaultsAndEmpty(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/api/articles")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if env.articles.gotLimit != 0 || env.articles.gotOffset != 0 {
		t.Errorf("expected zero params to defer to the service, got %d/%d",
			env.articles.gotLimit, env.articles.gotOffset)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("expected empty JSON array, got %s", body)
	}
}

func TestListArticles_InvalidLimit(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/api/articles?limit=abc")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if got := decode[ErrorResponse](t, rr); got.Code != ErrorResponseCodeBadRequest {
		t.Errorf("code = %q", got.Code)
	}
}

func TestSearchArticles(t *testing.T) {
	env := newTestEnv(t)
	env.articles.hits = []article.Scored{
		{Article: article.Article{ID: 1, Heading: "Asian markets rally", Category: "Business"}, Score: 0.83},
	}

	rr := env.do(http.MethodGet, "/api/search?q=Asian+stock+market+news&limit=3")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	if env.articles.gotQuery != "Asian stock market news" || env.articles.gotLimit != 3 {
		t.Errorf("params not bound: q=%q limit=%d", env.articles.gotQuery, env.articles.gotLimit)
	}

	resp := decode[SearchResponse](t, rr)
	if resp.Query != "Asian stock market news" || len(resp.Results) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Results[0].ID != 1 || resp.Results[0].Score != 0.83 || resp.Results[0].NewsType != "Business" {
		t.Errorf("unexpected hit %+v", resp.Results[0])
	}
}

func TestSearchArticles_MissingQuery(t *testing.T) {
	env := newTestEnv(t)
	for _, target := range []string{"/api/search", "/api/search?q="} {
		rr := env.do(http.MethodGet, target)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rr.Code)
		}
	}
}

func TestSearchArticles_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   ErrorResponseCode
	}{
		{domain.ErrNotReady, http.StatusServiceUnavailable, ErrorResponseCodeIndexNotReady},
		{fmt.Errorf("embed query: %w: %w", domain.ErrEmbeddingFailure, errors.New("dial tcp")),
			http.StatusBadGateway, ErrorResponseCodeEmbeddingFailure},
		{fmt.Errorf("x: %w: %w", domain.ErrEmbeddingFailure, domain.ErrEmbeddingProviderError),
			http.StatusBadGateway, ErrorResponseCodeEmbeddingProviderError},
		{fmt.Errorf("limit: %w", domain.ErrInvalidArgument), http.StatusBadRequest, ErrorResponseCodeValidationFailed},
		{domain.ErrClosed, http.StatusServiceUnavailable, ErrorResponseCodeServiceClosed},
		{errors.New("secret connection string leaked"), http.StatusInternalServerError, ErrorResponseCodeInternalError},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			env := newTestEnv(t)
			env.articles.err = tc.err

			rr := env.do(http.MethodGet, "/api/search?q=x")
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			got := decode[ErrorResponse](t, rr)
			if got.Code != tc.code {
				t.Errorf("code = %q, want %q", got.Code, tc.code)
			}
			if strings.Contains(got.Message, "secret") || strings.Contains(got.Message, "dial") {
				t.Errorf("message leaks internals: %q", got.Message)
			}
		})
	}
}

func TestRefreshIndex(t *testing.T) {
	env := newTestEnv(t)
	env.index.err = errors.New("db down")

	rr := env.do(http.MethodPost, "/api/index/refresh")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rr.Code)
	}
	if got := decode[RefreshResponse](t, rr); got.Status != "accepted" {
		t.Errorf("unexpected body %+v", got)
	}

	env.server.Wait()
	env.index.mu.Lock()
	defer env.index.mu.Unlock()
	if env.index.refreshes != 1 {
		t.Errorf("expected 1 refresh, got %d", env.index.refreshes)
	}
}

func TestRefreshIndex_WrongMethod(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.do(http.MethodGet, "/api/index/refresh"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestIndexStatus(t *testing.T) {
	env := newTestEnv(t)
	built := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	env.index.status = recommend.Status{
		State:        recommend.StateReady,
		Ready:        true,
		Size:         500,
		LastBuiltAt:  built,
		LastDuration: 1500 * time.Millisecond,
	}

	rr := env.do(http.MethodGet, "/api/index/status")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decode[IndexStatusResponse](t, rr)
	if got.State != "ready" || !got.Ready || got.Size != 500 || got.LastDurationMs != 1500 {
		t.Errorf("unexpected status %+v", got)
	}
	if got.LastBuiltAt == nil || !got.LastBuiltAt.Equal(built) {
		t.Errorf("unexpected last_built_at %v", got.LastBuiltAt)
	}
}

func TestIndexStatus_NeverBuilt(t *testing.T) {
	env := newTestEnv(t)
	env.index.status = recommend.Status{State: recommend.StateIndexing, LastError: "build index: embedding failure"}

	rr := env.do(http.MethodGet, "/api/index/status")
	var raw map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := raw["last_built_at"]; ok {
		t.Error("last_built_at must be omitted before the first build")
	}
	if raw["state"] != "indexing" || raw["ready"] != false || raw["last_error"] == "" {
		t.Errorf("unexpected body %v", raw)
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decode[HealthResponse](t, rr)
	if got.Status != "ok" || got.Checks["database"] != "ok" {
		t.Errorf("unexpected body %+v", got)
	}
}

func TestHealthCheck_Degraded(t *testing.T) {
	env := newTestEnv(t)
	env.server.health = mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{healthuc.CheckIndex: healthuc.CheckNotReady},
	}}

	rr := env.do(http.MethodGet, "/health")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	if got := decode[HealthResponse](t, rr); got.Checks["index"] != "not_ready" {
		t.Errorf("unexpected body %+v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	if env.server.metrics == nil {
		t.Fatal("metrics handler must be built with the server")
	}

	for i := 0; i < 2; i++ {
		rr := env.do(http.MethodGet, "/metrics")
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "go_goroutines") {
			t.Errorf("request %d: expected default registry exposition", i)
		}
	}
}

func TestRouter_AuthAppliesToAPI(t *testing.T) {
	env := newTestEnv(t, "secret")
	if rr := env.do(http.MethodGet, "/api/articles"); rr.Code != http.StatusUnauthorized {
		t.Errorf("api without key: status = %d, want 401", rr.Code)
	}
	if rr := env.do(http.MethodGet, "/health"); rr.Code != http.StatusOK {
		t.Errorf("health without key: status = %d, want 200", rr.Code)
	}
}

func TestRouter_NotFoundIsJSON(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/nope")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decode[ErrorResponse](t, rr); got.Code != ErrorResponseCodeNotFound {
		t.Errorf("code = %q", got.Code)
	}
}

func TestRouter_RequestIDHeader(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/health")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if got := decode[ErrorResponse](t, rr); got.Code != ErrorResponseCodeInternalError {
		t.Errorf("code = %q", got.Code)
	}
}
