// Package chi exposes the HTTP API on a chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrec/internal/domain"
	"github.com/kailas-cloud/newsrec/internal/domain/article"
	logpkg "github.com/kailas-cloud/newsrec/internal/logger"
	healthuc "github.com/kailas-cloud/newsrec/internal/usecase/health"
	"github.com/kailas-cloud/newsrec/internal/usecase/recommend"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// ArticleService lists and searches the catalog.
type ArticleService interface {
	List(ctx context.Context, limit, offset int) ([]article.Article, error)
	Search(ctx context.Context, query string, limit int) ([]article.Scored, error)
}

// IndexService rebuilds the index and reports its state.
type IndexService interface {
	Refresh(ctx context.Context) error
	Status() recommend.Status
}

// HealthService aggregates component checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	articles      ArticleService
	index         IndexService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
	metrics       http.Handler

	// Refreshes started over HTTP outlive their request; they run under
	// baseCtx and are tracked by bg.
	baseCtx context.Context
	bg      sync.WaitGroup
}

// NewServer creates an HTTP API server. baseCtx bounds background refreshes.
func NewServer(
	baseCtx context.Context,
	articles ArticleService,
	index IndexService,
	health HealthService,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		articles: articles,
		index:    index,
		health:   health,
		logger:   logger,
		metrics:  promhttp.Handler(),
		baseCtx:  baseCtx,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound),
		sentinelHandler(domain.ErrNotReady, http.StatusServiceUnavailable, ErrorResponseCodeIndexNotReady),
		sentinelHandler(domain.ErrClosed, http.StatusServiceUnavailable, ErrorResponseCodeServiceClosed),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorResponseCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrEmbeddingFailure, http.StatusBadGateway, ErrorResponseCodeEmbeddingFailure),
		sentinelHandler(domain.ErrVectorDimMismatch,
			http.StatusInternalServerError, ErrorResponseCodeVectorDimMismatch),
	}
	return s
}

// ListArticles handles GET /api/articles.
func (s *Server) ListArticles(w http.ResponseWriter, r *http.Request) {
	var limit, offset int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "invalid limit parameter")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", r.URL.Query(), &offset); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "invalid offset parameter")
		return
	}

	items, err := s.articles.List(r.Context(), limit, offset)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	resp := make([]ArticleResponse, len(items))
	for i, a := range items {
		resp[i] = articleToResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SearchArticles handles GET /api/search.
func (s *Server) SearchArticles(w http.ResponseWriter, r *http.Request) {
	var q string
	if err := runtime.BindQueryParameter("form", true, true, "q", r.URL.Query(), &q); err != nil || q == "" {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "query parameter q is required")
		return
	}
	var limit int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "invalid limit parameter")
		return
	}

	hits, err := s.articles.Search(r.Context(), q, limit)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	results := make([]ScoredArticleResponse, len(hits))
	for i, h := range hits {
		results[i] = ScoredArticleResponse{ArticleResponse: articleToResponse(h.Article), Score: h.Score}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results, Query: q})
}

// RefreshIndex handles POST /api/index/refresh. The rebuild runs in the
// background; progress is visible through GET /api/index/status.
func (s *Server) RefreshIndex(w http.ResponseWriter, r *http.Request) {
	log := s.log(r.Context())

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		err := s.index.Refresh(s.baseCtx)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrRebuildSuperseded):
			log.Info("Refresh superseded by a newer one")
		default:
			log.Error("Background refresh failed", zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, RefreshResponse{Status: "accepted"})
}

// IndexStatus handles GET /api/index/status.
func (s *Server) IndexStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.index.Status()
	resp := IndexStatusResponse{
		State:          st.State.String(),
		Ready:          st.Ready,
		Size:           st.Size,
		LastDurationMs: st.LastDuration.Milliseconds(),
		LastError:      st.LastError,
	}
	if !st.LastBuiltAt.IsZero() {
		t := st.LastBuiltAt.UTC()
		resp.LastBuiltAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.ServeHTTP(w, r)
}

// Wait blocks until background refreshes started over HTTP have returned.
func (s *Server) Wait() {
	s.bg.Wait()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage exposes only the sentinel text, never wrapped internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidArgument,
		domain.ErrNotFound,
		domain.ErrNotReady,
		domain.ErrClosed,
		domain.ErrEmbeddingProviderError,
		domain.ErrEmbeddingFailure,
		domain.ErrVectorDimMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := s.log(ctx)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func (s *Server) log(ctx context.Context) *zap.Logger {
	return logpkg.FromContextOr(ctx, s.logger)
}
