package chi

import (
	"time"

	"github.com/kailas-cloud/newsrec/internal/domain/article"
)

// ErrorResponseCode is the machine-readable error code in ErrorResponse.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest             ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized           ErrorResponseCode = "unauthorized"
	ErrorResponseCodeNotFound               ErrorResponseCode = "not_found"
	ErrorResponseCodeValidationFailed       ErrorResponseCode = "validation_failed"
	ErrorResponseCodeVectorDimMismatch      ErrorResponseCode = "vector_dimension_mismatch"
	ErrorResponseCodeIndexNotReady          ErrorResponseCode = "index_not_ready"
	ErrorResponseCodeEmbeddingFailure       ErrorResponseCode = "embedding_failure"
	ErrorResponseCodeEmbeddingProviderError ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeServiceClosed          ErrorResponseCode = "service_closed"
	ErrorResponseCodeInternalError          ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// ArticleResponse is one catalog article.
type ArticleResponse struct {
	ID       int64  `json:"id"`
	Heading  string `json:"heading"`
	Content  string `json:"content"`
	NewsType string `json:"newsType"`
}

// ScoredArticleResponse is a search hit.
type ScoredArticleResponse struct {
	ArticleResponse
	Score float64 `json:"score"`
}

// SearchResponse is the body of GET /api/search.
type SearchResponse struct {
	Results []ScoredArticleResponse `json:"results"`
	Query   string                  `json:"query"`
}

// RefreshResponse is the body of POST /api/index/refresh.
type RefreshResponse struct {
	Status string `json:"status"`
}

// IndexStatusResponse is the body of GET /api/index/status.
type IndexStatusResponse struct {
	State          string     `json:"state"`
	Ready          bool       `json:"ready"`
	Size           int        `json:"size"`
	LastBuiltAt    *time.Time `json:"last_built_at,omitempty"`
	LastDurationMs int64      `json:"last_duration_ms"`
	LastError      string     `json:"last_error,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func articleToResponse(a article.Article) ArticleResponse {
	return ArticleResponse{
		ID:       a.ID,
		Heading:  a.Heading,
		Content:  a.Content,
		NewsType: a.Category,
	}
}
