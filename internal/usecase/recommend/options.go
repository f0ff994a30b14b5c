package recommend

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrec/internal/domain"
	"github.com/kailas-cloud/newsrec/internal/domain/article"
)

// Defaults for build concurrency.
const (
	DefaultWorkers   = 4
	DefaultBatchSize = 64
)

// Option configures a Service.
type Option func(*Service)

// WithSource sets the article source used by Refresh.
func WithSource(src Source) Option {
	return func(s *Service) { s.source = src }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkers bounds concurrent embedding calls during a build.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithBatchSize sets how many documents go into one batch embedding call.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithComposeOptions overrides the document composition limits.
func WithComposeOptions(o article.ComposeOptions) Option {
	return func(s *Service) { s.compose = o }
}

// WithQueryEmbedder uses a separate embedder for query text, e.g. one that
// prepends a query instruction for asymmetric models.
func WithQueryEmbedder(e domain.Embedder) Option {
	return func(s *Service) {
		if e != nil {
			s.queryEmbedder = e
		}
	}
}
