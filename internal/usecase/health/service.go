// Package health aggregates component checks for the /health endpoint.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a non-critical component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the article database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckNotReady indicates the index has not been built yet.
	CheckNotReady CheckResult = "not_ready"
)

// Check names.
const (
	CheckDatabase  = "database"
	CheckCache     = "cache"
	CheckEmbedding = "embedding"
	CheckIndex     = "index"
)

// DefaultTimeout bounds each individual check.
const DefaultTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        Pinger
	cache     Pinger
	embedding EmbeddingChecker
	index     IndexChecker
	timeout   time.Duration
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache adds the embedding cache check.
func WithCache(p Pinger) Option { return func(s *Service) { s.cache = p } }

// WithEmbedding adds the embedding provider check.
func WithEmbedding(c EmbeddingChecker) Option { return func(s *Service) { s.embedding = c } }

// WithIndex adds the recommender readiness check.
func WithIndex(c IndexChecker) Option { return func(s *Service) { s.index = c } }

// WithLogger logs failing checks.
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

// New creates a Service. The database check is mandatory, the rest are opt-in.
func New(db Pinger, opts ...Option) *Service {
	s := &Service{db: db, timeout: DefaultTimeout, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Check runs health checks against all components. A database failure makes
// the service Unhealthy; any other failing check makes it Degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks[CheckDatabase] = s.run(ctx, CheckDatabase, s.db.Ping)
	if s.cache != nil {
		checks[CheckCache] = s.run(ctx, CheckCache, s.cache.Ping)
	}
	if s.embedding != nil {
		checks[CheckEmbedding] = s.run(ctx, CheckEmbedding, s.embedding.HealthCheck)
	}
	if s.index != nil {
		if s.index.IsReady() {
			checks[CheckIndex] = CheckOK
		} else {
			checks[CheckIndex] = CheckNotReady
		}
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}
	if checks[CheckDatabase] != CheckOK {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, name string, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		s.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
		return CheckError
	}
	return CheckOK
}
