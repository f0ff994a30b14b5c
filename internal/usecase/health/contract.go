package health

import "context"

// Pinger checks a storage backend (article database, embedding cache).
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexChecker reports whether the recommender can answer queries.
type IndexChecker interface {
	IsReady() bool
}
