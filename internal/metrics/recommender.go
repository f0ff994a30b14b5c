package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Recommender index and query metrics.
var (
	IndexEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_entries",
			Help:      "Number of articles in the published embedding index",
		},
	)

	IndexRebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_rebuilds_total",
			Help:      "Index rebuilds by outcome",
		},
		[]string{"status"}, // "success" / "error" / "superseded"
	)

	IndexRebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_rebuild_duration_seconds",
			Help:      "Wall time of successful index rebuilds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Recommender queries by outcome",
		},
		[]string{"status"}, // "success" / "not_ready" / "error"
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Recommender query latency including query embedding",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)
)

var registerRecommender sync.Once

// RegisterRecommenderMetrics registers the index and query metrics with the default registry.
func RegisterRecommenderMetrics() {
	registerRecommender.Do(func() {
		prometheus.MustRegister(
			IndexEntries,
			IndexRebuildsTotal,
			IndexRebuildDuration,
			QueriesTotal,
			QueryDuration,
		)
	})
}
