package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resolutions counts alias resolutions by outcome
	// (cache_hit|store_hit|not_found|inactive|expired|store_error).
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_resolutions_total",
			Help: "Total number of alias resolutions",
		},
		[]string{"outcome"},
	)

	// CacheOps counts cache operations and their result (ok|miss|error).
	CacheOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_cache_ops_total",
			Help: "Total number of resolution cache operations",
		},
		[]string{"op", "result"},
	)

	// ClickEvents counts click events by result (published|publish_failed|dropped).
	ClickEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_click_events_total",
			Help: "Total number of click events",
		},
		[]string{"result"},
	)

	// ClickBatches counts aggregation batches by result (applied|retried).
	ClickBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_click_batches_total",
			Help: "Total number of click aggregation batches",
		},
		[]string{"result"},
	)

	// ClickBatchSize observes how many events each applied batch carried.
	ClickBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shortlink_click_batch_size",
			Help:    "Events per applied click aggregation batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortlink_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
