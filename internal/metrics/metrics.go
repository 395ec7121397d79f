// Package metrics holds the Prometheus instruments for the sync pipeline.
// Registration is explicit from main; nothing registers in init().
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecsync",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vecsync",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecsync",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecsync",
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecsync",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	WatchEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecsync",
			Name:      "watch_events_total",
			Help:      "Change feed events by outcome",
		},
		[]string{"collection", "outcome"}, // "enqueued" / "dropped" / "failed"
	)

	WatchReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecsync",
			Name:      "watch_reconnects_total",
			Help:      "Change feed reconnect attempts",
		},
		[]string{"collection"},
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vecsync",
			Name:      "worker_queue_depth",
			Help:      "Pending tasks in the shared worker queue",
		},
	)

	BackfillDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vecsync",
			Name:      "backfill_documents_total",
			Help:      "Backfilled documents by outcome",
		},
		[]string{"type", "outcome"}, // "updated" / "skipped" / "error"
	)
)

var registered bool

// Register registers all pipeline metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	registered = true
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingCacheTotal,
		WatchEventsTotal,
		WatchReconnectsTotal,
		WorkerQueueDepth,
		BackfillDocumentsTotal,
	)
}
