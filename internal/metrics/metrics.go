package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsIngested counts events durably accepted by the pipeline
	EventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_ingested_total",
		Help: "Total number of events durably accepted",
	})

	// EventsDuplicate counts events skipped as duplicates on the fallback path
	EventsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_duplicate_total",
		Help: "Total number of events skipped as duplicates",
	})

	// IngestFallbacks counts batches that fell back to per-event processing
	IngestFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_fallbacks_total",
		Help: "Total number of batches retried per-event after a duplicate conflict",
	})

	// IngestDuration observes end-to-end ingestion latency per batch
	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_duration_seconds",
		Help:    "Duration of ingestion calls in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// EventsPublished counts events delivered to the message bus
	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Total number of events published to the message bus",
	})

	// CacheHits counts analytics queries served from cache
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_cache_hits_total",
		Help: "Total number of analytics cache hits",
	}, []string{"query"})

	// CacheMisses counts analytics queries that fell through to the store
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_cache_misses_total",
		Help: "Total number of analytics cache misses",
	}, []string{"query"})
)
