// Package metrics defines the Prometheus instruments for the analysis pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result cache metrics
var (
	// CacheHits tracks fresh cache hits (model invocation skipped)
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_cache_hits_total",
			Help: "Total result cache hits",
		},
	)

	// CacheMisses tracks cache misses (absent, expired, or degraded)
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_cache_misses_total",
			Help: "Total result cache misses",
		},
	)

	// CacheEvictions tracks evictions by reason (expired / lru)
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_cache_evictions_total",
			Help: "Total result cache evictions by reason",
		},
		[]string{"reason"},
	)

	// CacheSize tracks the current number of cached entries
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentiment_cache_entries",
			Help: "Current number of result cache entries",
		},
	)

	// CacheDegraded tracks cache backend failures degraded to misses
	CacheDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_cache_degraded_total",
			Help: "Total cache backend failures treated as misses",
		},
	)
)

// Rate limiter metrics
var (
	// RateLimitRejections tracks denied admissions
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_rate_limit_rejections_total",
			Help: "Total requests rejected by the per-client rate limiter",
		},
	)

	// RateLimitTrackedClients tracks the number of client windows held in memory
	RateLimitTrackedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentiment_rate_limit_tracked_clients",
			Help: "Current number of tracked client windows",
		},
	)
)

// Model adapter metrics
var (
	// InferenceDuration tracks model scoring latency in seconds
	InferenceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentiment_inference_duration_seconds",
			Help:    "Model inference duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// InferenceErrors tracks failed model invocations
	InferenceErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_inference_errors_total",
			Help: "Total failed model invocations",
		},
	)

	// InferenceShared tracks callers served by a collapsed in-flight computation
	InferenceShared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_inference_shared_total",
			Help: "Total analyze calls that shared another caller's in-flight inference",
		},
	)
)
