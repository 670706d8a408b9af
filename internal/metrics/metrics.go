// Package metrics provides Prometheus metrics for ShadowScript.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every ShadowScript collector plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Filesystem metrics
	fsOpsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shadowscript_fs_operations_total",
			Help: "Total number of virtual filesystem operations",
		},
		[]string{"op", "status"},
	)

	fsReadCacheHits = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "shadowscript_fs_read_cache_hits_total",
			Help: "Reads served from the read cache",
		},
	)

	fsPersistTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shadowscript_fs_persist_total",
			Help: "Physical persistence writes of the filesystem tree",
		},
		[]string{"status"},
	)

	fsUsageBytes = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "shadowscript_fs_usage_bytes",
			Help: "Total file content held by the filesystem",
		},
	)

	// Mutation engine metrics
	mutationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shadowscript_mutations_total",
			Help: "File mutations applied by the haunting engine",
		},
		[]string{"kind"},
	)

	hauntedFiles = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "shadowscript_haunted_files",
			Help: "Number of files registered for haunting",
		},
	)

	// Message rewriter metrics
	rewritesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shadowscript_rewrites_total",
			Help: "Message rewrites by outcome (cache_hit, rewritten, fallback)",
		},
		[]string{"outcome"},
	)

	rewriteDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shadowscript_rewrite_duration_seconds",
			Help:    "Time spent transforming a message",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordFSOp records a filesystem operation result.
func RecordFSOp(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	fsOpsTotal.WithLabelValues(op, status).Inc()
}

// RecordReadCacheHit records a read served from cache.
func RecordReadCacheHit() {
	fsReadCacheHits.Inc()
}

// RecordPersist records a persistence attempt.
func RecordPersist(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	fsPersistTotal.WithLabelValues(status).Inc()
}

// SetUsage records the current filesystem content size.
func SetUsage(bytes int64) {
	fsUsageBytes.Set(float64(bytes))
}

// RecordMutation records an applied mutation of the given kind.
func RecordMutation(kind string) {
	mutationsTotal.WithLabelValues(kind).Inc()
}

// SetHauntedFiles records the size of the haunting registry.
func SetHauntedFiles(n int) {
	hauntedFiles.Set(float64(n))
}

// RecordRewrite records a rewrite outcome and, for computed results, its duration.
func RecordRewrite(outcome string, d time.Duration) {
	rewritesTotal.WithLabelValues(outcome).Inc()
	if outcome != "cache_hit" {
		rewriteDuration.Observe(d.Seconds())
	}
}
