// Package metrics exposes the Prometheus collectors of placestd.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placestd_resolutions_total",
		Help: "Resolutions by mode and outcome (matched, empty, error)",
	}, []string{"mode", "outcome"})
	ResolutionDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "placestd_resolution_duration_ms",
		Help:    "Resolution duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 50, 100},
	})
	DiagnosticsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placestd_diagnostics_total",
		Help: "Diagnostic events raised by the resolver, by kind",
	}, []string{"kind"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placestd_cache_hits_total",
		Help: "Index cache hits, by lookup (word, place)",
	}, []string{"lookup"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placestd_cache_misses_total",
		Help: "Index cache misses, by lookup (word, place)",
	}, []string{"lookup"})
	CacheErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placestd_cache_errors_total",
		Help: "Index cache read/write failures (the lookup falls through)",
	})
	ReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placestd_reloads_total",
		Help: "Gazetteer reloads by status (ok, error)",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(ResolutionsTotal)
	prometheus.MustRegister(ResolutionDurationMs)
	prometheus.MustRegister(DiagnosticsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(CacheErrorsTotal)
	prometheus.MustRegister(ReloadsTotal)
}

// Handler serves the registered collectors in the Prometheus text format.
func Handler() http.Handler { return promhttp.Handler() }
