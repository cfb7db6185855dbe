// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CoverageRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "layerline_coverage_requests_total",
		Help: "Total coverage computations by entry point",
	}, []string{"source"})
	CoverageDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "layerline_coverage_duration_ms",
		Help:    "Coverage computation duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 20, 50, 100, 500},
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "layerline_interval_cache_hits_total",
		Help: "Total interval cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "layerline_interval_cache_misses_total",
		Help: "Total interval cache misses",
	})
	IntervalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "layerline_coverage_lines_total",
		Help: "Total coverage lines produced by draw mode",
	}, []string{"mode"})
	IndexedLayers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "layerline_indexed_layers",
		Help: "Number of layers in the index after the last sync",
	})
	CatalogEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "layerline_catalog_events_total",
		Help: "Catalogue changes observed by kind",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(CoverageRequestsTotal)
	prometheus.MustRegister(CoverageDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(IntervalsTotal)
	prometheus.MustRegister(IndexedLayers)
	prometheus.MustRegister(CatalogEventsTotal)
}

// ObserveCache records one interval cache lookup.
func ObserveCache(hit bool) {
	if hit {
		CacheHitsTotal.Inc()
		return
	}
	CacheMissesTotal.Inc()
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
