// Package metrics defines the Prometheus metric collectors used across the
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	MiningRunsTotal      *prometheus.CounterVec
	MiningRunDuration    prometheus.Histogram
	LevelDuration        *prometheus.HistogramVec
	CandidatesGenerated  prometheus.Counter
	CandidatesPruned     prometheus.Counter
	CandidatesFrequent   prometheus.Counter
	CountingFailures     prometheus.Counter
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	WorkerPoolSize       prometheus.Gauge
}

// New creates all collectors and registers them with reg. A nil reg uses
// the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		MiningRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gsp_mining_runs_total",
				Help: "Total mining runs by outcome (ok, invalid, timeout, error).",
			},
			[]string{"status"},
		),
		MiningRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gsp_mining_run_duration_seconds",
				Help:    "Wall time of a complete mining run.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		LevelDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gsp_level_duration_seconds",
				Help:    "Support counting time per level.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"level"},
		),
		CandidatesGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gsp_candidates_generated_total",
				Help: "Candidates handed to support counting.",
			},
		),
		CandidatesPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gsp_candidates_pruned_total",
				Help: "Candidates removed before counting because a sub-pattern was infrequent.",
			},
		),
		CandidatesFrequent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gsp_candidates_frequent_total",
				Help: "Candidates that met the support threshold.",
			},
		),
		CountingFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gsp_counting_failures_total",
				Help: "Candidates that could not be evaluated.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gsp_result_cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gsp_result_cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		WorkerPoolSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gsp_worker_pool_size",
				Help: "Workers in the most recently started counting pool.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.MiningRunsTotal,
		m.MiningRunDuration,
		m.LevelDuration,
		m.CandidatesGenerated,
		m.CandidatesPruned,
		m.CandidatesFrequent,
		m.CountingFailures,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.WorkerPoolSize,
	)

	return m
}

// Handler serves the collectors in g. A nil g serves the default registry.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
