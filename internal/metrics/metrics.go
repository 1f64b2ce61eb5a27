package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	UpdateCyclesTotal     prometheus.Counter
	ProviderFailuresTotal *prometheus.CounterVec
	RatesWrittenTotal     prometheus.Counter

	RateLookupsTotal          prometheus.Counter
	CacheHitsTotal            prometheus.Counter
	CacheMissesTotal          prometheus.Counter
	FallbackComputationsTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		UpdateCyclesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rates_update_cycles_total",
				Help: "Total number of persisted aggregation cycles",
			},
		),

		ProviderFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rates_provider_failures_total",
				Help: "Total number of failed provider fetches",
			},
			[]string{"source"},
		),

		RatesWrittenTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rates_written_total",
				Help: "Total number of snapshot entries written by cycles",
			},
		),

		RateLookupsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_lookups_total",
				Help: "Total number of rate lookups",
			},
		),

		CacheHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_cache_hits_total",
				Help: "Total number of fresh snapshot hits",
			},
		),

		CacheMissesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_cache_misses_total",
				Help: "Total number of stale or absent snapshot lookups",
			},
		),

		FallbackComputationsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_fallback_computations_total",
				Help: "Total number of reference-table fallback computations",
			},
		),
	}
}
