// Package observability holds the Prometheus metrics of the scraper.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters, histograms, and gauges for scrape runs.
type Metrics struct {
	PagesFetched   *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration  prometheus.Histogram
	RecordsDecoded *prometheus.CounterVec // labels: kind={forecast,alarm}
	DecodeFailures *prometheus.CounterVec // labels: kind={forecast,alarm}
	LastRefresh    *prometheus.GaugeVec   // labels: kind={forecast,alarm}
}

func newMetrics() *Metrics {
	return &Metrics{
		PagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_bot",
			Name:      "pages_fetched_total",
			Help:      "Portal pages fetched by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_bot",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a portal page fetch including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RecordsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_bot",
			Name:      "records_decoded_total",
			Help:      "Records decoded from portal pages by kind.",
		}, []string{"kind"}),
		DecodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_bot",
			Name:      "decode_failures_total",
			Help:      "Pages that could not be decoded by kind.",
		}, []string{"kind"}),
		LastRefresh: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "weather_bot",
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful refresh by kind.",
		}, []string{"kind"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PagesFetched,
		m.FetchDuration,
		m.RecordsDecoded,
		m.DecodeFailures,
		m.LastRefresh,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
