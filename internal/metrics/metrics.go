package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	AggregationsTotal   *prometheus.CounterVec
	AggregationDuration prometheus.Histogram
	AggregationRecords  prometheus.Histogram

	PageFetchesTotal  *prometheus.CounterVec
	PageFetchDuration prometheus.Histogram

	RateLimitHitsTotal *prometheus.CounterVec
}

// New registers on the default registry; call it once per process.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tubescout_requests_total",
				Help: "Total number of front-end requests processed",
			},
			[]string{"type", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tubescout_request_duration_seconds",
				Help:    "Front-end request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"type"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tubescout_requests_in_flight",
				Help: "Number of requests currently being processed",
			},
		),

		AggregationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tubescout_aggregations_total",
				Help: "Total number of search aggregations by outcome",
			},
			[]string{"status"},
		),
		AggregationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tubescout_aggregation_duration_seconds",
				Help:    "Aggregation duration in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		AggregationRecords: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tubescout_aggregation_records",
				Help:    "Number of records returned by successful aggregations",
				Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000},
			},
		),

		PageFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tubescout_page_fetches_total",
				Help: "Total number of search API page fetches",
			},
			[]string{"status"},
		),
		PageFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tubescout_page_fetch_duration_seconds",
				Help:    "Search API page fetch duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),

		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tubescout_rate_limit_hits_total",
				Help: "Total number of requests rejected by the local rate limiter",
			},
			[]string{"surface"},
		),
	}

	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) RecordRequest(reqType, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(reqType, status).Inc()
	m.RequestDuration.WithLabelValues(reqType).Observe(duration.Seconds())
}

func (m *Metrics) RecordAggregation(status string, records int, duration time.Duration) {
	m.AggregationsTotal.WithLabelValues(status).Inc()
	m.AggregationDuration.Observe(duration.Seconds())
	if status == "success" {
		m.AggregationRecords.Observe(float64(records))
	}
}

func (m *Metrics) RecordPageFetch(status string, duration time.Duration) {
	m.PageFetchesTotal.WithLabelValues(status).Inc()
	m.PageFetchDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordRateLimitHit(surface string) {
	m.RateLimitHitsTotal.WithLabelValues(surface).Inc()
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}
