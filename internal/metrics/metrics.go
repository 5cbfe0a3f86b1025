// Package metrics exposes pipeline counters and latencies for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	IngestTotal     *prometheus.CounterVec
	IngestDuration  prometheus.Histogram
	AnswerTotal     *prometheus.CounterVec
	AnswerDuration  prometheus.Histogram
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	ServerStartTime time.Time
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry:        reg,
		ServerStartTime: time.Now(),
	}

	m.IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperchat_ingest_total",
			Help: "Document ingestions by outcome",
		},
		[]string{"outcome"},
	)
	m.IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paperchat_ingest_duration_seconds",
			Help:    "Time from upload to stored document",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
	m.AnswerTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperchat_answer_total",
			Help: "Answered questions by outcome",
		},
		[]string{"outcome"},
	)
	m.AnswerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paperchat_answer_duration_seconds",
			Help:    "Time spent producing an answer",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
	)
	m.HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperchat_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
	m.HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paperchat_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	reg.MustRegister(
		m.IngestTotal,
		m.IngestDuration,
		m.AnswerTotal,
		m.AnswerDuration,
		m.HTTPRequests,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RegisterDocumentCount exposes the live document count read from fn at scrape time.
func (m *Metrics) RegisterDocumentCount(fn func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "paperchat_documents",
			Help: "Documents currently held by the store",
		},
		func() float64 { return float64(fn()) },
	))
}

func (m *Metrics) ObserveIngest(outcome string, seconds float64) {
	m.IngestTotal.WithLabelValues(outcome).Inc()
	m.IngestDuration.Observe(seconds)
}

func (m *Metrics) ObserveAnswer(outcome string, seconds float64) {
	m.AnswerTotal.WithLabelValues(outcome).Inc()
	m.AnswerDuration.Observe(seconds)
}

func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
