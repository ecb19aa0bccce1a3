// Package metrics holds the Prometheus collectors for the honeypot. Every
// method is safe on a nil *Metrics so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	messagesProcessed   prometheus.Counter
	scamsDetected       prometheus.Counter
	reports             *prometheus.CounterVec
	storeErrors         *prometheus.CounterVec
	replies             *prometheus.CounterVec
	sessionsSwept       prometheus.Counter
}

// New creates the collectors on a private registry, along with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "honeypot_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "honeypot_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		messagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "honeypot_messages_processed_total",
			Help: "Inbound messages folded into a session",
		}),
		scamsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "honeypot_scams_detected_total",
			Help: "Sessions whose detection latch flipped",
		}),
		reports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "honeypot_reports_total",
				Help: "Final report deliveries by outcome",
			},
			[]string{"outcome"},
		),
		storeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "honeypot_store_errors_total",
				Help: "Session store failures by operation",
			},
			[]string{"op"},
		),
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "honeypot_replies_total",
				Help: "Persona replies by source",
			},
			[]string{"source"},
		),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "honeypot_sessions_swept_total",
			Help: "Sessions removed by the maintenance sweep",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpRequestDuration,
		m.messagesProcessed,
		m.scamsDetected,
		m.reports,
		m.storeErrors,
		m.replies,
		m.sessionsSwept,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) MessageProcessed() {
	if m == nil {
		return
	}
	m.messagesProcessed.Inc()
}

func (m *Metrics) ScamDetected() {
	if m == nil {
		return
	}
	m.scamsDetected.Inc()
}

// Report outcomes.
const (
	ReportDelivered     = "delivered"
	ReportFailed        = "failed"
	ReportNoDestination = "no_destination"
)

func (m *Metrics) ReportOutcome(outcome string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

// Reply sources.
const (
	ReplyModel    = "model"
	ReplyFallback = "fallback"
)

func (m *Metrics) Reply(source string) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(source).Inc()
}

func (m *Metrics) SessionsSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsSwept.Add(float64(n))
}
