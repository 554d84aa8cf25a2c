package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "learning_gateway"

// Metrics collectors exposed at /metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	register *prometheus.Registry

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	upstreamRequestsTotal      *prometheus.CounterVec
	upstreamDurationSeconds    *prometheus.HistogramVec
	reordersTotal              *prometheus.CounterVec
	rollbacksTotal             *prometheus.CounterVec
	activeSessions             prometheus.Gauge
}

// NewMetrics create collectors on a fresh registry, go runtime and process collectors included
func NewMetrics() *Metrics {
	m := &Metrics{
		register: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests served",
			},
			[]string{"route", "method", "status"},
		),
		httpRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route", "method"},
		),
		upstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Calls made to the platform API",
			},
			[]string{"operation", "status"},
		),
		upstreamDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Platform API call duration in seconds",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 180},
			},
			[]string{"operation"},
		),
		reordersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reorders_total",
				Help:      "Section and lesson reorders by outcome",
			},
			[]string{"list", "outcome"},
		),
		rollbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "optimistic_rollbacks_total",
				Help:      "Optimistic updates discarded after a failed request",
			},
			[]string{"kind"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "player_sessions_active",
				Help:      "Number of open player sessions",
			},
		),
	}

	m.register.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.register.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDurationSeconds,
		m.upstreamRequestsTotal,
		m.upstreamDurationSeconds,
		m.reordersTotal,
		m.rollbacksTotal,
		m.activeSessions,
	)
	return m
}

// Handler exposition handler for the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.register, promhttp.HandlerOpts{})
}

// Registry underlying registry, used by tests to gather values
func (m *Metrics) Registry() *prometheus.Registry {
	return m.register
}

// RecordRequest served HTTP request
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDurationSeconds.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordUpstream platform API call, status is the HTTP status or "error" when no response arrived
func (m *Metrics) RecordUpstream(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequestsTotal.WithLabelValues(operation, status).Inc()
	m.upstreamDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordReorder reorder submission outcome, list is "sections" or "lessons"
func (m *Metrics) RecordReorder(list string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.reordersTotal.WithLabelValues(list, outcome).Inc()
}

// RecordRollback optimistic update discarded
func (m *Metrics) RecordRollback(kind string) {
	if m == nil {
		return
	}
	m.rollbacksTotal.WithLabelValues(kind).Inc()
}

// SessionOpened increase the active session gauge
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed decrease the active session gauge
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
