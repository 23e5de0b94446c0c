// Package metrics holds the Prometheus collectors of the report server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "roadwatch"

// Metrics holds Prometheus metrics for the server
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	ReportsSubmitted prometheus.Counter
	StatusUpdates    *prometheus.CounterVec
	AttachmentsSwept prometheus.Counter
}

// New registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry(); the server passes prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		ReportsSubmitted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_submitted_total",
				Help:      "Reports successfully created",
			},
		),
		StatusUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_updates_total",
				Help:      "Applied report status changes by new status",
			},
			[]string{"status"},
		),
		AttachmentsSwept: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attachments_swept_total",
				Help:      "Orphaned attachments deleted by the sweeper",
			},
		),
	}
}

// Middleware records request count, duration and in-flight requests,
// labelled by the matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		m.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(ww.status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
