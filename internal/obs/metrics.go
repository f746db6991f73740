// Package obs holds fmdesk's prometheus metrics.
//
// Metrics live on a private registry, not the global default, so tests and
// several engines in one process never collide on registration.
package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the set of collectors shared by the engine, effects and the
// API client. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	actionsTotal   *prometheus.CounterVec
	reduceDuration prometheus.Histogram
	effectRuns     *prometheus.CounterVec
	effectDuration *prometheus.HistogramVec
	queueDepth     prometheus.Gauge

	clientRequests *prometheus.CounterVec
	clientDuration *prometheus.HistogramVec
	clientRetries  *prometheus.CounterVec

	serverInFlight prometheus.Gauge
	serverRequests *prometheus.CounterVec
}

// NewMetrics creates and registers every collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fmdesk_actions_total",
			Help: "Actions applied by the reducer, by type.",
		}, []string{"type"}),
		reduceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fmdesk_reduce_duration_seconds",
			Help:    "Time spent in the root reducer per action.",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
		effectRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fmdesk_effect_runs_total",
			Help: "Effect executions, by effect and outcome.",
		}, []string{"effect", "outcome"}),
		effectDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fmdesk_effect_duration_seconds",
			Help:    "Effect latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"effect"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fmdesk_queue_depth",
			Help: "Actions waiting for the reducer.",
		}),
		clientRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fmdesk_api_requests_total",
			Help: "Outbound API requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		clientDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fmdesk_api_request_duration_seconds",
			Help:    "Outbound API latency in seconds, retries included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		clientRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fmdesk_api_retries_total",
			Help: "Outbound API retry attempts, by route.",
		}, []string{"route"}),
		serverInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fmdesk_mock_in_flight_requests",
			Help: "In-flight requests served by the mock backend.",
		}),
		serverRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fmdesk_mock_requests_total",
			Help: "Requests served by the mock backend, by method, path and status.",
		}, []string{"method", "path", "status"}),
	}
	m.registry.MustRegister(
		m.actionsTotal, m.reduceDuration, m.effectRuns, m.effectDuration, m.queueDepth,
		m.clientRequests, m.clientDuration, m.clientRetries,
		m.serverInFlight, m.serverRequests,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ActionReduced records one reducer pass.
func (m *Metrics) ActionReduced(actionType string, d time.Duration) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(actionType).Inc()
	m.reduceDuration.Observe(d.Seconds())
}

// EffectRan records one effect execution. outcome is "ok", "panic" or
// "quota".
func (m *Metrics) EffectRan(effect, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.effectRuns.WithLabelValues(effect, outcome).Inc()
	m.effectDuration.WithLabelValues(effect).Observe(d.Seconds())
}

// QueueDepth reports the number of pending actions.
func (m *Metrics) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// ClientRequest records one logical API call. status 0 means the request
// never got a response.
func (m *Metrics) ClientRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.clientRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.clientDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ClientRetry records one retry of an API call.
func (m *Metrics) ClientRetry(route string) {
	if m == nil {
		return
	}
	m.clientRetries.WithLabelValues(route).Inc()
}

// Instrument wraps a server handler with request counting.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.serverInFlight.Inc()
		defer m.serverInFlight.Dec()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.serverRequests.WithLabelValues(r.Method, CanonicalPath(r.URL.Path), strconv.Itoa(sw.code)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// CanonicalPath collapses entity ids so metric labels stay bounded:
// /api/v1/users/42 becomes /api/v1/users/:id. "me" is kept as is.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return "/"
	}
	parts := strings.Split(p, "/")
	// "", "api", "v1", resource, id
	if len(parts) == 5 && parts[1] == "api" && parts[4] != "me" {
		parts[4] = ":id"
	}
	return strings.Join(parts, "/")
}
