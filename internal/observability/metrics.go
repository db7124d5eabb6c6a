package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/puntomas/panel/internal/jobs"
)

// Metrics collects the Prometheus metrics of the panel service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	backendTotal    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	payoutBatches   *prometheus.CounterVec
	pollDropped     *prometheus.CounterVec
	jobs            *jobmetrics.Metrics
}

// NewMetrics builds a dedicated registry with the HTTP, backend, payout, poller
// and job collectors registered.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panel_http_requests_total",
		Help: "HTTP requests served, by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "panel_http_request_duration_seconds",
		Help:    "HTTP request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	backendTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panel_backend_requests_total",
		Help: "Calls issued to the commission backend, by endpoint and outcome.",
	}, []string{"method", "endpoint", "outcome"})
	backendDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "panel_backend_request_duration_seconds",
		Help:    "Commission backend latency per endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panel_payout_batches_total",
		Help: "Batch payments submitted, by payment mode and outcome.",
	}, []string{"mode", "outcome"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panel_alert_poll_stale_total",
		Help: "Alert-count responses discarded because a newer one was already applied.",
	}, []string{"role"})
	registry.MustRegister(requests, duration, backendTotal, backendDuration, payouts, dropped)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		backendTotal:    backendTotal,
		backendDuration: backendDuration,
		payoutBatches:   payouts,
		pollDropped:     dropped,
		jobs:            jobmetrics.NewMetrics(registry),
	}
}

// Handler returns the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveBackend records one backend round trip. status is zero when the request
// never got a response.
func (m *Metrics) ObserveBackend(method, endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "error"
	switch {
	case status == 0:
		outcome = "unreachable"
	case status >= 200 && status < 300:
		outcome = "ok"
	}
	m.backendTotal.WithLabelValues(method, endpoint, outcome).Inc()
	m.backendDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObservePayout counts a submitted batch payment.
func (m *Metrics) ObservePayout(mode string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.payoutBatches.WithLabelValues(mode, outcome).Inc()
}

// ObserveStalePoll counts an alert-count response dropped for being out of order.
func (m *Metrics) ObserveStalePoll(role string) {
	if m == nil {
		return
	}
	m.pollDropped.WithLabelValues(role).Inc()
}

// Jobs exposes the job collectors bound to this registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
