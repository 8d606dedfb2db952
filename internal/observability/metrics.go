package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics holds all Prometheus metric instruments for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Domain metrics
	AppointmentsCreatedTotal prometheus.Counter
	EnrollmentsCreatedTotal  *prometheus.CounterVec
	EnrollmentsDeletedTotal  prometheus.Counter
	AdditionReconcilesTotal  *prometheus.CounterVec
	MailsSentTotal           *prometheus.CounterVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anmelde_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "anmelde_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		AppointmentsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anmelde_appointments_created_total",
			Help: "Total number of appointments created.",
		}),
		EnrollmentsCreatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anmelde_enrollments_created_total",
			Help: "Total number of enrollments created.",
		}, []string{"kind"}), // kind: user, anonymous
		EnrollmentsDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anmelde_enrollments_deleted_total",
			Help: "Total number of enrollments deleted.",
		}),
		AdditionReconcilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anmelde_addition_reconciles_total",
			Help: "Total number of addition list reconciliations.",
		}, []string{"status"}), // status: ok, rejected
		MailsSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anmelde_mails_sent_total",
			Help: "Total number of enrollment mails sent.",
		}, []string{"status"}), // status: ok, error
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AppointmentsCreatedTotal,
		m.EnrollmentsCreatedTotal,
		m.EnrollmentsDeletedTotal,
		m.AdditionReconcilesTotal,
		m.MailsSentTotal,
	)

	return m
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
}

// RecordEnrollmentCreated records an enrollment creation.
func (m *Metrics) RecordEnrollmentCreated(anonymous bool) {
	kind := "user"
	if anonymous {
		kind = "anonymous"
	}
	m.EnrollmentsCreatedTotal.WithLabelValues(kind).Inc()
}

// RecordAdditionReconcile records an addition reconciliation outcome.
func (m *Metrics) RecordAdditionReconcile(ok bool) {
	status := "rejected"
	if ok {
		status = "ok"
	}
	m.AdditionReconcilesTotal.WithLabelValues(status).Inc()
}

// RecordMailSent records an outbound mail delivery outcome.
func (m *Metrics) RecordMailSent(ok bool) {
	status := "error"
	if ok {
		status = "ok"
	}
	m.MailsSentTotal.WithLabelValues(status).Inc()
}

// MetricsMiddleware returns HTTP middleware that records request metrics
// using chi's route pattern (not the actual URL path) to avoid label
// cardinality explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		m.RecordHTTPRequest(r.Method, routePattern(r), sw.status, time.Since(start))
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture the status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}
