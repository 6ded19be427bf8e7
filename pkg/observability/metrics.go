package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Identity metrics
	IdentityResolutionsTotal *prometheus.CounterVec
	IdentityErrorsTotal      *prometheus.CounterVec
	PermissionChecksTotal    *prometheus.CounterVec

	// Session metrics
	SessionLookupsTotal *prometheus.CounterVec
	SessionsActive      prometheus.Gauge

	// Redis metrics
	RedisCommandsTotal   *prometheus.CounterVec
	RedisCommandDuration *prometheus.HistogramVec

	// Directory metrics
	DirectoryLookupsTotal *prometheus.CounterVec
	DirectoryReloadsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helpdesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "helpdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		IdentityResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helpdesk_identity_resolutions_total",
				Help: "Total number of identities resolved, by role and source",
			},
			[]string{"role", "source"},
		),
		IdentityErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helpdesk_identity_errors_total",
				Help: "Total number of identity resolution failures",
			},
			[]string{"kind"},
		),
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helpdesk_permission_checks_total",
				Help: "Total number of permission checks performed by route guards",
			},
			[]string{"permission", "allowed"},
		),

		SessionLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helpdesk_session_lookups_total",
				Help: "Total number of session identity service lookups",
			},
			[]string{"result"},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "helpdesk_sessions_active",
				Help: "Number of sessions with a live identity service",
			},
		),

		RedisCommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helpdesk_redis_commands_total",
				Help: "Total number of Redis commands",
			},
			[]string{"command", "status"},
		),
		RedisCommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "helpdesk_redis_command_duration_seconds",
				Help:    "Redis command duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"command"},
		),

		DirectoryLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helpdesk_directory_lookups_total",
				Help: "Total number of department to OU lookups",
			},
			[]string{"result"},
		),
		DirectoryReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "helpdesk_directory_reloads_total",
				Help: "Total number of department mapping file reloads",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.IdentityResolutionsTotal,
		m.IdentityErrorsTotal,
		m.PermissionChecksTotal,
		m.SessionLookupsTotal,
		m.SessionsActive,
		m.RedisCommandsTotal,
		m.RedisCommandDuration,
		m.DirectoryLookupsTotal,
		m.DirectoryReloadsTotal,
	)

	return m
}

// RecordResolution counts a resolved identity by role and source
func (m *Metrics) RecordResolution(role, source string) {
	if m == nil {
		return
	}
	m.IdentityResolutionsTotal.WithLabelValues(role, source).Inc()
}

// RecordIdentityError counts a failed resolution by error kind
func (m *Metrics) RecordIdentityError(kind string) {
	if m == nil {
		return
	}
	m.IdentityErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordPermissionCheck counts a guard decision
func (m *Metrics) RecordPermissionCheck(permission string, allowed bool) {
	if m == nil {
		return
	}
	m.PermissionChecksTotal.WithLabelValues(permission, strconv.FormatBool(allowed)).Inc()
}

// RecordSessionLookup counts a session registry hit or miss
func (m *Metrics) RecordSessionLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SessionLookupsTotal.WithLabelValues(result).Inc()
}

// SetActiveSessions reports the number of live session services
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// ObserveRedisCommand records a Redis command outcome and latency
func (m *Metrics) ObserveRedisCommand(command string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RedisCommandsTotal.WithLabelValues(command, status).Inc()
	m.RedisCommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
}

// RecordDirectoryLookup counts an OU lookup
func (m *Metrics) RecordDirectoryLookup(found bool) {
	if m == nil {
		return
	}
	result := "not_found"
	if found {
		result = "found"
	}
	m.DirectoryLookupsTotal.WithLabelValues(result).Inc()
}

// RecordDirectoryReload counts a mapping file reload
func (m *Metrics) RecordDirectoryReload(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.DirectoryReloadsTotal.WithLabelValues(status).Inc()
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel prefers the mux route template over the raw path to keep
// label cardinality bounded.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
