package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/helpdesk/pkg/audit"
	"github.com/platinummonkey/helpdesk/pkg/directory"
	"github.com/platinummonkey/helpdesk/pkg/httputil"
	"github.com/platinummonkey/helpdesk/pkg/middleware"
	"github.com/platinummonkey/helpdesk/pkg/observability"
	"github.com/platinummonkey/helpdesk/pkg/rbac"
	"github.com/platinummonkey/helpdesk/pkg/session"
)

// Options configures a Server
type Options struct {
	Sessions  *session.Manager
	Directory *directory.Table
	Logger    *observability.Logger
	Metrics   *observability.Metrics

	// Limiter rate limits every request when set
	Limiter middleware.Limiter

	// Audit receives session and department mapping events. Searchable
	// loggers are also served at GET /api/audit.
	Audit audit.Logger

	// BrokerSecret authenticates the identity broker on PUT /api/session/claims.
	// Empty disables claims writes.
	BrokerSecret string

	// CookieSecure marks the session cookie Secure
	CookieSecure bool
	// SessionTTL is the session cookie lifetime
	SessionTTL time.Duration

	// MappingsFile, when set, receives the department table after every change
	MappingsFile string
}

// Server is the helpdesk identity HTTP API
type Server struct {
	router    *mux.Router
	sessions  *session.Manager
	directory *directory.Table
	logger    *observability.Logger
	metrics   *observability.Metrics
	audit     audit.Logger
	opts      Options
}

// NewServer creates a server with all routes registered
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if opts.Directory == nil {
		opts.Directory = directory.NewTable(directory.WithLogger(opts.Logger), directory.WithMetrics(opts.Metrics))
	}
	if opts.Audit == nil {
		opts.Audit = audit.NopLogger{}
	}

	s := &Server{
		router:    mux.NewRouter(),
		sessions:  opts.Sessions,
		directory: opts.Directory,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		audit:     opts.Audit,
		opts:      opts,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(
		httputil.RequestIDMiddleware(s.logger),
		httputil.RecoveryMiddleware,
		httputil.LoggingMiddleware,
		observability.HTTPMetricsMiddleware(s.metrics),
		middleware.SessionMiddleware(s.sessions),
	)
	if s.opts.Limiter != nil {
		s.router.Use(middleware.RateLimitMiddleware(s.opts.Limiter, true))
	}

	api := s.router.PathPrefix("/api").Subrouter()

	// Session routes
	api.HandleFunc("/session", s.createSession).Methods(http.MethodPost)
	api.HandleFunc("/session", s.destroySession).Methods(http.MethodDelete)
	broker := middleware.RequireBrokerSecret(s.opts.BrokerSecret)
	api.Handle("/session/claims", broker(http.HandlerFunc(s.storeClaims))).Methods(http.MethodPut)
	api.HandleFunc("/session/reinitialize", s.reinitialize).Methods(http.MethodPost)

	// Identity routes
	api.Handle("/me", middleware.RequireIdentity(http.HandlerFunc(s.getMe))).Methods(http.MethodGet)
	api.HandleFunc("/me/email", s.getEmail).Methods(http.MethodGet)
	api.HandleFunc("/me/permissions/{permission}", s.checkPermission).Methods(http.MethodGet)
	api.HandleFunc("/me/roles/{role}", s.checkRole).Methods(http.MethodGet)

	// Department routes
	view := middleware.RequirePermission(rbac.PermissionViewUser, s.metrics)
	manage := middleware.RequirePermission(rbac.PermissionManageSettings, s.metrics)

	api.Handle("/departments", view(http.HandlerFunc(s.listDepartments))).Methods(http.MethodGet)
	api.Handle("/departments/{name}/ou", view(http.HandlerFunc(s.getOrganizationalUnit))).Methods(http.MethodGet)
	api.Handle("/departments", manage(http.HandlerFunc(s.addDepartment))).Methods(http.MethodPost)
	api.Handle("/departments", manage(http.HandlerFunc(s.replaceDepartments))).Methods(http.MethodPut)
	api.Handle("/departments/reset", manage(http.HandlerFunc(s.resetDepartments))).Methods(http.MethodPost)
	api.Handle("/departments/{index:[0-9]+}", manage(http.HandlerFunc(s.removeDepartment))).Methods(http.MethodDelete)

	// Audit routes
	viewAudit := middleware.RequirePermission(rbac.PermissionViewAuditLogs, s.metrics)
	api.Handle("/audit", viewAudit(http.HandlerFunc(s.searchAudit))).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the router wrapped with OpenTelemetry HTTP instrumentation
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "helpdesk-api",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					return r.Method + " " + tmpl
				}
			}
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Router exposes the router for additional routes
func (s *Server) Router() *mux.Router {
	return s.router
}
