// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health checks and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithSession(sessionID).WithField("role", "admin").Info("identity resolved")
//
// Derived identity fields (email, name, groups) are only logged at debug
// level. Logging never changes control flow.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordResolution("admin", "claims")
//
// All Record* helpers accept a nil *Metrics, so components can be built
// without metrics in tests.
//
// # Tracing
//
// InitOTel installs OTLP gRPC trace and metric exporters as the global
// providers. Tracer returns the module tracer; it is a no-op until InitOTel
// runs.
//
// # Health
//
//	checker := observability.NewHealthChecker(version)
//	checker.AddCheck("session_store", true, observability.RedisCheck(client))
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// A failing required check answers 503; a failing optional check reports
// "degraded" with 200.
package observability
