package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/platinummonkey/helpdesk/pkg/api"
	"github.com/platinummonkey/helpdesk/pkg/async"
	"github.com/platinummonkey/helpdesk/pkg/audit"
	"github.com/platinummonkey/helpdesk/pkg/config"
	"github.com/platinummonkey/helpdesk/pkg/directory"
	"github.com/platinummonkey/helpdesk/pkg/identity"
	"github.com/platinummonkey/helpdesk/pkg/middleware"
	"github.com/platinummonkey/helpdesk/pkg/observability"
	"github.com/platinummonkey/helpdesk/pkg/rbac"
	"github.com/platinummonkey/helpdesk/pkg/scheduler"
	"github.com/platinummonkey/helpdesk/pkg/session"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Helpdesk identity service failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Starting helpdesk identity service")
	if cfg.Identity.BrokerSecret == "" {
		logger.Warn("HELPDESK_BROKER_SECRET is not set; claims writes are disabled")
	}
	if cfg.Identity.DevelopmentFallbackEnabled {
		logger.Warnf("Development identity fallback is enabled (%s)", cfg.Identity.DevelopmentEmail)
	}

	// OpenTelemetry
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Prometheus
	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	// Session store
	store, redisClient, err := openSessionStore(cfg.Session, metrics)
	if err != nil {
		return err
	}
	logger.WithField("store", cfg.Session.StoreType).Info("Session store ready")

	sessions := session.NewManager(store, session.ManagerOptions{
		Identity: identity.Options{
			Parser:                     identity.NewParser(cfg.Identity.OrgDomain, logger),
			Resolver:                   rbac.NewResolver(rbac.WithAdminUsers(cfg.Identity.AdminUsers...)),
			DevelopmentFallbackEnabled: cfg.Identity.DevelopmentFallbackEnabled,
			DevelopmentEmail:           cfg.Identity.DevelopmentEmail,
			DevelopmentName:            cfg.Identity.DevelopmentName,
		},
		MaxSessions: cfg.Session.MaxSessions,
		TTL:         cfg.Session.TTL,
		Logger:      logger,
		Metrics:     metrics,
	})

	// Department mappings
	table := directory.NewTable(directory.WithLogger(logger), directory.WithMetrics(metrics))
	if err := loadMappings(table, cfg.Directory.MappingsFile, logger); err != nil {
		return err
	}
	background := async.NewGroup(ctx, logger)
	if cfg.Directory.Watch {
		background.Go("department-mappings-watch", func(ctx context.Context) error {
			return table.Watch(ctx, cfg.Directory.MappingsFile)
		})
	}

	sched := scheduler.New(logger)
	if err := sched.Add("department-mappings-reload", cfg.Directory.ReloadSchedule, func(ctx context.Context) error {
		return table.Reload(cfg.Directory.MappingsFile)
	}); err != nil {
		return err
	}

	// Rate limiting
	var limiter middleware.Limiter
	if cfg.RateLimit.Enabled {
		limitConfig := &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerMinute,
			WindowDuration:    time.Minute,
			BurstSize:         cfg.RateLimit.Burst,
		}
		if redisClient != nil {
			limiter = middleware.NewDistributedRateLimiter(redisClient, limitConfig, "", metrics)
		} else {
			local := middleware.NewRateLimiter(limitConfig)
			if err := sched.Add("rate-limit-cleanup", cfg.RateLimit.CleanupSchedule, func(ctx context.Context) error {
				local.Cleanup()
				return nil
			}); err != nil {
				return err
			}
			limiter = local
		}
	}
	sched.Start()

	auditLogger, err := openAuditLogger(cfg.Audit)
	if err != nil {
		return err
	}

	// API server
	server := api.NewServer(api.Options{
		Sessions:     sessions,
		Directory:    table,
		Logger:       logger,
		Metrics:      metrics,
		Limiter:      limiter,
		Audit:        auditLogger,
		CookieSecure: cfg.Server.CookieSecure,
		SessionTTL:   cfg.Session.TTL,
		MappingsFile: cfg.Directory.MappingsFile,
		BrokerSecret: cfg.Identity.BrokerSecret,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics server (separate port for k8s probes)
	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(cfg.Observability.OTelServiceVersion)
	if redisClient != nil {
		checker.AddCheck("session_store", true, observability.RedisCheck(redisClient))
	}
	checker.AddCheck("department_mappings", false, func(ctx context.Context) error {
		if table.Len() == 0 {
			return errors.New("department mapping table is empty")
		}
		return nil
	})
	observability.RegisterHealthRoutes(healthMux, checker)
	if metrics != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, httpServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		cancel()
		if err := sched.Stop(ctx); err != nil {
			return err
		}
		return background.Wait(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return sessions.Close()
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return auditLogger.Close()
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	serveErr := make(chan error, 2)
	for _, srv := range []*http.Server{httpServer, healthServer} {
		srv := srv
		async.SafeGo(ctx, logger, "listen "+srv.Addr, func(ctx context.Context) error {
			logger.Infof("Listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	waitCtx, stopWaiting := context.WithCancel(ctx)
	defer stopWaiting()
	go func() {
		if err := <-serveErr; err != nil {
			logger.WithError(err).Error("HTTP server failed")
			stopWaiting()
		}
	}()

	return shutdown.WaitForShutdown(waitCtx)
}

// openSessionStore builds the configured session store. The Redis client is
// returned for health checks and distributed rate limiting.
func openSessionStore(cfg config.SessionConfig, metrics *observability.Metrics) (session.Store, *redis.Client, error) {
	if cfg.StoreType != config.StoreRedis {
		return session.NewMemoryStore(cfg.MaxSessions, cfg.TTL), nil, nil
	}

	store, err := session.OpenRedisStore(session.RedisConfig{
		URL:        cfg.RedisURL,
		Password:   cfg.RedisPassword,
		DB:         cfg.RedisDB,
		MaxRetries: cfg.RedisMaxRetries,
		PoolSize:   cfg.RedisPoolSize,
		KeyPrefix:  cfg.RedisKeyPrefix,
		TTL:        cfg.TTL,
	}, metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open redis session store: %w", err)
	}
	return store, store.Client(), nil
}

// openAuditLogger keeps recent events in memory for GET /api/audit and, when
// a directory is configured, appends every event to rotated files there.
func openAuditLogger(cfg config.AuditConfig) (audit.Logger, error) {
	memory := audit.NewMemoryLogger(cfg.BufferSize)
	if cfg.Dir == "" {
		return memory, nil
	}

	file, err := audit.NewFileLogger(audit.FileLoggerConfig{
		BasePath: cfg.Dir,
		Rotate:   true,
		MaxSize:  int64(cfg.MaxSizeMB) * 1024 * 1024,
		MaxFiles: cfg.MaxFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return audit.NewMultiLogger(memory, file), nil
}

// loadMappings loads the mappings file when configured. A missing file is
// created from the built-in table.
func loadMappings(table *directory.Table, path string, logger *observability.Logger) error {
	if path == "" {
		logger.Info("Using built-in department mappings")
		return nil
	}

	err := table.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.WithField("path", path).Info("Department mappings file not found, writing defaults")
		return table.SaveFile(path)
	}
	return err
}
