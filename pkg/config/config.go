package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/helpdesk/pkg/identity"
	"github.com/platinummonkey/helpdesk/pkg/observability"
	"github.com/platinummonkey/helpdesk/pkg/rbac"
	"github.com/platinummonkey/helpdesk/pkg/scheduler"
)

// Session store types
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Session       SessionConfig
	Identity      IdentityConfig
	Directory     DirectoryConfig
	RateLimit     RateLimitConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// CookieSecure marks the session cookie Secure
	CookieSecure bool
}

// SessionConfig selects and tunes the session store
type SessionConfig struct {
	StoreType   string
	TTL         time.Duration
	MaxSessions int

	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
	RedisKeyPrefix  string
}

// IdentityConfig tunes claims parsing and role resolution
type IdentityConfig struct {
	OrgDomain  string
	AdminUsers []string

	// BrokerSecret authenticates the identity broker when it stores claims.
	// Empty disables claims writes.
	BrokerSecret string

	// Development fallback identity. Never enable in a deployed build.
	DevelopmentFallbackEnabled bool
	DevelopmentEmail           string
	DevelopmentName            string
}

// DirectoryConfig locates an optional department mappings override
type DirectoryConfig struct {
	MappingsFile string
	Watch        bool
	// ReloadSchedule re-reads MappingsFile on a cron schedule; empty disables
	ReloadSchedule string
}

// AuditConfig configures the audit trail
type AuditConfig struct {
	// Dir holds JSON-lines audit files; empty keeps events in memory only
	Dir string
	// BufferSize is the number of recent events kept for GET /api/audit
	BufferSize int
	MaxSizeMB  int
	MaxFiles   int
}

// RateLimitConfig configures per-user request limits
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
	// CleanupSchedule prunes idle in-process buckets on a cron schedule
	CleanupSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Session:       loadSessionConfig(),
		Identity:      loadIdentityConfig(),
		Directory:     loadDirectoryConfig(),
		RateLimit:     loadRateLimitConfig(),
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("HELPDESK_HOST", "0.0.0.0"),
		Port:            getEnv("HELPDESK_PORT", "8080"),
		ReadTimeout:     getEnvDuration("HELPDESK_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("HELPDESK_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("HELPDESK_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("HELPDESK_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("HELPDESK_HEALTH_PORT", "9090"),
		CookieSecure:    getEnvBool("HELPDESK_COOKIE_SECURE", true),
	}
}

// loadSessionConfig loads session store configuration from environment
func loadSessionConfig() SessionConfig {
	return SessionConfig{
		StoreType:       strings.ToLower(getEnv("HELPDESK_SESSION_STORE", StoreMemory)),
		TTL:             getEnvDuration("HELPDESK_SESSION_TTL", 8*time.Hour),
		MaxSessions:     getEnvInt("HELPDESK_MAX_SESSIONS", 10000),
		RedisURL:        getEnv("HELPDESK_REDIS_URL", ""),
		RedisPassword:   getEnv("HELPDESK_REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("HELPDESK_REDIS_DB", 0),
		RedisMaxRetries: getEnvInt("HELPDESK_REDIS_MAX_RETRIES", 3),
		RedisPoolSize:   getEnvInt("HELPDESK_REDIS_POOL_SIZE", 10),
		RedisKeyPrefix:  getEnv("HELPDESK_REDIS_KEY_PREFIX", "helpdesk:session"),
	}
}

// loadIdentityConfig loads identity configuration from environment
func loadIdentityConfig() IdentityConfig {
	return IdentityConfig{
		OrgDomain:                  getEnv("HELPDESK_ORG_DOMAIN", identity.DefaultOrgDomain),
		AdminUsers:                 getEnvList("HELPDESK_ADMIN_USERS", rbac.DefaultAdminUsers),
		BrokerSecret:               getEnv("HELPDESK_BROKER_SECRET", ""),
		DevelopmentFallbackEnabled: getEnvBool("HELPDESK_DEV_FALLBACK", false),
		DevelopmentEmail:           getEnv("HELPDESK_DEV_EMAIL", identity.DefaultDevelopmentEmail),
		DevelopmentName:            getEnv("HELPDESK_DEV_NAME", identity.DefaultDevelopmentName),
	}
}

// loadDirectoryConfig loads directory configuration from environment
func loadDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		MappingsFile:   getEnv("HELPDESK_DEPARTMENT_MAPPINGS", ""),
		Watch:          getEnvBool("HELPDESK_DEPARTMENT_MAPPINGS_WATCH", false),
		ReloadSchedule: getEnv("HELPDESK_DEPARTMENT_MAPPINGS_RELOAD_SCHEDULE", ""),
	}
}

// loadRateLimitConfig loads rate limiting configuration from environment
func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           getEnvBool("HELPDESK_RATE_LIMIT_ENABLED", true),
		RequestsPerMinute: getEnvInt("HELPDESK_RATE_LIMIT_RPM", 300),
		Burst:             getEnvInt("HELPDESK_RATE_LIMIT_BURST", 50),
		CleanupSchedule:   getEnv("HELPDESK_RATE_LIMIT_CLEANUP_SCHEDULE", "*/10 * * * *"),
	}
}

// loadAuditConfig loads audit configuration from environment
func loadAuditConfig() AuditConfig {
	return AuditConfig{
		Dir:        getEnv("HELPDESK_AUDIT_DIR", ""),
		BufferSize: getEnvInt("HELPDESK_AUDIT_BUFFER", 1000),
		MaxSizeMB:  getEnvInt("HELPDESK_AUDIT_MAX_SIZE_MB", 100),
		MaxFiles:   getEnvInt("HELPDESK_AUDIT_MAX_FILES", 10),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("HELPDESK_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("HELPDESK_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("HELPDESK_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("HELPDESK_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("HELPDESK_OTEL_SERVICE_NAME", "helpdesk-identity"),
		OTelServiceVersion: getEnv("HELPDESK_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("HELPDESK_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate session store config based on type
	switch c.Session.StoreType {
	case StoreMemory:
		if c.Session.MaxSessions <= 0 {
			return fmt.Errorf("max sessions must be positive for memory store")
		}
	case StoreRedis:
		if c.Session.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis session store")
		}
	default:
		return fmt.Errorf("invalid session store type: %s (must be memory or redis)", c.Session.StoreType)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	// Validate identity config
	if c.Identity.DevelopmentFallbackEnabled && !strings.Contains(c.Identity.DevelopmentEmail, "@") {
		return fmt.Errorf("development email must be a full address when the fallback is enabled")
	}
	for _, admin := range c.Identity.AdminUsers {
		if !strings.Contains(admin, "@") {
			return fmt.Errorf("invalid admin user %q: must be an email address", admin)
		}
	}

	if c.Directory.Watch && c.Directory.MappingsFile == "" {
		return fmt.Errorf("department mappings file is required when watching is enabled")
	}

	if c.Directory.ReloadSchedule != "" && c.Directory.MappingsFile == "" {
		return fmt.Errorf("department mappings file is required when a reload schedule is set")
	}
	if err := scheduler.ValidateSchedule(c.Directory.ReloadSchedule); err != nil {
		return fmt.Errorf("invalid department mappings reload schedule: %w", err)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requests per minute must be positive")
	}
	if err := scheduler.ValidateSchedule(c.RateLimit.CleanupSchedule); err != nil {
		return fmt.Errorf("invalid rate limit cleanup schedule: %w", err)
	}

	// Validate audit config
	if c.Audit.BufferSize <= 0 {
		return fmt.Errorf("audit buffer size must be positive")
	}
	if c.Audit.Dir != "" && (c.Audit.MaxSizeMB <= 0 || c.Audit.MaxFiles <= 0) {
		return fmt.Errorf("audit max size and max files must be positive when audit dir is set")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default.
// Blank entries are dropped.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
