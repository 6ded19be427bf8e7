package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

type dependencyCheck struct {
	name     string
	required bool
	fn       CheckFunc
}

// HealthChecker reports liveness and readiness of the service. A failing
// required check makes the service unhealthy; an optional one degrades it.
type HealthChecker struct {
	version string

	mu     sync.RWMutex
	checks []dependencyCheck
}

// NewHealthChecker creates a health checker without dependencies
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{version: version}
}

// AddCheck registers a dependency probe. Checks run in name order.
func (h *HealthChecker) AddCheck(name string, required bool, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, dependencyCheck{name: name, required: required, fn: fn})
	sort.Slice(h.checks, func(i, j int) bool { return h.checks[i].name < h.checks[j].name })
}

// RedisCheck pings client
func RedisCheck(client *redis.Client) CheckFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string        `json:"status"`
	Required  bool          `json:"required"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Liveness always returns 200 while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Version:   h.version,
	})
}

// Readiness returns 503 when a required dependency fails
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

func writeHealth(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// Check runs every registered probe
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := make([]dependencyCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(checks)),
	}

	for _, c := range checks {
		dep := runCheck(ctx, c)
		status.Dependencies[c.name] = dep
		switch {
		case dep.Status == StatusHealthy:
		case c.required:
			status.Status = StatusUnhealthy
		case status.Status == StatusHealthy:
			status.Status = StatusDegraded
		}
	}

	return status
}

func runCheck(ctx context.Context, c dependencyCheck) DependencyStatus {
	start := time.Now()
	dep := DependencyStatus{
		Status:    StatusHealthy,
		Required:  c.required,
		Timestamp: start,
	}

	err := c.fn(ctx)
	dep.Latency = time.Since(start)
	if err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
	}
	return dep
}

// RegisterHealthRoutes registers health check endpoints
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}
