package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	// None of these may panic
	m.RecordResolution("admin", "claims")
	m.RecordIdentityError("store")
	m.RecordPermissionCheck("view_user", true)
	m.RecordSessionLookup(true)
	m.SetActiveSessions(3)
	m.ObserveRedisCommand("hget", time.Now(), nil)
	m.RecordDirectoryLookup(false)
	m.RecordDirectoryReload(nil)
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordResolution("it", "claims")
	m.RecordIdentityError("missing_email")
	m.RecordPermissionCheck("delete_user", false)
	m.RecordSessionLookup(true)
	m.RecordSessionLookup(false)
	m.SetActiveSessions(7)
	m.ObserveRedisCommand("hget", time.Now(), errors.New("down"))
	m.RecordDirectoryLookup(true)
	m.RecordDirectoryReload(errors.New("bad yaml"))

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"resolutions", testutil.ToFloat64(m.IdentityResolutionsTotal.WithLabelValues("it", "claims")), 1},
		{"identity errors", testutil.ToFloat64(m.IdentityErrorsTotal.WithLabelValues("missing_email")), 1},
		{"permission checks", testutil.ToFloat64(m.PermissionChecksTotal.WithLabelValues("delete_user", "false")), 1},
		{"session hits", testutil.ToFloat64(m.SessionLookupsTotal.WithLabelValues("hit")), 1},
		{"session misses", testutil.ToFloat64(m.SessionLookupsTotal.WithLabelValues("miss")), 1},
		{"active sessions", testutil.ToFloat64(m.SessionsActive), 7},
		{"redis errors", testutil.ToFloat64(m.RedisCommandsTotal.WithLabelValues("hget", "error")), 1},
		{"directory found", testutil.ToFloat64(m.DirectoryLookupsTotal.WithLabelValues("found")), 1},
		{"directory reload errors", testutil.ToFloat64(m.DirectoryReloadsTotal.WithLabelValues("error")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/api/me/roles/{role}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, role := range []string{"admin", "it"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/me/roles/"+role, nil))
	}

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/me/roles/{role}", "418"))
	if got != 2 {
		t.Errorf("Expected 2 requests on the route template, got %v", got)
	}
}

func TestHTTPMetricsMiddleware_NilMetrics(t *testing.T) {
	called := false
	handler := HTTPMetricsMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("Expected the wrapped handler to run")
	}
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RecordResolution("user", "claims")

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "helpdesk_identity_resolutions_total") {
		t.Error("Expected identity resolution metric in output")
	}
}
