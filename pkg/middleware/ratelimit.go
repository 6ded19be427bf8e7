package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/helpdesk/pkg/contextkeys"
	"github.com/platinummonkey/helpdesk/pkg/httputil"
	"github.com/platinummonkey/helpdesk/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
}

// DefaultRateLimitConfig returns default per-user rate limit settings
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 300,
		WindowDuration:    time.Minute,
		BurstSize:         50,
	}
}

// Limiter decides whether a keyed request may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Remaining(ctx context.Context, key string) (int, error)
	Config() *RateLimitConfig
}

// RateLimiter is an in-process token bucket limiter
type RateLimiter struct {
	config  *RateLimitConfig
	buckets map[string]*bucket
	mu      sync.RWMutex
}

type bucket struct {
	tokens     int
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
	}
}

// Config returns the limiter settings
func (rl *RateLimiter) Config() *RateLimitConfig {
	return rl.config
}

// Allow consumes a token for key. It never fails.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	rl.mu.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     rl.config.RequestsPerWindow + rl.config.BurstSize,
			lastUpdate: time.Now(),
		}
		rl.buckets[key] = b
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastUpdate)

	// Refill tokens based on elapsed time
	tokensToAdd := int(elapsed.Seconds() * float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds())
	if tokensToAdd > 0 {
		b.tokens += tokensToAdd
		maxTokens := rl.config.RequestsPerWindow + rl.config.BurstSize
		if b.tokens > maxTokens {
			b.tokens = maxTokens
		}
		b.lastUpdate = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Remaining returns the number of remaining tokens for a key
func (rl *RateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	rl.mu.RLock()
	b, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		return rl.config.RequestsPerWindow + rl.config.BurstSize, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens, nil
}

// Cleanup removes idle buckets
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, b := range rl.buckets {
		b.mu.Lock()
		if now.Sub(b.lastUpdate) > rl.config.WindowDuration*2 {
			delete(rl.buckets, key)
		}
		b.mu.Unlock()
	}
}

// StartCleanup removes idle buckets every window until ctx is cancelled
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RateLimitKey keys a request by acting user, then session, then client IP
func RateLimitKey(r *http.Request) string {
	if svc := GetIdentityService(r); svc != nil {
		if id := svc.Cached(); id != nil {
			return "user:" + strings.ToLower(id.Email)
		}
	}
	if sessionID := contextkeys.GetSessionID(r.Context()); sessionID != "" {
		return "session:" + sessionID
	}
	return "ip:" + getClientIP(r)
}

// RateLimitMiddleware rejects requests over the limiter's budget with 429.
// With failOpen, limiter errors let the request through.
func RateLimitMiddleware(limiter Limiter, failOpen bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := RateLimitKey(r)
			config := limiter.Config()

			allowed, err := limiter.Allow(ctx, key)
			if err != nil {
				observability.FromContext(ctx).WithError(err).Warn("Rate limiter unavailable")
				if failOpen {
					next.ServeHTTP(w, r)
					return
				}
				httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "service temporarily unavailable")
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", config.RequestsPerWindow))
			if !allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", config.WindowDuration.Seconds()))
				w.Header().Set("X-RateLimit-Remaining", "0")
				httputil.WriteTooManyRequests(w, "rate limit exceeded")
				return
			}

			if remaining, err := limiter.Remaining(ctx, key); err == nil {
				w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func getClientIP(r *http.Request) string {
	// Behind a proxy the first forwarded address is the client
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
