// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here so that
// producers and consumers agree on the key and on the stored type.
//
// USAGE PATTERN:
//
//	ctx = contextkeys.WithSessionID(ctx, id)
//	id := contextkeys.GetSessionID(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// IdentityServiceKey contains *identity.Service
	// Set by: middleware.SessionMiddleware (pkg/middleware/session.go)
	// Required by: route guards, /api/me handlers, ActingUserTransport
	IdentityServiceKey Key = "identity_service"

	// SessionIDKey contains the session id string
	// Set by: middleware.SessionMiddleware
	// Used by: Logger, session handlers
	SessionIDKey Key = "session_id"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: httputil.RequestIDMiddleware
	LoggerKey Key = "logger"
)

// WithIdentityService adds the session's identity service to the context
func WithIdentityService(ctx context.Context, svc interface{}) context.Context {
	return context.WithValue(ctx, IdentityServiceKey, svc)
}

// WithSessionID adds the session id to the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetSessionID retrieves the session id from context
func GetSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
