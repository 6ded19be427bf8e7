package audit

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/helpdesk/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records an event
	Log(ctx context.Context, event *Event) error

	// Close flushes and releases the logger
	Close() error
}

// Searcher is implemented by loggers that can answer queries
type Searcher interface {
	Search(ctx context.Context, filter Filter) ([]*Event, error)
}

// ErrSearchUnsupported is returned when no logger can answer a query
var ErrSearchUnsupported = errors.New("audit search not supported")

// NopLogger discards every event
type NopLogger struct{}

func (NopLogger) Log(ctx context.Context, event *Event) error { return nil }
func (NopLogger) Close() error                                { return nil }

// NewEvent creates an event populated from the request and its context
func NewEvent(r *http.Request, eventType EventType, status EventStatus) *Event {
	event := &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
	}
	if r == nil {
		return event
	}

	ctx := r.Context()
	event.RequestID = contextkeys.GetRequestID(ctx)
	event.SessionID = contextkeys.GetSessionID(ctx)
	event.IPAddress = clientIP(r)
	event.UserAgent = r.UserAgent()
	event.Method = r.Method
	event.Path = r.URL.Path
	return event
}

// clientIP extracts the originating client IP from the request
func clientIP(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	// Fall back to RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
