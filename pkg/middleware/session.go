package middleware

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/helpdesk/pkg/contextkeys"
	"github.com/platinummonkey/helpdesk/pkg/httputil"
	"github.com/platinummonkey/helpdesk/pkg/identity"
	"github.com/platinummonkey/helpdesk/pkg/observability"
	"github.com/platinummonkey/helpdesk/pkg/session"
)

// Session id transport
const (
	SessionCookieName = "helpdesk_session"
	SessionHeader     = "X-Session-ID"
)

// SessionIDFromRequest returns the session id from the session cookie or,
// failing that, the X-Session-ID header
func SessionIDFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.Header.Get(SessionHeader)
}

// SessionMiddleware attaches the identity service of the request's session
// to the request context. Requests without a known session pass through
// without one; guards decide whether that is acceptable.
func SessionMiddleware(mgr *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := SessionIDFromRequest(r)
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			svc, err := mgr.Service(ctx, sessionID)
			switch {
			case err == nil:
				ctx = contextkeys.WithSessionID(ctx, sessionID)
				ctx = contextkeys.WithIdentityService(ctx, svc)
			case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrInvalidSessionID):
				observability.FromContext(ctx).WithError(err).Debug("Ignoring unknown session")
			default:
				observability.FromContext(ctx).WithError(err).Error("Failed to load session")
				httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "session store unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentityService returns the session's identity service, or nil when
// the request carries no known session
func GetIdentityService(r *http.Request) *identity.Service {
	svc, ok := r.Context().Value(contextkeys.IdentityServiceKey).(*identity.Service)
	if !ok {
		return nil
	}
	return svc
}
