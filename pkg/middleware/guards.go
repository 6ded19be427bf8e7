package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/platinummonkey/helpdesk/pkg/httputil"
	"github.com/platinummonkey/helpdesk/pkg/identity"
	"github.com/platinummonkey/helpdesk/pkg/observability"
	"github.com/platinummonkey/helpdesk/pkg/rbac"
)

type resolvedIdentityKey struct{}

// GetIdentity returns the identity resolved by a guard earlier in the chain
func GetIdentity(r *http.Request) *identity.ResolvedIdentity {
	id, _ := r.Context().Value(resolvedIdentityKey{}).(*identity.ResolvedIdentity)
	return id
}

// resolve loads the request's identity or writes the failure response.
// Only store failures are reported as 503; every other outcome without an
// identity is 401.
func resolve(w http.ResponseWriter, r *http.Request) (*identity.ResolvedIdentity, bool) {
	svc := GetIdentityService(r)
	if svc == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil, false
	}

	id, err := svc.CurrentIdentity(r.Context())
	if err != nil && !errors.Is(err, identity.ErrMissingEmail) && !errors.Is(err, identity.ErrMalformedClaims) {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to resolve identity")
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "identity unavailable")
		return nil, false
	}
	if id == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil, false
	}
	return id, true
}

func withIdentity(r *http.Request, id *identity.ResolvedIdentity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), resolvedIdentityKey{}, id))
}

// RequireIdentity rejects requests without a resolved identity with 401
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := resolve(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, withIdentity(r, id))
	})
}

// RequirePermission rejects requests whose identity lacks p with 403
func RequirePermission(p rbac.Permission, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := resolve(w, r)
			if !ok {
				return
			}

			allowed := id.HasPermission(p)
			metrics.RecordPermissionCheck(string(p), allowed)
			if !allowed {
				observability.FromContext(r.Context()).WithFields(map[string]interface{}{
					"permission": p,
					"role":       id.Role,
				}).Info("Permission denied")
				httputil.WriteForbidden(w, "permission denied: "+string(p))
				return
			}

			next.ServeHTTP(w, withIdentity(r, id))
		})
	}
}

// RequireRole rejects requests whose identity does not have role with 403
func RequireRole(role rbac.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := resolve(w, r)
			if !ok {
				return
			}

			if !id.IsRole(role) {
				httputil.WriteForbidden(w, "insufficient role")
				return
			}

			next.ServeHTTP(w, withIdentity(r, id))
		})
	}
}
