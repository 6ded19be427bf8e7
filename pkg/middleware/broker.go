package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/platinummonkey/helpdesk/pkg/httputil"
	"github.com/platinummonkey/helpdesk/pkg/observability"
)

// RequireBrokerSecret admits only the identity broker, which presents the
// shared secret as "Authorization: Bearer <secret>". A missing credential is
// 401 and a wrong one 403. An empty secret rejects every request, so claims
// cannot be written until a broker secret is configured.
func RequireBrokerSecret(secret string) func(http.Handler) http.Handler {
	expected := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				httputil.WriteForbidden(w, "claims writes are disabled")
				return
			}

			// Format: "Bearer <secret>"
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				httputil.WriteUnauthorized(w, "broker credentials required")
				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), expected) != 1 {
				observability.FromContext(r.Context()).Warn("Rejected claims write with invalid broker secret")
				httputil.WriteForbidden(w, "invalid broker credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
