package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/helpdesk/pkg/httputil"
	"github.com/platinummonkey/helpdesk/pkg/identity"
	"github.com/platinummonkey/helpdesk/pkg/middleware"
	"github.com/platinummonkey/helpdesk/pkg/observability"
	"github.com/platinummonkey/helpdesk/pkg/rbac"
)

// getMe handles GET /api/me
func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	resp := newIdentityResponse(middleware.GetIdentity(r))

	if httputil.ParseQueryBool(r, "explain") {
		decision, err := middleware.GetIdentityService(r).Explain(r.Context())
		if err != nil {
			s.writeIdentityError(w, r, err)
			return
		}
		resp.Decision = decision
	}

	httputil.WriteSuccess(w, resp)
}

// getEmail handles GET /api/me/email
func (s *Server) getEmail(w http.ResponseWriter, r *http.Request) {
	svc := middleware.GetIdentityService(r)
	if svc == nil {
		httputil.WriteUnauthorized(w, identity.ErrNotAuthenticated.Error())
		return
	}

	email, err := svc.CurrentEmail(r.Context())
	if errors.Is(err, identity.ErrNotAuthenticated) {
		httputil.WriteUnauthorized(w, err.Error())
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to read acting user email")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, EmailResponse{Email: email})
}

// checkPermission handles GET /api/me/permissions/{permission}. A request
// without identity gets allowed=false, never an error.
func (s *Server) checkPermission(w http.ResponseWriter, r *http.Request) {
	name, err := httputil.ParsePathString(r, "permission")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	permission, err := rbac.ParsePermission(name)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	allowed := false
	if svc := middleware.GetIdentityService(r); svc != nil {
		allowed = svc.HasPermission(r.Context(), permission)
	}
	s.metrics.RecordPermissionCheck(string(permission), allowed)

	httputil.WriteSuccess(w, PermissionCheckResponse{Permission: permission, Allowed: allowed})
}

// checkRole handles GET /api/me/roles/{role}
func (s *Server) checkRole(w http.ResponseWriter, r *http.Request) {
	name, err := httputil.ParsePathString(r, "role")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	role, err := rbac.ParseRole(name)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	matches := false
	if svc := middleware.GetIdentityService(r); svc != nil {
		matches = svc.IsRole(r.Context(), role)
	}

	httputil.WriteSuccess(w, RoleCheckResponse{Role: role, Matches: matches})
}
