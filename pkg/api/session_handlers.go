package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/helpdesk/pkg/audit"
	"github.com/platinummonkey/helpdesk/pkg/contextkeys"
	"github.com/platinummonkey/helpdesk/pkg/httputil"
	"github.com/platinummonkey/helpdesk/pkg/identity"
	"github.com/platinummonkey/helpdesk/pkg/middleware"
	"github.com/platinummonkey/helpdesk/pkg/observability"
	"github.com/platinummonkey/helpdesk/pkg/session"
)

// createSession handles POST /api/session
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessions.Create(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to create session")
		s.recordFailure(r, audit.EventTypeSessionCreate, err)
		httputil.WriteInternalError(w)
		return
	}

	event := audit.NewEvent(r, audit.EventTypeSessionCreate, audit.EventStatusSuccess)
	event.SessionID = id
	event.ResourceID = id
	s.recordEvent(r, event)

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteCreated(w, SessionResponse{SessionID: id})
}

// requireSession returns the session id of the request or writes a 401
func requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := contextkeys.GetSessionID(r.Context())
	if id == "" {
		httputil.WriteUnauthorized(w, "no active session")
		return "", false
	}
	return id, true
}

// storeClaims handles PUT /api/session/claims
func (s *Server) storeClaims(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	payload, err := httputil.ReadBody(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	resolved, err := s.sessions.StoreClaims(r.Context(), sessionID, payload)
	if err != nil {
		s.recordFailure(r, audit.EventTypeSessionClaimsStore, err)
		s.writeIdentityError(w, r, err)
		return
	}
	s.recordIdentityEvent(r, audit.EventTypeSessionClaimsStore, resolved)

	httputil.WriteSuccess(w, newIdentityResponse(resolved))
}

// reinitialize handles POST /api/session/reinitialize
func (s *Server) reinitialize(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	resolved, err := s.sessions.Reinitialize(r.Context(), sessionID)
	if err != nil {
		s.recordFailure(r, audit.EventTypeSessionReinitialize, err)
		s.writeIdentityError(w, r, err)
		return
	}
	s.recordIdentityEvent(r, audit.EventTypeSessionReinitialize, resolved)

	httputil.WriteSuccess(w, newIdentityResponse(resolved))
}

// destroySession handles DELETE /api/session
func (s *Server) destroySession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	// Capture the actor before the identity is dropped
	event := audit.NewEvent(r, audit.EventTypeSessionDestroy, audit.EventStatusSuccess)
	event.ResourceID = sessionID
	if svc := middleware.GetIdentityService(r); svc != nil {
		if id := svc.Cached(); id != nil {
			event.Actor = id.Email
			event.Role = string(id.Role)
		}
	}

	if err := s.sessions.Destroy(r.Context(), sessionID); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to destroy session")
		event.Status = audit.EventStatusFailure
		event.ErrorMessage = err.Error()
		s.recordEvent(r, event)
		httputil.WriteInternalError(w)
		return
	}
	s.recordEvent(r, event)

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteNoContent(w)
}

// writeIdentityError maps session and identity errors to responses
func (s *Server) writeIdentityError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrMalformedClaims):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, identity.ErrMissingEmail):
		httputil.WriteErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrInvalidSessionID):
		httputil.WriteUnauthorized(w, "no active session")
	default:
		observability.FromContext(r.Context()).WithError(err).Error("Session operation failed")
		httputil.WriteInternalError(w)
	}
}

// recordIdentityEvent audits a successful resolution with the resolved role
func (s *Server) recordIdentityEvent(r *http.Request, eventType audit.EventType, resolved *identity.ResolvedIdentity) {
	event := audit.NewEvent(r, eventType, audit.EventStatusSuccess)
	event.ResourceID = event.SessionID
	if resolved != nil {
		event.Actor = resolved.Email
		event.Role = string(resolved.Role)
		event.Metadata = map[string]interface{}{"source": resolved.Source}
	}
	s.recordEvent(r, event)
}

// recordFailure audits a failed operation
func (s *Server) recordFailure(r *http.Request, eventType audit.EventType, err error) {
	event := audit.NewEvent(r, eventType, audit.EventStatusFailure)
	event.ResourceID = event.SessionID
	event.ErrorMessage = err.Error()
	s.recordEvent(r, event)
}
