package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/platinummonkey/helpdesk/pkg/audit"
	"github.com/platinummonkey/helpdesk/pkg/httputil"
	"github.com/platinummonkey/helpdesk/pkg/middleware"
	"github.com/platinummonkey/helpdesk/pkg/observability"
)

// AuditResponse lists audit events, newest first
type AuditResponse struct {
	Events []*audit.Event `json:"events"`
}

// recordEvent fills the actor from the request's identity and writes event.
// Audit failures are logged and never fail the request.
func (s *Server) recordEvent(r *http.Request, event *audit.Event) {
	id := middleware.GetIdentity(r)
	if id == nil {
		if svc := middleware.GetIdentityService(r); svc != nil {
			id = svc.Cached()
		}
	}
	if id != nil && event.Actor == "" {
		event.Actor = id.Email
		event.Role = string(id.Role)
	}

	if err := s.audit.Log(r.Context(), event); err != nil {
		observability.FromContext(r.Context()).WithError(err).
			WithField("event_type", event.EventType).
			Warn("Failed to write audit event")
	}
}

// searchAudit handles GET /api/audit
//
// Query parameters: event_type (repeatable), actor, status, since (RFC 3339)
// and limit.
func (s *Server) searchAudit(w http.ResponseWriter, r *http.Request) {
	searcher, ok := s.audit.(audit.Searcher)
	if !ok {
		httputil.WriteErrorMessage(w, http.StatusNotImplemented, audit.ErrSearchUnsupported.Error())
		return
	}

	query := r.URL.Query()
	filter := audit.Filter{
		Actor:  query.Get("actor"),
		Status: audit.EventStatus(query.Get("status")),
	}
	for _, t := range query["event_type"] {
		filter.EventTypes = append(filter.EventTypes, audit.EventType(t))
	}
	if raw := query.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid since: "+err.Error())
			return
		}
		filter.Since = since
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.WriteBadRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	events, err := searcher.Search(r.Context(), filter)
	if errors.Is(err, audit.ErrSearchUnsupported) {
		httputil.WriteErrorMessage(w, http.StatusNotImplemented, err.Error())
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to search audit log")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, AuditResponse{Events: events})
}
