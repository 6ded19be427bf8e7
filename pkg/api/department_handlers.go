package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/helpdesk/pkg/audit"
	"github.com/platinummonkey/helpdesk/pkg/directory"
	"github.com/platinummonkey/helpdesk/pkg/httputil"
	"github.com/platinummonkey/helpdesk/pkg/middleware"
	"github.com/platinummonkey/helpdesk/pkg/observability"
)

// listDepartments handles GET /api/departments. ?sorted=true orders by name.
func (s *Server) listDepartments(w http.ResponseWriter, r *http.Request) {
	mappings := s.directory.Mappings()
	if httputil.ParseQueryBool(r, "sorted") {
		mappings = s.directory.Sorted()
	}
	httputil.WriteSuccess(w, DepartmentsResponse{Mappings: mappings})
}

// getOrganizationalUnit handles GET /api/departments/{name}/ou
func (s *Server) getOrganizationalUnit(w http.ResponseWriter, r *http.Request) {
	name, err := httputil.ParsePathString(r, "name")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	ou := s.directory.OrganizationalUnit(name)
	httputil.WriteSuccess(w, OrganizationalUnitResponse{
		Department:         name,
		OrganizationalUnit: ou,
		Found:              ou != "",
	})
}

// addDepartment handles POST /api/departments
func (s *Server) addDepartment(w http.ResponseWriter, r *http.Request) {
	var mapping directory.Mapping
	if !httputil.ParseJSONOrError(w, r, &mapping) {
		return
	}

	if err := s.directory.Add(mapping); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	s.auditMappingChange(r, audit.EventTypeDirectoryMappingAdd, nil, mapping)
	httputil.WriteCreated(w, mapping)
}

// replaceDepartments handles PUT /api/departments
func (s *Server) replaceDepartments(w http.ResponseWriter, r *http.Request) {
	var req DepartmentsResponse
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	before := s.directory.Mappings()
	if err := s.directory.ReplaceAll(req.Mappings); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	s.auditMappingChange(r, audit.EventTypeDirectoryMappingReplace, before, s.directory.Mappings())
	httputil.WriteSuccess(w, DepartmentsResponse{Mappings: s.directory.Mappings()})
}

// removeDepartment handles DELETE /api/departments/{index}
func (s *Server) removeDepartment(w http.ResponseWriter, r *http.Request) {
	index, ok := httputil.ParsePathIntOrError(w, r, "index")
	if !ok {
		return
	}

	removed, err := s.directory.Remove(index)
	if errors.Is(err, directory.ErrIndexOutOfRange) {
		httputil.WriteNotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	s.auditMappingChange(r, audit.EventTypeDirectoryMappingRemove, removed, nil)
	httputil.WriteSuccess(w, removed)
}

// resetDepartments handles POST /api/departments/reset
func (s *Server) resetDepartments(w http.ResponseWriter, r *http.Request) {
	before := s.directory.Mappings()
	s.directory.ResetToDefaults()
	s.auditMappingChange(r, audit.EventTypeDirectoryMappingReset, before, s.directory.Mappings())
	httputil.WriteSuccess(w, DepartmentsResponse{Mappings: s.directory.Mappings()})
}

// auditMappingChange records who changed the table and persists it when a
// mappings file is configured. A failed save is logged; the in-memory table
// stays authoritative.
func (s *Server) auditMappingChange(r *http.Request, eventType audit.EventType, before, after interface{}) {
	logger := observability.FromContext(r.Context()).WithField("action", eventType)
	if id := middleware.GetIdentity(r); id != nil {
		logger = logger.WithField("actor", id.Email)
	}
	logger.Info("Department mappings changed")

	event := audit.NewEvent(r, eventType, audit.EventStatusSuccess)
	event.Changes = &audit.ChangeDetails{Before: before, After: after}
	s.recordEvent(r, event)

	if s.opts.MappingsFile == "" {
		return
	}
	if err := s.directory.SaveFile(s.opts.MappingsFile); err != nil {
		logger.WithError(err).Error("Failed to persist department mappings")
	}
}
