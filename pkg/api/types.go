package api

import (
	"github.com/platinummonkey/helpdesk/pkg/directory"
	"github.com/platinummonkey/helpdesk/pkg/identity"
	"github.com/platinummonkey/helpdesk/pkg/rbac"
)

// SessionResponse is returned when a session is created
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// IdentityResponse describes the session's resolved identity
type IdentityResponse struct {
	Authenticated bool            `json:"authenticated"`
	Email         string          `json:"email,omitempty"`
	Name          string          `json:"name,omitempty"`
	Groups        []string        `json:"groups,omitempty"`
	Role          rbac.Role       `json:"role,omitempty"`
	Permissions   []string        `json:"permissions,omitempty"`
	Capabilities  map[string]bool `json:"capabilities,omitempty"`
	Source        string          `json:"source,omitempty"`
	Decision      *rbac.Decision  `json:"decision,omitempty"`
}

func newIdentityResponse(id *identity.ResolvedIdentity) IdentityResponse {
	if id == nil {
		return IdentityResponse{Authenticated: false}
	}
	return IdentityResponse{
		Authenticated: true,
		Email:         id.Email,
		Name:          id.Name,
		Groups:        id.Groups,
		Role:          id.Role,
		Permissions:   id.Permissions.Strings(),
		Capabilities:  id.Capabilities(),
		Source:        id.Source,
	}
}

// EmailResponse carries the acting user's email
type EmailResponse struct {
	Email string `json:"email"`
}

// PermissionCheckResponse answers a permission check
type PermissionCheckResponse struct {
	Permission rbac.Permission `json:"permission"`
	Allowed    bool            `json:"allowed"`
}

// RoleCheckResponse answers a role check
type RoleCheckResponse struct {
	Role    rbac.Role `json:"role"`
	Matches bool      `json:"matches"`
}

// DepartmentsResponse lists the department mappings
type DepartmentsResponse struct {
	Mappings []directory.Mapping `json:"mappings"`
}

// OrganizationalUnitResponse answers an OU lookup. OU is "" for unknown
// departments.
type OrganizationalUnitResponse struct {
	Department         string `json:"department"`
	OrganizationalUnit string `json:"ou"`
	Found              bool   `json:"found"`
}
