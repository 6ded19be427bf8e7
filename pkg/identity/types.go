package identity

import "github.com/platinummonkey/helpdesk/pkg/rbac"

// RawClaims is the untyped claims bag written by the identity broker. Values
// may be strings, arrays of strings, or absent.
type RawClaims map[string]any

// CanonicalIdentity is a normalized user record. Email always contains "@"
// and Name is never empty.
type CanonicalIdentity struct {
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Groups []string `json:"groups"`
}

// Identity sources
const (
	SourceClaims              = "claims"
	SourceDevelopmentFallback = "development_fallback"
)

// RuleDevelopmentFallback is the Decision rule reported for the development
// identity, whose role is fixed rather than resolved from groups
const RuleDevelopmentFallback = "development-fallback"

// ResolvedIdentity is the unit cached for a session. It is never mutated
// after construction; re-initialization replaces it.
type ResolvedIdentity struct {
	Email       string             `json:"email"`
	Name        string             `json:"name"`
	Groups      []string           `json:"groups"`
	Role        rbac.Role          `json:"role"`
	Permissions rbac.PermissionSet `json:"permissions"`
	Source      string             `json:"source"`
}

// HasPermission reports whether the identity holds p. Nil identities hold nothing.
func (id *ResolvedIdentity) HasPermission(p rbac.Permission) bool {
	if id == nil {
		return false
	}
	return id.Permissions.Has(p)
}

// IsRole reports whether the identity has role r
func (id *ResolvedIdentity) IsRole(r rbac.Role) bool {
	return id != nil && id.Role == r
}

func (id *ResolvedIdentity) IsAdmin() bool { return id.IsRole(rbac.RoleAdmin) }
func (id *ResolvedIdentity) IsIT() bool    { return id.IsRole(rbac.RoleIT) }

// Capability helpers used by UI permission gates.

func (id *ResolvedIdentity) CanCreateUser() bool {
	return id.HasPermission(rbac.PermissionCreateUser)
}

func (id *ResolvedIdentity) CanEditUser() bool {
	return id.HasPermission(rbac.PermissionEditUser)
}

func (id *ResolvedIdentity) CanDeleteUser() bool {
	return id.HasPermission(rbac.PermissionDeleteUser)
}

func (id *ResolvedIdentity) CanViewUser() bool {
	return id.HasPermission(rbac.PermissionViewUser)
}

func (id *ResolvedIdentity) CanBulkOnboard() bool {
	return id.HasPermission(rbac.PermissionBulkOnboard)
}

func (id *ResolvedIdentity) CanBulkOffboard() bool {
	return id.HasPermission(rbac.PermissionBulkOffboard)
}

func (id *ResolvedIdentity) CanExecuteScripts() bool {
	return id.HasPermission(rbac.PermissionExecuteScripts)
}

func (id *ResolvedIdentity) CanViewScriptLogs() bool {
	return id.HasPermission(rbac.PermissionViewScriptLogs)
}

func (id *ResolvedIdentity) CanManageSettings() bool {
	return id.HasPermission(rbac.PermissionManageSettings)
}

func (id *ResolvedIdentity) CanViewAuditLogs() bool {
	return id.HasPermission(rbac.PermissionViewAuditLogs)
}

// Capabilities returns every permission tag with its current value, the
// shape consumed by the frontend to toggle controls
func (id *ResolvedIdentity) Capabilities() map[string]bool {
	caps := make(map[string]bool, len(rbac.AllPermissions()))
	for _, p := range rbac.AllPermissions() {
		caps[string(p)] = id.HasPermission(p)
	}
	return caps
}
