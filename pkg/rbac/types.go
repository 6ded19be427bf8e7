package rbac

import (
	"fmt"
	"strings"
)

// Role is the coarse authorization tier held by a user. Exactly one role
// is assigned per identity.
type Role string

const (
	RoleAdmin Role = "admin" // Full access, including deletes and audit logs
	RoleIT    Role = "it"    // Onboarding, offboarding, scripts and settings
	RoleUser  Role = "user"  // Read-only access to user records
)

// AllRoles returns the closed set of roles, most privileged first
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleIT, RoleUser}
}

// ParseRole parses a role name case-insensitively
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleIT:
		return RoleIT, nil
	case RoleUser:
		return RoleUser, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Permission is a fine-grained capability tag gating a specific action
type Permission string

const (
	// User management
	PermissionCreateUser Permission = "create_user"
	PermissionEditUser   Permission = "edit_user"
	PermissionDeleteUser Permission = "delete_user"
	PermissionViewUser   Permission = "view_user"

	// Bulk operations
	PermissionBulkOnboard  Permission = "bulk_onboard"
	PermissionBulkOffboard Permission = "bulk_offboard"

	// Script execution
	PermissionExecuteScripts Permission = "execute_scripts"
	PermissionViewScriptLogs Permission = "view_script_logs"

	// System administration
	PermissionManageSettings Permission = "manage_settings"
	PermissionViewAuditLogs  Permission = "view_audit_logs"
)

// AllPermissions returns the closed set of permissions in canonical order
func AllPermissions() []Permission {
	return []Permission{
		PermissionCreateUser,
		PermissionEditUser,
		PermissionDeleteUser,
		PermissionViewUser,
		PermissionBulkOnboard,
		PermissionBulkOffboard,
		PermissionExecuteScripts,
		PermissionViewScriptLogs,
		PermissionManageSettings,
		PermissionViewAuditLogs,
	}
}

// ParsePermission parses a permission tag. Both "create_user" and
// "create-user" spellings are accepted.
func ParsePermission(s string) (Permission, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, p := range AllPermissions() {
		if string(p) == normalized {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
}

// PermissionSet is an immutable, ordered set of permissions
type PermissionSet []Permission

// Has reports whether p is in the set
func (ps PermissionSet) Has(p Permission) bool {
	for _, candidate := range ps {
		if candidate == p {
			return true
		}
	}
	return false
}

// Strings returns the permission tags as plain strings
func (ps PermissionSet) Strings() []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}
