package rbac

// rolePermissions is fixed at build time. Privilege grows from User to IT to
// Admin; IT lacks delete_user and view_audit_logs.
var rolePermissions = map[Role]PermissionSet{
	RoleAdmin: {
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
	},
	RoleIT: {
		PermissionCreateUser,
		PermissionEditUser,
		PermissionViewUser,
		PermissionBulkOnboard,
		PermissionBulkOffboard,
		PermissionExecuteScripts,
		PermissionViewScriptLogs,
		PermissionManageSettings,
	},
	RoleUser: {
		PermissionViewUser,
	},
}

// PermissionsFor expands a role into its permission set. Unknown roles get
// an empty set. The returned slice is a copy and may be modified.
func PermissionsFor(role Role) PermissionSet {
	perms := rolePermissions[role]
	out := make(PermissionSet, len(perms))
	copy(out, perms)
	return out
}
