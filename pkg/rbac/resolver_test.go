package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_AdminAllowList(t *testing.T) {
	r := NewResolver()

	groupSets := [][]string{
		nil,
		{},
		{"it"},
		{"Help Desk Management Tool - IT"},
		{"marketing", "sales"},
	}

	for _, groups := range groupSets {
		assert.Equal(t, RoleAdmin, r.Resolve("cristian.rodriguez@americor.com", groups), "groups: %v", groups)
	}

	decision := r.Explain("cristian.rodriguez@americor.com", []string{"it"})
	assert.Equal(t, RuleAdminAllowList, decision.Rule)
	assert.Equal(t, -1, decision.GroupIndex)
}

func TestResolver_AllowListIsExact(t *testing.T) {
	r := NewResolver()
	assert.Equal(t, RoleUser, r.Resolve("CRISTIAN.RODRIGUEZ@americor.com", nil))
	assert.Equal(t, RoleUser, r.Resolve("cristian.rodriguez", nil))
}

func TestResolver_CustomAdminUsers(t *testing.T) {
	r := NewResolver(WithAdminUsers("boss@example.com", " ", ""))

	assert.Equal(t, RoleAdmin, r.Resolve("boss@example.com", nil))
	assert.Equal(t, RoleUser, r.Resolve("cristian.rodriguez@americor.com", nil))
	assert.True(t, r.IsAdminUser("boss@example.com"))
	assert.False(t, r.IsAdminUser(""))
}

func TestResolver_GroupScan(t *testing.T) {
	r := NewResolver()

	tests := []struct {
		name   string
		groups []string
		role   Role
		rule   string
		index  int
	}{
		{"no groups", []string{}, RoleUser, RuleDefault, -1},
		{"nil groups", nil, RoleUser, RuleDefault, -1},
		{"exact admin tool group", []string{"Help Desk Management Tool - Admin"}, RoleAdmin, "exact-admin", 0},
		{"exact admin", []string{"ADMIN"}, RoleAdmin, "exact-admin", 0},
		{"exact it tool group", []string{"Help Desk Management Tool - IT"}, RoleIT, "exact-it", 0},
		{"exact it", []string{"It"}, RoleIT, "exact-it", 0},
		{"substring admin", []string{"Domain Admins"}, RoleAdmin, "contains-admin", 0},
		{"substring it", []string{"IT Support"}, RoleIT, "contains-it", 0},
		{"information technology", []string{"Information Technology"}, RoleIT, "contains-it", 0},
		{"unrelated groups", []string{"marketing", "sales"}, RoleUser, RuleDefault, -1},
		{"later group matches", []string{"marketing", "admin"}, RoleAdmin, "exact-admin", 1},
		{"loose match earlier wins", []string{"something admin-ish", "it"}, RoleAdmin, "contains-admin", 0},
		{"loose it earlier beats exact admin", []string{"Security", "admin"}, RoleIT, "contains-it", 0},
		{"substring catches unrelated name", []string{"Badminton Club"}, RoleAdmin, "contains-admin", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := r.Explain("x@y.com", tt.groups)
			assert.Equal(t, tt.role, decision.Role)
			assert.Equal(t, tt.rule, decision.Rule)
			assert.Equal(t, tt.index, decision.GroupIndex)
			assert.Equal(t, tt.role, r.Resolve("x@y.com", tt.groups))
		})
	}
}

func TestResolver_WithRules(t *testing.T) {
	strict := NewResolver(WithRules(DefaultRules()[:2]...))

	assert.Equal(t, RoleUser, strict.Resolve("x@y.com", []string{"Domain Admins"}))
	assert.Equal(t, RoleIT, strict.Resolve("x@y.com", []string{"Domain Admins", "it"}))
}

func TestPermissionsFor(t *testing.T) {
	t.Run("user", func(t *testing.T) {
		assert.Equal(t, PermissionSet{PermissionViewUser}, PermissionsFor(RoleUser))
	})

	t.Run("it", func(t *testing.T) {
		perms := PermissionsFor(RoleIT)
		assert.False(t, perms.Has(PermissionDeleteUser))
		assert.False(t, perms.Has(PermissionViewAuditLogs))
		assert.True(t, perms.Has(PermissionExecuteScripts))
		assert.True(t, perms.Has(PermissionManageSettings))
		assert.Len(t, perms, 8)
	})

	t.Run("admin has everything", func(t *testing.T) {
		assert.ElementsMatch(t, AllPermissions(), PermissionsFor(RoleAdmin))
	})

	t.Run("privilege is monotonic", func(t *testing.T) {
		for _, p := range PermissionsFor(RoleUser) {
			assert.True(t, PermissionsFor(RoleIT).Has(p))
		}
		for _, p := range PermissionsFor(RoleIT) {
			assert.True(t, PermissionsFor(RoleAdmin).Has(p))
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		assert.Empty(t, PermissionsFor(Role("superuser")))
	})

	t.Run("returns a copy", func(t *testing.T) {
		perms := PermissionsFor(RoleUser)
		perms[0] = PermissionDeleteUser
		assert.Equal(t, PermissionSet{PermissionViewUser}, PermissionsFor(RoleUser))
	})
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	role, err = ParseRole("IT")
	require.NoError(t, err)
	assert.Equal(t, RoleIT, role)

	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission("delete-user")
	require.NoError(t, err)
	assert.Equal(t, PermissionDeleteUser, p)

	p, err = ParsePermission("VIEW_AUDIT_LOGS")
	require.NoError(t, err)
	assert.Equal(t, PermissionViewAuditLogs, p)

	_, err = ParsePermission("launch_missiles")
	assert.ErrorIs(t, err, ErrUnknownPermission)
}

func TestPermissionSet_Strings(t *testing.T) {
	assert.Equal(t, []string{"view_user"}, PermissionsFor(RoleUser).Strings())
	assert.Len(t, AllPermissions(), 10)
}
