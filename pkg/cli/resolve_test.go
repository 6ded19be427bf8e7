package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/helpdesk/pkg/identity"
	"github.com/platinummonkey/helpdesk/pkg/rbac"
)

type resolveOutput struct {
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	Groups      []string       `json:"groups"`
	Role        rbac.Role      `json:"role"`
	Permissions []string       `json:"permissions"`
	Source      string         `json:"source"`
	Decision    *rbac.Decision `json:"decision"`
}

func TestResolve_Stdin(t *testing.T) {
	out, _ := captureOutput(t, `{"preferred_username":"jdoe","groups":["Sales","Help Desk Management Tool - IT"]}`)

	require.NoError(t, NewRootCommand().ExecuteArgs([]string{"resolve", "-explain"}))

	var result resolveOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &result), out.String())
	assert.Equal(t, "jdoe@americor.com", result.Email)
	assert.Equal(t, "jdoe", result.Name)
	assert.Equal(t, rbac.RoleIT, result.Role)
	assert.Equal(t, identity.SourceClaims, result.Source)
	require.NotNil(t, result.Decision)
	assert.Equal(t, "exact-it", result.Decision.Rule)
	assert.Equal(t, 1, result.Decision.GroupIndex)
}

func TestResolve_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"email":"jdoe"}`), 0644))
	out, _ := captureOutput(t, "")

	err := NewRootCommand().ExecuteArgs([]string{"resolve", "-file", path, "-org-domain", "example.org"})
	require.NoError(t, err)

	var result resolveOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "jdoe@example.org", result.Email)
	assert.Equal(t, rbac.RoleUser, result.Role)
	assert.Equal(t, []string{"view_user"}, result.Permissions)
	assert.Nil(t, result.Decision)
}

func TestResolve_AdminUsers(t *testing.T) {
	out, _ := captureOutput(t, `{"email":"chief@example.org"}`)

	err := NewRootCommand().ExecuteArgs([]string{"resolve", "-admin-users", "other@example.org, chief@example.org"})
	require.NoError(t, err)

	var result resolveOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, rbac.RoleAdmin, result.Role)
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"malformed", `not json`, identity.ErrMalformedClaims},
		{"missing email", `{"name":"Nobody"}`, identity.ErrMissingEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureOutput(t, tt.input)
			err := NewRootCommand().ExecuteArgs([]string{"resolve"})
			assert.ErrorIs(t, err, tt.err)
		})
	}

	captureOutput(t, "")
	err := NewRootCommand().ExecuteArgs([]string{"resolve", "-file", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}

func TestResolve_DebugLogging(t *testing.T) {
	_, errOut := captureOutput(t, `{"email":"jane@x.com"}`)

	require.NoError(t, NewRootCommand().ExecuteArgs([]string{"resolve", "-log-level", "debug"}))
	assert.Contains(t, errOut.String(), "Read claims payload")
	assert.Contains(t, errOut.String(), "Resolved identity")
}

func TestCheck(t *testing.T) {
	claims := `{"email":"tech@americor.com","groups":["it"]}`

	out, _ := captureOutput(t, claims)
	require.NoError(t, NewRootCommand().ExecuteArgs([]string{"check", "-permission", "execute_scripts"}))
	assert.Equal(t, "execute_scripts: allowed\n", out.String())

	out, _ = captureOutput(t, claims)
	err := NewRootCommand().ExecuteArgs([]string{"check", "-permission", "delete_user"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, "delete_user: denied\n", out.String())

	// Unusable claims hold no permissions
	captureOutput(t, `{}`)
	err = NewRootCommand().ExecuteArgs([]string{"check", "-permission", "view_user"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	captureOutput(t, claims)
	assert.Error(t, NewRootCommand().ExecuteArgs([]string{"check"}))
	assert.Error(t, NewRootCommand().ExecuteArgs([]string{"check", "-permission", "fly"}))
}
