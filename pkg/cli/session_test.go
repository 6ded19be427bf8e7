package cli

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/helpdesk/pkg/rbac"
	"github.com/platinummonkey/helpdesk/pkg/session"
)

func seedSession(t *testing.T, mr *miniredis.Miniredis, payload string) string {
	t.Helper()
	store, err := session.OpenRedisStore(session.RedisConfig{URL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	id := session.NewID()
	require.NoError(t, store.Set(ctx, id, session.CreatedKey, []byte(time.Now().UTC().Format(time.RFC3339))))
	if payload != "" {
		require.NoError(t, store.Set(ctx, id, session.ClaimsKey, []byte(payload)))
	}
	return id
}

func TestSession(t *testing.T) {
	mr := miniredis.RunT(t)
	id := seedSession(t, mr, `{"email":"boss@americor.com","groups":["Badminton Club"]}`)
	out, _ := captureOutput(t, "")

	err := NewRootCommand().ExecuteArgs([]string{"session", "-redis-url", "redis://" + mr.Addr(), "-id", id, "-explain"})
	require.NoError(t, err)

	var result resolveOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &result), out.String())
	assert.Equal(t, "boss@americor.com", result.Email)
	assert.Equal(t, rbac.RoleAdmin, result.Role)
	require.NotNil(t, result.Decision)
	assert.Equal(t, "contains-admin", result.Decision.Rule)
}

func TestSession_Errors(t *testing.T) {
	mr := miniredis.RunT(t)
	url := "redis://" + mr.Addr()
	captureOutput(t, "")

	err := NewRootCommand().ExecuteArgs([]string{"session", "-redis-url", url})
	assert.Error(t, err)

	err = NewRootCommand().ExecuteArgs([]string{"session", "-redis-url", url, "-id", session.NewID()})
	assert.ErrorIs(t, err, session.ErrNotFound)

	err = NewRootCommand().ExecuteArgs([]string{"session", "-redis-url", url, "-id", "not-a-uuid"})
	assert.ErrorIs(t, err, session.ErrInvalidSessionID)

	empty := seedSession(t, mr, "")
	err = NewRootCommand().ExecuteArgs([]string{"session", "-redis-url", url, "-id", empty})
	assert.Error(t, err)
}
