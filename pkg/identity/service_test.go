package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/helpdesk/pkg/observability"
	"github.com/platinummonkey/helpdesk/pkg/rbac"
)

// fakeSource is an in-memory session with a mutable claims payload
type fakeSource struct {
	mu    sync.Mutex
	data  []byte
	err   error
	calls int
}

func (f *fakeSource) LoadClaims(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.data == nil {
		return nil, ErrNoClaims
	}
	return f.data, nil
}

func (f *fakeSource) set(payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = []byte(payload)
}

func (f *fakeSource) loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestService_Initialize(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves claims", func(t *testing.T) {
		src := &fakeSource{}
		src.set(`{"email":"jane@americor.com","name":"Jane","groups":["Help Desk Management Tool - IT"]}`)
		svc := NewService(src, Options{})

		id, err := svc.Initialize(ctx)
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, "jane@americor.com", id.Email)
		assert.Equal(t, "Jane", id.Name)
		assert.Equal(t, rbac.RoleIT, id.Role)
		assert.Equal(t, rbac.PermissionsFor(rbac.RoleIT), id.Permissions)
		assert.Equal(t, SourceClaims, id.Source)
		assert.Same(t, id, svc.Cached())
	})

	t.Run("no claims without fallback", func(t *testing.T) {
		svc := NewService(&fakeSource{}, Options{})

		id, err := svc.Initialize(ctx)
		require.NoError(t, err)
		assert.Nil(t, id)
	})

	t.Run("no claims with development fallback", func(t *testing.T) {
		svc := NewService(&fakeSource{}, Options{DevelopmentFallbackEnabled: true})

		id, err := svc.Initialize(ctx)
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, DefaultDevelopmentEmail, id.Email)
		assert.Equal(t, DefaultDevelopmentName, id.Name)
		assert.Equal(t, rbac.RoleAdmin, id.Role)
		assert.Equal(t, []string{"admin"}, id.Groups)
		assert.Equal(t, SourceDevelopmentFallback, id.Source)
	})

	t.Run("custom development identity", func(t *testing.T) {
		svc := NewService(&fakeSource{}, Options{
			DevelopmentFallbackEnabled: true,
			DevelopmentEmail:           "dev@example.com",
			DevelopmentName:            "Dev",
		})

		id, err := svc.Initialize(ctx)
		require.NoError(t, err)
		assert.Equal(t, "dev@example.com", id.Email)
		assert.Equal(t, "Dev", id.Name)
	})

	t.Run("malformed claims", func(t *testing.T) {
		src := &fakeSource{}
		src.set(`{not json`)
		svc := NewService(src, Options{})

		id, err := svc.Initialize(ctx)
		assert.ErrorIs(t, err, ErrMalformedClaims)
		assert.Nil(t, id)
		assert.False(t, svc.HasPermission(ctx, rbac.PermissionViewUser))
	})

	t.Run("malformed claims with development fallback", func(t *testing.T) {
		src := &fakeSource{}
		src.set(`{not json`)
		svc := NewService(src, Options{DevelopmentFallbackEnabled: true})

		id, err := svc.Initialize(ctx)
		require.NoError(t, err)
		assert.Equal(t, SourceDevelopmentFallback, id.Source)
	})

	t.Run("missing email is surfaced even with fallback", func(t *testing.T) {
		src := &fakeSource{}
		src.set(`{"name":"No Email"}`)
		svc := NewService(src, Options{DevelopmentFallbackEnabled: true})

		id, err := svc.Initialize(ctx)
		assert.ErrorIs(t, err, ErrMissingEmail)
		assert.Nil(t, id)
	})

	t.Run("store errors are not memoized", func(t *testing.T) {
		src := &fakeSource{err: errors.New("connection refused")}
		svc := NewService(src, Options{})

		_, err := svc.CurrentIdentity(ctx)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrMissingEmail))

		src.mu.Lock()
		src.err = nil
		src.mu.Unlock()
		src.set(`{"email":"jane@x.com"}`)

		id, err := svc.CurrentIdentity(ctx)
		require.NoError(t, err)
		assert.Equal(t, "jane@x.com", id.Email)
	})
}

func TestService_CurrentIdentityIsMemoized(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	src.set(`{"email":"jane@x.com","groups":["it"]}`)
	svc := NewService(src, Options{})

	first, err := svc.CurrentIdentity(ctx)
	require.NoError(t, err)

	// Session storage changes are not observed until re-initialization.
	src.set(`{"email":"jane@x.com","groups":["admin"]}`)

	second, err := svc.CurrentIdentity(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, rbac.RoleIT, second.Role)
	assert.Equal(t, 1, src.loads())

	third, err := svc.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, third.Role)
	assert.NotSame(t, first, third)
	assert.Equal(t, rbac.RoleIT, first.Role, "old identity must not be mutated")
}

func TestService_AbsentIdentityInitializesOnce(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	svc := NewService(src, Options{})

	for i := 0; i < 3; i++ {
		id, err := svc.CurrentIdentity(ctx)
		require.NoError(t, err)
		assert.Nil(t, id)
	}
	assert.Equal(t, 1, src.loads())

	src.set(`{"email":"jane@x.com"}`)
	svc.Reset()

	id, err := svc.CurrentIdentity(ctx)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, 2, src.loads())
}

func TestService_ConcurrentFirstAccess(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	src.set(`{"email":"jane@x.com","groups":["admin"]}`)
	svc := NewService(src, Options{})

	var wg sync.WaitGroup
	results := make([]*ResolvedIdentity, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := svc.CurrentIdentity(ctx)
			assert.NoError(t, err)
			results[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range results {
		assert.Same(t, results[0], id)
	}
}

func TestService_Predicates(t *testing.T) {
	ctx := context.Background()

	t.Run("user role", func(t *testing.T) {
		src := &fakeSource{}
		src.set(`{"email":"x@y.com","groups":[]}`)
		svc := NewService(src, Options{})

		assert.True(t, svc.HasPermission(ctx, rbac.PermissionViewUser))
		assert.False(t, svc.HasPermission(ctx, rbac.PermissionCreateUser))
		assert.True(t, svc.IsRole(ctx, rbac.RoleUser))
		assert.False(t, svc.IsAdmin(ctx))
		assert.False(t, svc.IsIT(ctx))
	})

	t.Run("allow-listed admin", func(t *testing.T) {
		src := &fakeSource{}
		src.set(`{"email":"cristian.rodriguez@americor.com","groups":["marketing"]}`)
		svc := NewService(src, Options{})

		assert.True(t, svc.IsAdmin(ctx))
		assert.True(t, svc.HasPermission(ctx, rbac.PermissionViewAuditLogs))
	})

	t.Run("no identity fails closed", func(t *testing.T) {
		svc := NewService(&fakeSource{}, Options{})
		for _, p := range rbac.AllPermissions() {
			assert.False(t, svc.HasPermission(ctx, p))
		}
		for _, r := range rbac.AllRoles() {
			assert.False(t, svc.IsRole(ctx, r))
		}
	})

	t.Run("predicates trigger lazy initialization", func(t *testing.T) {
		src := &fakeSource{}
		src.set(`{"email":"x@y.com","Role":"it"}`)
		svc := NewService(src, Options{})

		assert.Nil(t, svc.Cached())
		assert.True(t, svc.IsIT(ctx))
		assert.NotNil(t, svc.Cached())
	})
}

func TestService_CurrentEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("from cache", func(t *testing.T) {
		src := &fakeSource{}
		src.set(`{"email":"cached@x.com"}`)
		svc := NewService(src, Options{})
		_, err := svc.Initialize(ctx)
		require.NoError(t, err)

		src.set(`{"email":"changed@x.com"}`)
		email, err := svc.CurrentEmail(ctx)
		require.NoError(t, err)
		assert.Equal(t, "cached@x.com", email)
	})

	t.Run("direct read does not memoize", func(t *testing.T) {
		src := &fakeSource{}
		src.set(`{"preferred_username":"jdoe"}`)
		svc := NewService(src, Options{})

		email, err := svc.CurrentEmail(ctx)
		require.NoError(t, err)
		assert.Equal(t, "jdoe@americor.com", email)
		assert.Nil(t, svc.Cached())
	})

	t.Run("development default", func(t *testing.T) {
		svc := NewService(&fakeSource{}, Options{DevelopmentFallbackEnabled: true})

		email, err := svc.CurrentEmail(ctx)
		require.NoError(t, err)
		assert.Equal(t, DefaultDevelopmentEmail, email)
	})

	t.Run("not authenticated", func(t *testing.T) {
		svc := NewService(&fakeSource{}, Options{})

		_, err := svc.CurrentEmail(ctx)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("unusable claims are not authenticated", func(t *testing.T) {
		src := &fakeSource{}
		src.set(`{"name":"nobody"}`)
		svc := NewService(src, Options{})

		_, err := svc.CurrentEmail(ctx)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})
}

func TestService_Explain(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	src.set(`{"email":"x@y.com","groups":["something admin-ish","it"]}`)
	svc := NewService(src, Options{})

	decision, err := svc.Explain(ctx)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, decision.Role)
	assert.Equal(t, "contains-admin", decision.Rule)
	assert.Equal(t, 0, decision.GroupIndex)

	_, err = NewService(&fakeSource{}, Options{}).Explain(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestService_Explain_DevelopmentFallback(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&fakeSource{}, Options{
		DevelopmentFallbackEnabled: true,
		DevelopmentEmail:           "dev@example.com",
	})

	decision, err := svc.Explain(ctx)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, decision.Role)
	assert.Equal(t, RuleDevelopmentFallback, decision.Rule)
	assert.Equal(t, -1, decision.GroupIndex)
	assert.Empty(t, decision.Group)

	// The synthetic "admin" group would otherwise be reported as a group match
	id, err := svc.CurrentIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceDevelopmentFallback, id.Source)
	assert.Equal(t, decision.Role, id.Role)
}

func TestService_RawClaims(t *testing.T) {
	src := &fakeSource{}
	src.set(`{"email":"x@y.com"}`)
	svc := NewService(src, Options{})

	data, err := svc.RawClaims(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"x@y.com"}`, string(data))

	_, err = NewService(&fakeSource{}, Options{}).RawClaims(context.Background())
	assert.ErrorIs(t, err, ErrNoClaims)
}

func TestService_Metrics(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	src := &fakeSource{}
	src.set(`{"email":"x@y.com","groups":["it"]}`)
	_, err := NewService(src, Options{Metrics: metrics}).Initialize(ctx)
	require.NoError(t, err)

	bad := &fakeSource{}
	bad.set(`{}`)
	_, err = NewService(bad, Options{Metrics: metrics}).Initialize(ctx)
	require.ErrorIs(t, err, ErrMissingEmail)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.IdentityResolutionsTotal.WithLabelValues("it", SourceClaims)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.IdentityErrorsTotal.WithLabelValues("missing_email")))
}

func TestClaimsSourceFunc(t *testing.T) {
	src := ClaimsSourceFunc(func(ctx context.Context) ([]byte, error) {
		return []byte(`{"email":"f@x.com"}`), nil
	})
	email, err := NewService(src, Options{}).CurrentEmail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "f@x.com", email)
}

func TestResolvedIdentity_Capabilities(t *testing.T) {
	it := &ResolvedIdentity{Role: rbac.RoleIT, Permissions: rbac.PermissionsFor(rbac.RoleIT)}

	assert.True(t, it.CanCreateUser())
	assert.True(t, it.CanEditUser())
	assert.False(t, it.CanDeleteUser())
	assert.True(t, it.CanViewUser())
	assert.True(t, it.CanBulkOnboard())
	assert.True(t, it.CanBulkOffboard())
	assert.True(t, it.CanExecuteScripts())
	assert.True(t, it.CanViewScriptLogs())
	assert.True(t, it.CanManageSettings())
	assert.False(t, it.CanViewAuditLogs())

	caps := it.Capabilities()
	assert.Len(t, caps, 10)
	assert.False(t, caps["delete_user"])
	assert.True(t, caps["manage_settings"])

	var none *ResolvedIdentity
	assert.False(t, none.CanViewUser())
	assert.False(t, none.IsAdmin())
}
