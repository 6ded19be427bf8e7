package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/helpdesk/pkg/identity"
	"github.com/platinummonkey/helpdesk/pkg/observability"
	"github.com/platinummonkey/helpdesk/pkg/rbac"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(NewMemoryStore(100, time.Hour), ManagerOptions{})
}

func TestManager_CreateAndService(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	id, err := mgr.Create(ctx)
	require.NoError(t, err)
	assert.NoError(t, ValidateID(id))

	svc, err := mgr.Service(ctx, id)
	require.NoError(t, err)

	again, err := mgr.Service(ctx, id)
	require.NoError(t, err)
	assert.Same(t, svc, again)

	// A fresh session has no claims and therefore no identity
	resolved, err := svc.CurrentIdentity(ctx)
	require.NoError(t, err)
	assert.Nil(t, resolved)
	assert.Equal(t, 1, mgr.Len())
}

func TestManager_UnknownSession(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	_, err := mgr.Service(ctx, NewID())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = mgr.Service(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidSessionID)
	assert.Equal(t, 0, mgr.Len())
}

func TestManager_StoreClaims(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)
	id, err := mgr.Create(ctx)
	require.NoError(t, err)

	resolved, err := mgr.StoreClaims(ctx, id, []byte(`{"email":"jane@americor.com","groups":["it"]}`))
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleIT, resolved.Role)

	svc, err := mgr.Service(ctx, id)
	require.NoError(t, err)
	assert.Same(t, resolved, svc.Cached())

	// New claims replace the cached identity
	resolved, err = mgr.StoreClaims(ctx, id, []byte(`{"email":"jane@americor.com","groups":["admin"]}`))
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, resolved.Role)
	assert.True(t, svc.IsAdmin(ctx))
}

func TestManager_StoreClaimsRejectsMalformedPayload(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)
	id, err := mgr.Create(ctx)
	require.NoError(t, err)

	_, err = mgr.StoreClaims(ctx, id, []byte(`[1,2]`))
	assert.ErrorIs(t, err, identity.ErrMalformedClaims)

	_, err = mgr.Store().Get(ctx, id, ClaimsKey)
	assert.ErrorIs(t, err, ErrNotFound, "rejected payload must not be stored")
}

func TestManager_StoreClaimsMissingEmail(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)
	id, err := mgr.Create(ctx)
	require.NoError(t, err)

	_, err = mgr.StoreClaims(ctx, id, []byte(`{"name":"x"}`))
	assert.ErrorIs(t, err, identity.ErrMissingEmail)
}

func TestManager_Reinitialize(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)
	id, err := mgr.Create(ctx)
	require.NoError(t, err)

	svc, err := mgr.Service(ctx, id)
	require.NoError(t, err)
	first, err := svc.CurrentIdentity(ctx)
	require.NoError(t, err)
	assert.Nil(t, first)

	// Written behind the service's back
	require.NoError(t, mgr.Store().Set(ctx, id, ClaimsKey, []byte(`{"email":"x@y.com"}`)))
	cached, err := svc.CurrentIdentity(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached)

	resolved, err := mgr.Reinitialize(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "x@y.com", resolved.Email)
	assert.Equal(t, rbac.RoleUser, resolved.Role)
}

func TestManager_Destroy(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)
	id, err := mgr.Create(ctx)
	require.NoError(t, err)
	_, err = mgr.StoreClaims(ctx, id, []byte(`{"email":"x@y.com"}`))
	require.NoError(t, err)

	svc, err := mgr.Service(ctx, id)
	require.NoError(t, err)

	require.NoError(t, mgr.Destroy(ctx, id))
	assert.Nil(t, svc.Cached())
	assert.Equal(t, 0, mgr.Len())

	_, err = mgr.Service(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, mgr.Destroy(ctx, "nope"), ErrInvalidSessionID)
}

func TestManager_DevelopmentFallback(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(NewMemoryStore(10, time.Hour), ManagerOptions{
		Identity: identity.Options{DevelopmentFallbackEnabled: true},
	})
	id, err := mgr.Create(ctx)
	require.NoError(t, err)

	svc, err := mgr.Service(ctx, id)
	require.NoError(t, err)
	assert.True(t, svc.IsAdmin(ctx))
}

func TestManager_RedisBacked(t *testing.T) {
	ctx := context.Background()
	store, _ := setupRedisStore(t, time.Hour, nil)
	mgr := NewManager(store, ManagerOptions{})

	id, err := mgr.Create(ctx)
	require.NoError(t, err)
	resolved, err := mgr.StoreClaims(ctx, id, []byte(`{"preferred_username":"jdoe","Role":"Help Desk Management Tool - IT"}`))
	require.NoError(t, err)
	assert.Equal(t, "jdoe@americor.com", resolved.Email)
	assert.Equal(t, rbac.RoleIT, resolved.Role)

	// A second manager sharing the store sees the same session
	other := NewManager(store, ManagerOptions{})
	svc, err := other.Service(ctx, id)
	require.NoError(t, err)
	email, err := svc.CurrentEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jdoe@americor.com", email)
}

func TestManager_ConcurrentServiceLookup(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)
	id, err := mgr.Create(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	services := make([]*identity.Service, 16)
	for i := range services {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc, err := mgr.Service(ctx, id)
			assert.NoError(t, err)
			services[i] = svc
		}(i)
	}
	wg.Wait()

	for _, svc := range services {
		assert.Same(t, services[0], svc)
	}
}

func TestManager_Metrics(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	mgr := NewManager(NewMemoryStore(10, time.Hour), ManagerOptions{Metrics: metrics})

	id, err := mgr.Create(ctx)
	require.NoError(t, err)
	_, err = mgr.Service(ctx, id)
	require.NoError(t, err)
	_, err = mgr.Service(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionLookupsTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionLookupsTotal.WithLabelValues("miss")))
}
