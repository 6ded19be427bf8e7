package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/helpdesk/pkg/session"
)

// failingStore is a session store whose backend is down
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	return nil, errStoreDown
}
func (failingStore) Set(ctx context.Context, sessionID, key string, value []byte) error {
	return errStoreDown
}
func (failingStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	return false, errStoreDown
}
func (failingStore) Delete(ctx context.Context, sessionID string) error { return errStoreDown }
func (failingStore) Close() error                                       { return nil }

func newManager(t *testing.T) *session.Manager {
	t.Helper()
	return session.NewManager(session.NewMemoryStore(100, time.Hour), session.ManagerOptions{})
}

// newSessionWithClaims creates a session holding payload; an empty payload
// leaves the session without claims
func newSessionWithClaims(t *testing.T, mgr *session.Manager, payload string) string {
	t.Helper()
	ctx := context.Background()
	id, err := mgr.Create(ctx)
	require.NoError(t, err)
	if payload != "" {
		_, err = mgr.StoreClaims(ctx, id, []byte(payload))
		require.NoError(t, err)
	}
	return id
}

func requestWithSession(method, target, sessionID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionID})
	}
	return req
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})
