package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/platinummonkey/helpdesk/pkg/identity"
)

// Value keys written by this service
const (
	// ClaimsKey holds the serialized SSO claims object
	ClaimsKey = "userClaims"
	// CreatedKey holds the RFC 3339 creation time of the session
	CreatedKey = "createdAt"
)

// Store is session-scoped key/value storage
type Store interface {
	// Get returns ErrNotFound when the session or the key is missing
	Get(ctx context.Context, sessionID, key string) ([]byte, error)
	Set(ctx context.Context, sessionID, key string, value []byte) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	// Delete removes the session and all its values
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// ValidateID checks that id is a session id minted by NewID
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSessionID, err)
	}
	return nil
}

// NewID mints a random session id
func NewID() string {
	return uuid.NewString()
}

// ClaimsSource reads the claims payload of one session from store
func ClaimsSource(store Store, sessionID string) identity.ClaimsSource {
	return identity.ClaimsSourceFunc(func(ctx context.Context) ([]byte, error) {
		data, err := store.Get(ctx, sessionID, ClaimsKey)
		if errors.Is(err, ErrNotFound) {
			return nil, identity.ErrNoClaims
		}
		if err != nil {
			return nil, err
		}
		return data, nil
	})
}
