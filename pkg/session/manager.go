package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/helpdesk/pkg/identity"
	"github.com/platinummonkey/helpdesk/pkg/observability"
)

// ManagerOptions configures a Manager
type ManagerOptions struct {
	// Identity is passed to every identity.Service the manager creates
	Identity identity.Options
	// MaxSessions bounds the identity service registry
	MaxSessions int
	// TTL evicts idle identity services; zero keeps them until evicted by size
	TTL     time.Duration
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Manager owns the identity service of each live session
type Manager struct {
	store    Store
	opts     ManagerOptions
	services *lru.LRU[string, *identity.Service]
	mu       sync.Mutex
}

// NewManager creates a manager backed by store
func NewManager(store Store, opts ManagerOptions) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if opts.Identity.Logger == nil {
		opts.Identity.Logger = opts.Logger
	}
	if opts.Identity.Metrics == nil {
		opts.Identity.Metrics = opts.Metrics
	}
	if opts.Identity.Parser == nil {
		opts.Identity.Parser = identity.NewParser("", opts.Identity.Logger)
	}

	return &Manager{
		store:    store,
		opts:     opts,
		services: lru.NewLRU[string, *identity.Service](opts.MaxSessions, nil, opts.TTL),
	}
}

// Store returns the backing session store
func (m *Manager) Store() Store {
	return m.store
}

// Create mints a new, empty session
func (m *Manager) Create(ctx context.Context) (string, error) {
	id := NewID()
	created := time.Now().UTC().Format(time.RFC3339)
	if err := m.store.Set(ctx, id, CreatedKey, []byte(created)); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	m.opts.Logger.WithSession(id).Debug("Session created")
	return id, nil
}

// Service returns the identity service of a session, creating it on first
// use. Unknown sessions return ErrNotFound.
func (m *Manager) Service(ctx context.Context, sessionID string) (*identity.Service, error) {
	if err := ValidateID(sessionID); err != nil {
		return nil, err
	}

	if svc, ok := m.services.Get(sessionID); ok {
		m.opts.Metrics.RecordSessionLookup(true)
		return svc, nil
	}

	exists, err := m.store.Exists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		m.opts.Metrics.RecordSessionLookup(false)
		return nil, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another request may have registered it while we checked the store
	if svc, ok := m.services.Get(sessionID); ok {
		m.opts.Metrics.RecordSessionLookup(true)
		return svc, nil
	}

	svc := identity.NewService(ClaimsSource(m.store, sessionID), m.opts.Identity)
	m.services.Add(sessionID, svc)
	m.opts.Metrics.RecordSessionLookup(false)
	m.opts.Metrics.SetActiveSessions(m.services.Len())
	return svc, nil
}

// StoreClaims writes a claims payload into the session and re-initializes
// its identity. The payload must be a JSON object; its content is trusted.
func (m *Manager) StoreClaims(ctx context.Context, sessionID string, payload []byte) (*identity.ResolvedIdentity, error) {
	if _, err := identity.DecodeClaims(payload); err != nil {
		return nil, err
	}

	svc, err := m.Service(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := m.store.Set(ctx, sessionID, ClaimsKey, payload); err != nil {
		return nil, fmt.Errorf("failed to store claims: %w", err)
	}

	return svc.Initialize(ctx)
}

// Reinitialize re-reads the session's claims and replaces its identity
func (m *Manager) Reinitialize(ctx context.Context, sessionID string) (*identity.ResolvedIdentity, error) {
	svc, err := m.Service(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return svc.Initialize(ctx)
}

// Destroy drops the session's identity and deletes its stored values
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}

	m.mu.Lock()
	if svc, ok := m.services.Peek(sessionID); ok {
		svc.Reset()
	}
	m.services.Remove(sessionID)
	m.mu.Unlock()
	m.opts.Metrics.SetActiveSessions(m.services.Len())

	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	m.opts.Logger.WithSession(sessionID).Debug("Session destroyed")
	return nil
}

// Len returns the number of sessions with a live identity service
func (m *Manager) Len() int {
	return m.services.Len()
}

// Close releases the backing store
func (m *Manager) Close() error {
	m.services.Purge()
	return m.store.Close()
}
