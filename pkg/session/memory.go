package session

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMaxSessions bounds in-memory session registries
const DefaultMaxSessions = 10000

// MemoryStore keeps sessions in a bounded in-process LRU. Sessions expire
// ttl after their last write.
type MemoryStore struct {
	cache *lru.LRU[string, *memorySession]
	mu    sync.Mutex
}

type memorySession struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates a memory store holding at most maxSessions
func NewMemoryStore(maxSessions int, ttl time.Duration) *MemoryStore {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &MemoryStore{
		cache: lru.NewLRU[string, *memorySession](maxSessions, nil, ttl),
	}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	sess, ok := s.cache.Get(sessionID)
	if !ok {
		return nil, ErrNotFound
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	value, ok := sess.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryStore) Set(ctx context.Context, sessionID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.cache.Peek(sessionID)
	if !ok {
		sess = &memorySession{values: make(map[string][]byte)}
	}

	sess.mu.Lock()
	sess.values[key] = append([]byte(nil), value...)
	sess.mu.Unlock()

	// Re-adding refreshes the expiry
	s.cache.Add(sessionID, sess)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	return s.cache.Contains(sessionID), nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	// Serialized with Set so a racing write cannot re-add the deleted entry
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(sessionID)
	return nil
}

// Len returns the number of live sessions
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

func (s *MemoryStore) Close() error {
	s.cache.Purge()
	return nil
}
