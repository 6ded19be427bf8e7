// Package session stores per-session values and owns the identity service of
// each live session.
//
// A Store keeps small byte values keyed by session id and value key. The SSO
// callback writes the validated claims payload under ClaimsKey; the identity
// service reads it back through ClaimsSource.
//
// Two stores are provided:
//
//   - MemoryStore: bounded in-process LRU with a TTL per session
//   - RedisStore: one Redis hash per session, TTL refreshed on every write
//
// The Manager mints session ids, keeps one identity.Service per session in a
// bounded registry and re-initializes it whenever new claims are stored:
//
//	mgr := session.NewManager(store, session.ManagerOptions{})
//	id, _ := mgr.Create(ctx)
//	resolved, err := mgr.StoreClaims(ctx, id, payload)
package session
