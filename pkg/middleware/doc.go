// Package middleware provides the session, authorization and rate limiting
// middleware of the helpdesk API, and the outbound transport that stamps the
// acting user on backend calls.
//
// SessionMiddleware resolves the session from the helpdesk_session cookie or
// the X-Session-ID header and puts its identity.Service on the context:
//
//	router.Use(middleware.SessionMiddleware(manager))
//
// Guards fail closed. No identity is 401, a missing permission or role is 403:
//
//	admin := router.PathPrefix("/api/departments").Subrouter()
//	admin.Use(middleware.RequirePermission(rbac.PermissionManageSettings, metrics))
//
// RateLimitMiddleware keys requests by acting user and accepts either the
// in-process RateLimiter or the Redis-backed DistributedRateLimiter.
//
// ActingUserTransport adds X-Acting-User to outbound requests made with the
// incoming request's context:
//
//	client := middleware.NewActingUserClient(nil)
//	req, _ := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
//	client.Do(req)
package middleware
