// Package api exposes the session identity and the department mappings over
// HTTP.
//
// # Routes
//
// Session lifecycle:
//
//	POST   /api/session                 create a session, sets the helpdesk_session cookie
//	PUT    /api/session/claims          store validated SSO claims (broker only, JSON object body)
//	POST   /api/session/reinitialize    re-read claims and replace the cached identity
//	DELETE /api/session                 drop identity and stored claims
//
// Claims are written by the identity broker, never by the browser. The
// broker names the session with X-Session-ID and authenticates with
// "Authorization: Bearer <broker secret>".
//
// Identity:
//
//	GET /api/me                          resolved identity (?explain=true adds the matching rule)
//	GET /api/me/email                    acting user email
//	GET /api/me/permissions/{permission} permission check, fails closed
//	GET /api/me/roles/{role}             role check, fails closed
//
// Department mappings (view_user to read, manage_settings to change):
//
//	GET    /api/departments
//	GET    /api/departments/{name}/ou
//	POST   /api/departments
//	PUT    /api/departments
//	DELETE /api/departments/{index}
//	POST   /api/departments/reset
//
// Audit log (view_audit_logs):
//
//	GET /api/audit                       ?event_type=&actor=&status=&since=&limit=
//
// Errors are JSON objects with an "error" field.
package api
