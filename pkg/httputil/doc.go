// Package httputil provides JSON response helpers, request parsing and the
// common middleware shared by the helpdesk HTTP handlers.
//
// Errors are always written as {"error": "..."} with the given status:
//
//	httputil.WriteForbidden(w, "permission denied: delete_user")
package httputil
