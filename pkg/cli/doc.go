// Package cli provides the helpdesk command-line interface for inspecting
// identities and department mappings from the terminal.
//
// # Commands
//
// resolve: Resolve a claims payload into an identity
//
//	helpdesk resolve -file claims.json -explain
//	cat claims.json | helpdesk resolve -org-domain example.com
//
// check: Check a claims payload for a permission (exit status 1 when denied)
//
//	helpdesk check -file claims.json -permission delete_user
//
// ou: Look up a department's organizational unit
//
//	helpdesk ou "Customer Service"
//	helpdesk ou -mappings departments.yaml Sales
//
// departments: List department mappings
//
//	helpdesk departments -sorted -format yaml
//
// session: Show the identity held by a Redis-backed session
//
//	helpdesk session -redis-url redis://localhost:6379/0 -id <session id>
//
// Diagnostics go to stderr; -log-level debug shows every step.
package cli
