// Package rbac maps SSO identities to one of three roles and expands roles
// into fixed permission sets.
//
// # Roles and Permissions
//
// Roles form a closed set: RoleAdmin, RoleIT and RoleUser. Each role expands
// to a permission set through a static table:
//
//	RoleUser   view_user
//	RoleIT     everything except delete_user and view_audit_logs
//	RoleAdmin  all ten permissions
//
// # Resolution
//
// Resolver.Resolve evaluates, first match wins:
//
//  1. The administrator allow-list (exact email match) returns RoleAdmin
//     without looking at groups.
//  2. Each group, lower-cased and in order, is tested against DefaultRules:
//     exact admin names, exact IT names, "admin" substring, then "it" or
//     "information technology" substring.
//  3. Otherwise RoleUser.
//
// Because the scan stops at the first matching entry, an early group that
// only matches a substring rule wins over a later group with an exact match:
//
//	r := rbac.NewResolver()
//	r.Resolve("x@y.com", []string{"something admin-ish", "it"}) // RoleAdmin
//
// Substring rules also match unrelated names ("Badminton Club" contains
// "admin", "Security" contains "it"). This is existing policy and is kept as
// is; pass WithRules to tighten it.
package rbac
