// Package identity turns SSO claims stored in a session into a resolved
// identity (email, name, groups, role, permissions) and keeps it for the
// lifetime of the session.
//
// The claims payload is trusted: it was validated by an external identity
// broker before being written to session storage under the "userClaims" key.
// No signature verification or token refresh happens here.
//
// # Parsing
//
//	parser := identity.NewParser("americor.com", logger)
//	canonical, err := parser.Parse(raw)
//
// Email comes from "email" or "preferred_username"; a bare username is
// completed with the organization domain. Name comes from "name", then
// "given_name family_name", then the email local part. Groups are the
// "groups" claim followed by the "Role" (or "role") attribute values; their
// order decides which role rule wins.
//
// # Service lifecycle
//
// A Service is created per session with an explicit ClaimsSource:
//
//	svc := identity.NewService(source, identity.Options{Logger: logger})
//	id, err := svc.CurrentIdentity(ctx) // initializes once
//	svc.HasPermission(ctx, rbac.PermissionDeleteUser)
//	svc.Initialize(ctx)                 // explicit re-read
//	svc.Reset()                         // drop the cached identity
//
// Predicates fail closed: no identity means no permissions.
//
// With Options.DevelopmentFallbackEnabled, a session without usable claims
// gets a fixed administrator identity. Never enable it in a deployed build.
package identity
