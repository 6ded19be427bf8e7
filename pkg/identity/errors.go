package identity

import "errors"

var (
	// ErrMissingEmail is returned when claims are present but neither email
	// nor preferred_username yields a usable address. Not retried.
	ErrMissingEmail = errors.New("no email found in SSO claims")

	// ErrMalformedClaims is returned when the stored claims payload is not a
	// JSON object
	ErrMalformedClaims = errors.New("malformed SSO claims")

	// ErrNotAuthenticated is returned by CurrentEmail when no identity is
	// available and the development fallback is disabled
	ErrNotAuthenticated = errors.New("user not authenticated via SSO")

	// ErrNoClaims is returned by a ClaimsSource when the session holds no
	// claims payload
	ErrNoClaims = errors.New("no SSO claims in session")
)

// errorKind labels an error for metrics
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrMissingEmail):
		return "missing_email"
	case errors.Is(err, ErrMalformedClaims):
		return "malformed_claims"
	default:
		return "store"
	}
}

// isClaimsError reports whether err comes from the payload itself rather
// than from reading it. Only these outcomes are memoized.
func isClaimsError(err error) bool {
	return errors.Is(err, ErrMissingEmail) || errors.Is(err, ErrMalformedClaims)
}
