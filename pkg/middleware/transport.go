package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/platinummonkey/helpdesk/pkg/contextkeys"
	"github.com/platinummonkey/helpdesk/pkg/identity"
)

// ActingUserHeader names the acting user on outbound API calls
const ActingUserHeader = "X-Acting-User"

// EmailSource yields the acting user's email for a request context
type EmailSource interface {
	CurrentEmail(ctx context.Context) (string, error)
}

// ActingUserTransport stamps outbound requests with the acting user's email.
// Requests are rejected when no email is available.
type ActingUserTransport struct {
	// Base is the underlying transport; http.DefaultTransport when nil
	Base http.RoundTripper
	// Source overrides the identity service found on the request context
	Source EmailSource
}

// NewActingUserClient returns an HTTP client that stamps every request
func NewActingUserClient(base http.RoundTripper) *http.Client {
	return &http.Client{Transport: &ActingUserTransport{Base: base}}
}

func (t *ActingUserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	source := t.Source
	if source == nil {
		source = identityServiceFromContext(req.Context())
	}
	if source == nil {
		return nil, identity.ErrNotAuthenticated
	}

	email, err := source.CurrentEmail(req.Context())
	if err != nil {
		return nil, fmt.Errorf("acting user: %w", err)
	}

	// RoundTrippers must not modify the caller's request
	out := req.Clone(req.Context())
	out.Header.Set(ActingUserHeader, email)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}

func identityServiceFromContext(ctx context.Context) EmailSource {
	svc, ok := ctx.Value(contextkeys.IdentityServiceKey).(*identity.Service)
	if !ok || svc == nil {
		return nil
	}
	return svc
}
