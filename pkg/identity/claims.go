package identity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/platinummonkey/helpdesk/pkg/observability"
)

// DefaultOrgDomain is appended to bare usernames found in email claims
const DefaultOrgDomain = "americor.com"

// Claim names read from the payload
const (
	ClaimEmail             = "email"
	ClaimPreferredUsername = "preferred_username"
	ClaimName              = "name"
	ClaimGivenName         = "given_name"
	ClaimFamilyName        = "family_name"
	ClaimGroups            = "groups"
	ClaimRoleAttribute     = "Role"
	ClaimRoleAttributeLC   = "role"
)

// DecodeClaims parses a stored payload. Anything but a JSON object is
// ErrMalformedClaims.
func DecodeClaims(data []byte) (RawClaims, error) {
	var raw RawClaims
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedClaims, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: payload is null", ErrMalformedClaims)
	}
	return raw, nil
}

// Parser normalizes raw claims into a CanonicalIdentity
type Parser struct {
	orgDomain string
	logger    *observability.Logger
}

// NewParser creates a parser. An empty orgDomain uses DefaultOrgDomain.
func NewParser(orgDomain string, logger *observability.Logger) *Parser {
	orgDomain = strings.TrimPrefix(strings.TrimSpace(orgDomain), "@")
	if orgDomain == "" {
		orgDomain = DefaultOrgDomain
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Parser{orgDomain: orgDomain, logger: logger}
}

// OrgDomain returns the domain used to complete bare usernames
func (p *Parser) OrgDomain() string {
	return p.orgDomain
}

// Parse derives email, name and groups from raw. It fails with
// ErrMissingEmail when no email candidate exists.
func (p *Parser) Parse(raw RawClaims) (*CanonicalIdentity, error) {
	email := firstString(raw, ClaimEmail)
	if email == "" {
		email = firstString(raw, ClaimPreferredUsername)
	}
	if email == "" {
		return nil, ErrMissingEmail
	}
	if !strings.Contains(email, "@") {
		email = email + "@" + p.orgDomain
	}

	name := firstString(raw, ClaimName)
	if name == "" {
		name = strings.TrimSpace(firstString(raw, ClaimGivenName) + " " + firstString(raw, ClaimFamilyName))
	}
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}
	// "@example.com" leaves an empty local part
	if name == "" {
		name = email
	}

	groups := stringValues(raw, ClaimGroups)
	roleClaim := ClaimRoleAttribute
	if len(stringValues(raw, roleClaim)) == 0 {
		roleClaim = ClaimRoleAttributeLC
	}
	groups = append(groups, stringValues(raw, roleClaim)...)

	p.logger.WithFields(map[string]interface{}{
		"email":  email,
		"name":   name,
		"groups": groups,
	}).Debug("Parsed SSO claims")

	return &CanonicalIdentity{
		Email:  email,
		Name:   name,
		Groups: groups,
	}, nil
}

// stringValues coerces a claim that may be a scalar or a collection into an
// ordered list of non-blank strings. Values of other shapes are ignored.
func stringValues(raw RawClaims, key string) []string {
	value, ok := raw[key]
	if !ok || value == nil {
		return []string{}
	}

	var decoded []string
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &decoded,
	})
	if err != nil {
		return []string{}
	}
	if err := decoder.Decode(value); err != nil {
		return []string{}
	}

	out := make([]string, 0, len(decoded))
	for _, v := range decoded {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// firstString collapses a claim to its first non-blank value
func firstString(raw RawClaims, key string) string {
	values := stringValues(raw, key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
