package rbac

import "strings"

// DefaultAdminUsers is the built-in administrator allow-list. Addresses are
// matched exactly, before any group is inspected.
var DefaultAdminUsers = []string{
	"cristian.rodriguez@americor.com",
}

// Rule maps a lower-cased group or role attribute value to a role
type Rule struct {
	Name  string
	Match func(group string) bool
	Role  Role
}

// DefaultRules returns the group scan rules in evaluation order. Exact
// matches come before substring matches within a single entry, but the
// scan stops at the first entry matching any rule, so a loose match on an
// earlier entry beats an exact match on a later one.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:  "exact-admin",
			Match: equalsAny("help desk management tool - admin", "admin"),
			Role:  RoleAdmin,
		},
		{
			Name:  "exact-it",
			Match: equalsAny("help desk management tool - it", "it"),
			Role:  RoleIT,
		},
		{
			Name:  "contains-admin",
			Match: containsAny("admin"),
			Role:  RoleAdmin,
		},
		{
			Name:  "contains-it",
			Match: containsAny("it", "information technology"),
			Role:  RoleIT,
		},
	}
}

func equalsAny(values ...string) func(string) bool {
	return func(group string) bool {
		for _, v := range values {
			if group == v {
				return true
			}
		}
		return false
	}
}

func containsAny(values ...string) func(string) bool {
	return func(group string) bool {
		for _, v := range values {
			if strings.Contains(group, v) {
				return true
			}
		}
		return false
	}
}

// Decision explains how a role was chosen
type Decision struct {
	Role Role `json:"role"`
	// Rule is "admin-allow-list", a Rule name, or "default"
	Rule string `json:"rule"`
	// GroupIndex is the position of the matching group, -1 when no group matched
	GroupIndex int    `json:"group_index"`
	Group      string `json:"group,omitempty"`
}

const (
	RuleAdminAllowList = "admin-allow-list"
	RuleDefault        = "default"
)

// Resolver maps an email and an ordered group list to exactly one role
type Resolver struct {
	admins map[string]struct{}
	rules  []Rule
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithAdminUsers replaces the administrator allow-list
func WithAdminUsers(emails ...string) ResolverOption {
	return func(r *Resolver) {
		r.admins = make(map[string]struct{}, len(emails))
		for _, email := range emails {
			if email = strings.TrimSpace(email); email != "" {
				r.admins[email] = struct{}{}
			}
		}
	}
}

// WithRules replaces the group scan rules
func WithRules(rules ...Rule) ResolverOption {
	return func(r *Resolver) {
		r.rules = rules
	}
}

// NewResolver creates a resolver using DefaultAdminUsers and DefaultRules
// unless overridden
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{rules: DefaultRules()}
	WithAdminUsers(DefaultAdminUsers...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the role for email and groups. It never fails; users that
// match nothing get RoleUser.
func (r *Resolver) Resolve(email string, groups []string) Role {
	return r.Explain(email, groups).Role
}

// Explain is Resolve with the matching rule attached
func (r *Resolver) Explain(email string, groups []string) Decision {
	if _, ok := r.admins[email]; ok {
		return Decision{Role: RoleAdmin, Rule: RuleAdminAllowList, GroupIndex: -1}
	}

	for i, group := range groups {
		lower := strings.ToLower(group)
		for _, rule := range r.rules {
			if rule.Match(lower) {
				return Decision{Role: rule.Role, Rule: rule.Name, GroupIndex: i, Group: group}
			}
		}
	}

	return Decision{Role: RoleUser, Rule: RuleDefault, GroupIndex: -1}
}

// IsAdminUser reports whether email is on the allow-list
func (r *Resolver) IsAdminUser(email string) bool {
	_, ok := r.admins[email]
	return ok
}
