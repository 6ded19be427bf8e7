package identity

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/helpdesk/pkg/observability"
	"github.com/platinummonkey/helpdesk/pkg/rbac"
)

// Development fallback defaults
const (
	DefaultDevelopmentEmail = "cristian.rodriguez@americor.com"
	DefaultDevelopmentName  = "Cristian Rodriguez"
)

// ClaimsSource reads the raw claims payload of one session. It returns
// ErrNoClaims when the session holds none.
type ClaimsSource interface {
	LoadClaims(ctx context.Context) ([]byte, error)
}

// ClaimsSourceFunc adapts a function to ClaimsSource
type ClaimsSourceFunc func(ctx context.Context) ([]byte, error)

func (f ClaimsSourceFunc) LoadClaims(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	Parser   *Parser
	Resolver *rbac.Resolver
	Logger   *observability.Logger
	Metrics  *observability.Metrics

	// DevelopmentFallbackEnabled installs a fixed administrator identity when
	// the session has no usable claims. Local development only.
	DevelopmentFallbackEnabled bool
	DevelopmentEmail           string
	DevelopmentName            string
}

// state is the memoized outcome of an initialization
type state struct {
	identity *ResolvedIdentity
	err      error
}

// Service holds the resolved identity of one session. The cached value is
// created on first access, replaced wholesale by Initialize and dropped by
// Reset; readers never observe a partially built identity.
type Service struct {
	source ClaimsSource
	opts   Options

	cached atomic.Pointer[state]
	group  singleflight.Group
}

// NewService creates an identity service reading claims from source
func NewService(source ClaimsSource, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if opts.Parser == nil {
		opts.Parser = NewParser("", opts.Logger)
	}
	if opts.Resolver == nil {
		opts.Resolver = rbac.NewResolver()
	}
	if opts.DevelopmentEmail == "" {
		opts.DevelopmentEmail = DefaultDevelopmentEmail
	}
	if opts.DevelopmentName == "" {
		opts.DevelopmentName = DefaultDevelopmentName
	}

	return &Service{
		source: source,
		opts:   opts,
	}
}

// Initialize reads the claims from the session, resolves them and replaces
// the cached identity. It returns (nil, nil) when the session holds no
// claims and the development fallback is disabled.
func (s *Service) Initialize(ctx context.Context) (*ResolvedIdentity, error) {
	st, err := s.initialize(ctx)
	if err != nil {
		return nil, err
	}
	return st.identity, st.err
}

func (s *Service) initialize(ctx context.Context) (*state, error) {
	ctx, span := observability.Tracer().Start(ctx, "identity.Initialize")
	defer span.End()

	id, err := s.load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.opts.Metrics.RecordIdentityError(errorKind(err))
		if !isClaimsError(err) {
			// Store failures are not memoized so the next access retries.
			return nil, err
		}
	}

	if id != nil {
		span.SetAttributes(
			attribute.String("identity.role", string(id.Role)),
			attribute.String("identity.source", id.Source),
		)
		s.opts.Metrics.RecordResolution(string(id.Role), id.Source)
		s.opts.Logger.WithFields(map[string]interface{}{
			"role":   id.Role,
			"source": id.Source,
		}).Info("Identity initialized")
	}

	st := &state{identity: id, err: err}
	s.cached.Store(st)
	return st, nil
}

func (s *Service) load(ctx context.Context) (*ResolvedIdentity, error) {
	data, err := s.source.LoadClaims(ctx)
	if errors.Is(err, ErrNoClaims) {
		return s.developmentFallback(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session claims: %w", err)
	}

	id, err := s.resolve(data)
	if errors.Is(err, ErrMalformedClaims) {
		s.opts.Logger.WithError(err).Error("Error initializing user from SSO claims")
		if s.opts.DevelopmentFallbackEnabled {
			return s.developmentFallback(), nil
		}
		return nil, err
	}
	return id, err
}

// resolve runs the parser and resolver over a stored payload
func (s *Service) resolve(data []byte) (*ResolvedIdentity, error) {
	raw, err := DecodeClaims(data)
	if err != nil {
		return nil, err
	}

	canonical, err := s.opts.Parser.Parse(raw)
	if err != nil {
		return nil, err
	}

	role := s.opts.Resolver.Resolve(canonical.Email, canonical.Groups)
	return &ResolvedIdentity{
		Email:       canonical.Email,
		Name:        canonical.Name,
		Groups:      canonical.Groups,
		Role:        role,
		Permissions: rbac.PermissionsFor(role),
		Source:      SourceClaims,
	}, nil
}

func (s *Service) developmentFallback() *ResolvedIdentity {
	if !s.opts.DevelopmentFallbackEnabled {
		return nil
	}
	s.opts.Logger.Warnf("Development mode: using %s as admin", s.opts.DevelopmentEmail)
	return &ResolvedIdentity{
		Email:       s.opts.DevelopmentEmail,
		Name:        s.opts.DevelopmentName,
		Groups:      []string{"admin"},
		Role:        rbac.RoleAdmin,
		Permissions: rbac.PermissionsFor(rbac.RoleAdmin),
		Source:      SourceDevelopmentFallback,
	}
}

// CurrentIdentity returns the cached identity, initializing it on first
// access. Later calls return the same outcome, even if session storage
// changes, until Initialize or Reset.
func (s *Service) CurrentIdentity(ctx context.Context) (*ResolvedIdentity, error) {
	if st := s.cached.Load(); st != nil {
		return st.identity, st.err
	}

	v, err, _ := s.group.Do("initialize", func() (interface{}, error) {
		if st := s.cached.Load(); st != nil {
			return st, nil
		}
		return s.initialize(ctx)
	})
	if err != nil {
		return nil, err
	}
	st := v.(*state)
	return st.identity, st.err
}

// Cached returns the cached identity without triggering initialization
func (s *Service) Cached() *ResolvedIdentity {
	if st := s.cached.Load(); st != nil {
		return st.identity
	}
	return nil
}

// CurrentEmail returns the acting user's email for outbound API calls. When
// nothing is cached it re-reads the session without memoizing the result.
func (s *Service) CurrentEmail(ctx context.Context) (string, error) {
	if id := s.Cached(); id != nil {
		return id.Email, nil
	}

	data, err := s.source.LoadClaims(ctx)
	switch {
	case err == nil:
		id, resolveErr := s.resolve(data)
		if resolveErr == nil {
			return id.Email, nil
		}
		s.opts.Logger.WithError(resolveErr).Error("Error getting user email")
	case !errors.Is(err, ErrNoClaims):
		s.opts.Logger.WithError(err).Error("Error getting user email")
	}

	if s.opts.DevelopmentFallbackEnabled {
		return s.opts.DevelopmentEmail, nil
	}
	return "", ErrNotAuthenticated
}

// HasPermission reports whether the current identity holds p. Absence of an
// identity, or any error, means no permissions.
func (s *Service) HasPermission(ctx context.Context, p rbac.Permission) bool {
	id, err := s.CurrentIdentity(ctx)
	if err != nil {
		s.opts.Logger.WithError(err).Debug("Permission check without identity")
	}
	return id.HasPermission(p)
}

// IsRole reports whether the current identity has role r. Fails closed.
func (s *Service) IsRole(ctx context.Context, r rbac.Role) bool {
	id, err := s.CurrentIdentity(ctx)
	if err != nil {
		s.opts.Logger.WithError(err).Debug("Role check without identity")
	}
	return id.IsRole(r)
}

// IsAdmin is IsRole(ctx, rbac.RoleAdmin)
func (s *Service) IsAdmin(ctx context.Context) bool {
	return s.IsRole(ctx, rbac.RoleAdmin)
}

// IsIT is IsRole(ctx, rbac.RoleIT)
func (s *Service) IsIT(ctx context.Context) bool {
	return s.IsRole(ctx, rbac.RoleIT)
}

// Explain reports which rule produced the current identity's role
func (s *Service) Explain(ctx context.Context) (*rbac.Decision, error) {
	id, err := s.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, ErrNotAuthenticated
	}
	if id.Source == SourceDevelopmentFallback {
		return &rbac.Decision{Role: id.Role, Rule: RuleDevelopmentFallback, GroupIndex: -1}, nil
	}
	decision := s.opts.Resolver.Explain(id.Email, id.Groups)
	return &decision, nil
}

// RawClaims returns the stored claims payload verbatim, for forwarding to
// backend calls. Returns ErrNoClaims when the session has none.
func (s *Service) RawClaims(ctx context.Context) ([]byte, error) {
	return s.source.LoadClaims(ctx)
}

// Reset drops the cached identity. The next access re-initializes.
func (s *Service) Reset() {
	s.cached.Store(nil)
}
