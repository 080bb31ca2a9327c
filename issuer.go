package googletoken

import (
	"context"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// DefaultCookieName carries the session token on the wire.
const DefaultCookieName = "access_token"

// CookieSpec holds the computed Set-Cookie attributes for one issuance or
// termination call. It is never persisted.
type CookieSpec struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	Expires  time.Time
	Secure   bool
	SameSite string
	HTTPOnly bool
}

// CookieOverrides take precedence over every computed default. Boolean
// fields are pointers so that an explicit false wins over the default.
type CookieOverrides struct {
	Name     string
	Path     string
	Domain   string
	Secure   *bool
	SameSite string
	HTTPOnly *bool
}

// IssuerConfig configures session issuance.
type IssuerConfig struct {
	// BaseAPIOrigin is the configured API origin; its host becomes the
	// default cookie domain.
	BaseAPIOrigin string
	// DisableCookie suppresses cookie delivery; tokens are still returned in
	// the response body.
	DisableCookie bool
	// Cookie overrides the computed cookie defaults.
	Cookie CookieOverrides
	// ClaimsBuilder overrides DefaultClaimsBuilder.
	ClaimsBuilder ClaimsBuilder
}

// Validate checks the configuration.
func (c IssuerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseAPIOrigin, validation.By(validOrigin)),
	)
}

func validOrigin(value any) error {
	origin, _ := value.(string)
	if origin == "" {
		return nil
	}
	if _, err := url.Parse(origin); err != nil {
		return errors.New("invalid base API origin", errors.CategoryValidation)
	}
	return nil
}

// IssuedSession is the result of a successful issuance. Cookie is nil when
// cookie delivery is disabled.
type IssuedSession struct {
	Token  string
	Cookie *CookieSpec
}

// SessionIssuer signs session tokens for resolved accounts and computes the
// cookie attributes that carry them.
type SessionIssuer struct {
	tokens   TokenService
	registry ConnectionRegistry
	config   IssuerConfig
	builder  ClaimsBuilder
	logger   Logger
}

// SessionIssuerOption configures the issuer.
type SessionIssuerOption func(*SessionIssuer)

// WithConnectionRegistry sets the live connection registry used on logout.
func WithConnectionRegistry(registry ConnectionRegistry) SessionIssuerOption {
	return func(si *SessionIssuer) {
		si.registry = registry
	}
}

// WithLogger sets the issuer logger.
func WithLogger(logger Logger) SessionIssuerOption {
	return func(si *SessionIssuer) {
		if logger != nil {
			si.logger = logger
		}
	}
}

// NewSessionIssuer creates a session issuer.
func NewSessionIssuer(tokens TokenService, cfg IssuerConfig, opts ...SessionIssuerOption) (*SessionIssuer, error) {
	if tokens == nil {
		return nil, errors.New("token service is required", errors.CategoryBadInput)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid issuer configuration")
	}

	builder := cfg.ClaimsBuilder
	if builder == nil {
		builder = DefaultClaimsBuilder
	}

	si := &SessionIssuer{
		tokens:  tokens,
		config:  cfg,
		builder: builder,
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(si)
		}
	}

	return si, nil
}

// Issue builds claims for the account, signs them, and computes the cookie
// spec when cookie delivery is enabled. The account is assumed active; the
// resolver rejects inactive accounts before issuance.
func (si *SessionIssuer) Issue(ctx context.Context, account *Account) (*IssuedSession, error) {
	claims, err := si.builder(ctx, account)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "claims builder failed")
	}

	token, err := si.tokens.Sign(claims)
	if err != nil {
		return nil, err
	}

	issued := &IssuedSession{Token: token}
	if !si.config.DisableCookie {
		issued.Cookie = si.cookieSpec(token, time.Now().Add(si.tokens.Expiry()))
	}

	return issued, nil
}

// Terminate computes the cookie clearing spec: identical attributes with an
// expiration instant in the past. Tokens themselves are stateless and are not
// revoked. Returns nil when cookie delivery is disabled.
func (si *SessionIssuer) Terminate() *CookieSpec {
	if si.config.DisableCookie {
		return nil
	}
	return si.cookieSpec("", time.Unix(0, int64(time.Millisecond)))
}

// DisconnectLiveSessions drops every live connection bound to the account id.
// It is best effort: a missing registry means there is nothing to manage, and
// entries that disappear mid iteration are treated as already disconnected.
func (si *SessionIssuer) DisconnectLiveSessions(ctx context.Context, accountID string) {
	if si.registry == nil {
		return
	}

	for _, conn := range si.registry.Snapshot() {
		if conn == nil || conn.AccountID() != accountID {
			continue
		}
		if err := conn.Disconnect(); err != nil {
			si.logger.Debug("live connection for account %s already gone: %v", accountID, err)
		}
	}
}

func (si *SessionIssuer) cookieSpec(value string, expires time.Time) *CookieSpec {
	spec := &CookieSpec{
		Name:     DefaultCookieName,
		Value:    value,
		Path:     "/",
		Domain:   si.cookieDomain(),
		Expires:  expires,
		Secure:   false,
		SameSite: "None",
		HTTPOnly: true,
	}

	overrides := si.config.Cookie
	if overrides.Name != "" {
		spec.Name = overrides.Name
	}
	if overrides.Path != "" {
		spec.Path = overrides.Path
	}
	if overrides.Domain != "" {
		spec.Domain = overrides.Domain
	}
	if overrides.Secure != nil {
		spec.Secure = *overrides.Secure
	}
	if overrides.SameSite != "" {
		spec.SameSite = overrides.SameSite
	}
	if overrides.HTTPOnly != nil {
		spec.HTTPOnly = *overrides.HTTPOnly
	}

	return spec
}

func (si *SessionIssuer) cookieDomain() string {
	origin := si.config.BaseAPIOrigin
	if origin == "" {
		return "localhost"
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Hostname() == "" {
		return "localhost"
	}
	return parsed.Hostname()
}

// CookieName returns the effective cookie name after overrides.
func (si *SessionIssuer) CookieName() string {
	if si.config.Cookie.Name != "" {
		return si.config.Cookie.Name
	}
	return DefaultCookieName
}

// CookieEnabled reports whether cookie delivery is on.
func (si *SessionIssuer) CookieEnabled() bool {
	return !si.config.DisableCookie
}
