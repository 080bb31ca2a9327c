package googletoken

import (
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// URIPrefix is prepended to every route (default: "").
	URIPrefix string

	// Strategy names the provider segment in the route (default: "google").
	Strategy string

	// SessionContextKey is the router locals key where auth middleware stores
	// the session (default: "user").
	SessionContextKey string

	// ErrorHandler handles errors (optional).
	ErrorHandler func(ctx router.Context, err error) error
}

// HTTPController exposes token sign in and logout over HTTP.
type HTTPController struct {
	verifier ProfileVerifier
	resolver *IdentityResolver
	issuer   *SessionIssuer
	tokens   TokenService
	repo     AccountRepository
	config   HTTPConfig
	logger   Logger
}

// NewHTTPController creates the controller. The verifier validates provider
// credentials, the resolver maps profiles to accounts, and the issuer signs
// the resulting session.
func NewHTTPController(verifier ProfileVerifier, resolver *IdentityResolver, issuer *SessionIssuer, tokens TokenService, repo AccountRepository, cfg HTTPConfig) *HTTPController {
	if cfg.Strategy == "" {
		cfg.Strategy = "google"
	}
	if cfg.SessionContextKey == "" {
		cfg.SessionContextKey = DefaultSessionContextKey
	}

	return &HTTPController{
		verifier: verifier,
		resolver: resolver,
		issuer:   issuer,
		tokens:   tokens,
		repo:     repo,
		config:   cfg,
		logger:   defLogger{},
	}
}

// WithControllerLogger replaces the default logger.
func (c *HTTPController) WithControllerLogger(logger Logger) *HTTPController {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// RegisterRoutes registers the sign in and logout routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	base := fmt.Sprintf("%s/user/%s", c.config.URIPrefix, c.config.Strategy)
	group.Post(base, c.Authenticate)
	group.Post(base+"/logout", c.Logout)
}

// Authenticate exchanges a provider credential for a local session token.
// Responds 200 with the signed token, plus a session cookie unless cookie
// delivery is disabled. Any verification failure is a bare 401: the client
// learns nothing about why the credential was rejected.
func (c *HTTPController) Authenticate(ctx router.Context) error {
	credential := c.extractCredential(ctx)
	if err := credential.Validate(); err != nil {
		c.logger.Debug("missing provider credential: %v", err)
		return ctx.NoContent(http.StatusUnauthorized)
	}

	profile, err := c.verifier.Verify(ctx.Context(), credential)
	if err != nil {
		c.logger.Debug("provider verification failed: %v", err)
		return ctx.NoContent(http.StatusUnauthorized)
	}

	current := c.currentAccount(ctx)

	resolution, err := c.resolver.Resolve(ctx.Context(), profile, current)
	if err != nil {
		return c.handleError(ctx, err)
	}

	issued, err := c.issuer.Issue(ctx.Context(), resolution.Account)
	if err != nil {
		return c.handleError(ctx, err)
	}

	if issued.Cookie != nil {
		setCookie(ctx, issued.Cookie)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"token": issued.Token,
	})
}

// Logout requires an active session. It disconnects the account's live
// connections, clears the session cookie, and responds 204.
func (c *HTTPController) Logout(ctx router.Context) error {
	claims, err := SessionFromRequest(ctx, c.tokens, c.issuer.CookieName(), c.config.SessionContextKey)
	if err != nil {
		return ctx.NoContent(http.StatusUnauthorized)
	}

	c.issuer.DisconnectLiveSessions(ctx.Context(), claims.UserID())

	if spec := c.issuer.Terminate(); spec != nil {
		setCookie(ctx, spec)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// extractCredential reads the provider credential from the request body,
// falling back to query parameters for clients that send tokens in the URL.
func (c *HTTPController) extractCredential(ctx router.Context) AccessCredential {
	credential := AccessCredential{}
	if err := ctx.Bind(&credential); err != nil {
		c.logger.Debug("credential bind failed: %v", err)
	}

	if credential.AccessToken == "" {
		credential.AccessToken = ctx.Query("access_token")
	}
	if credential.IDToken == "" {
		credential.IDToken = ctx.Query("id_token")
	}

	return credential
}

// currentAccount loads the account behind an existing session, if any. A
// request without a session, or with a session whose account no longer loads,
// goes through the regular lookup path.
func (c *HTTPController) currentAccount(ctx router.Context) *Account {
	claims, err := SessionFromRequest(ctx, c.tokens, c.issuer.CookieName(), c.config.SessionContextKey)
	if err != nil {
		return nil
	}

	account, err := c.repo.FindByID(ctx.Context(), claims.UserID())
	if err != nil {
		c.logger.Debug("session account %s not found: %v", claims.UserID(), err)
		return nil
	}

	return account
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		c.logger.Error("authentication failed: %v", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		c.logger.Debug("authentication rejected: %s", richErr.TextCode)
		return ctx.NoContent(http.StatusUnauthorized)
	case errors.CategoryConflict:
		return ctx.JSON(http.StatusConflict, map[string]string{
			"error": richErr.TextCode,
		})
	default:
		c.logger.Error("authentication failed: %s %s", richErr.TextCode, print.MaybePrettyJSON(richErr.Metadata))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}

// Validate checks that the payload carries at least one credential.
func (a AccessCredential) Validate() error {
	if a.IDToken != "" {
		return nil
	}
	return validation.ValidateStruct(&a,
		validation.Field(&a.AccessToken, validation.Required),
	)
}

func setCookie(ctx router.Context, spec *CookieSpec) {
	ctx.Cookie(&router.Cookie{
		Name:     spec.Name,
		Value:    spec.Value,
		Path:     spec.Path,
		Domain:   spec.Domain,
		Expires:  spec.Expires,
		Secure:   spec.Secure,
		SameSite: spec.SameSite,
		HTTPOnly: spec.HTTPOnly,
	})
}
