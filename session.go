package googletoken

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
)

// DefaultSessionContextKey is the router locals key where auth middleware
// stores the request session.
const DefaultSessionContextKey = "user"

// SessionFromRequest extracts validated session claims from a request. It
// checks router locals first (for requests that already went through auth
// middleware), then the Authorization bearer header, then the session cookie.
func SessionFromRequest(c router.Context, tokens TokenService, cookieName, contextKey string) (*SessionClaims, error) {
	if contextKey == "" {
		contextKey = DefaultSessionContextKey
	}
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	if raw := c.Locals(contextKey); raw != nil {
		if claims, err := claimsFromLocal(raw); err == nil {
			return claims, nil
		}
	}

	if header := c.GetString("Authorization", ""); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return tokens.Validate(strings.TrimSpace(parts[1]))
		}
	}

	if cookie := c.Cookies(cookieName); cookie != "" {
		return tokens.Validate(cookie)
	}

	return nil, ErrUnableToFindSession
}

func claimsFromLocal(raw any) (*SessionClaims, error) {
	switch v := raw.(type) {
	case *SessionClaims:
		return v, nil
	case *jwt.Token:
		if claims, ok := v.Claims.(*SessionClaims); ok {
			return claims, nil
		}
		if claims, ok := v.Claims.(jwt.MapClaims); ok {
			return sessionFromMapClaims(claims)
		}
	}
	return nil, ErrUnableToFindSession
}

// sessionFromMapClaims rebuilds typed claims from the generic map shape some
// JWT middleware stores in locals.
func sessionFromMapClaims(claims jwt.MapClaims) (*SessionClaims, error) {
	out := &SessionClaims{}

	if sub, err := claims.GetSubject(); err == nil {
		out.RegisteredClaims.Subject = sub
	}
	if uid, ok := claims["uid"].(string); ok {
		out.AccountID = uid
	}
	if username, ok := claims["username"].(string); ok {
		out.Username = username
	}
	if displayName, ok := claims["display_name"].(string); ok {
		out.DisplayName = displayName
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}

	if out.UserID() == "" {
		return nil, ErrUnableToFindSession
	}

	return out, nil
}
