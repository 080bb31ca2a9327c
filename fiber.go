package googletoken

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// GetFiberSession extracts session claims stored in fiber locals by JWT
// middleware. Use SessionFromRequest when working behind the router
// abstraction; this helper is for handlers written directly against fiber.
func GetFiberSession(c *fiber.Ctx, key string) (*SessionClaims, error) {
	if key == "" {
		key = DefaultSessionContextKey
	}

	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrUnableToFindSession
	}

	token, ok := raw.(*jwt.Token)
	if token == nil || !ok {
		if claims, ok := raw.(*SessionClaims); ok {
			return claims, nil
		}
		return nil, ErrUnableToFindSession
	}

	if claims, ok := token.Claims.(*SessionClaims); ok {
		return claims, nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToFindSession
	}
	return sessionFromMapClaims(claims)
}
