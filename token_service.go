package googletoken

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService signs and validates session tokens.
type TokenService interface {
	Sign(claims *SessionClaims) (string, error)
	Validate(token string) (*SessionClaims, error)
	Expiry() time.Duration
}

// TokenConfig configures the HMAC token service. The secret is mandatory and
// is checked once at construction.
type TokenConfig struct {
	// Method is the HMAC signing algorithm, HS256 by default.
	Method string
	// Secret is the symmetric signing key.
	Secret string
	// ExpirySeconds bounds token lifetime, 600 by default.
	ExpirySeconds int
	// Issuer is set on the registered claims when non empty.
	Issuer string
}

// Validate checks the configuration.
func (c TokenConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Secret, validation.Required),
		validation.Field(&c.Method, validation.In("", "HS256", "HS384", "HS512")),
		validation.Field(&c.ExpirySeconds, validation.Min(0)),
	)
}

// HMACTokenService implements TokenService with a symmetric key.
type HMACTokenService struct {
	method jwt.SigningMethod
	secret []byte
	expiry time.Duration
	issuer string
	logger Logger
}

// NewTokenService creates the token service. A missing secret is a
// configuration time fatal error, never a per request one.
func NewTokenService(cfg TokenConfig, logger Logger) (*HMACTokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSigningSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid token configuration")
	}

	method := cfg.Method
	if method == "" {
		method = "HS256"
	}

	expiry := cfg.ExpirySeconds
	if expiry == 0 {
		expiry = 600
	}

	if logger == nil {
		logger = defLogger{}
	}

	return &HMACTokenService{
		method: jwt.GetSigningMethod(method),
		secret: []byte(cfg.Secret),
		expiry: time.Duration(expiry) * time.Second,
		issuer: cfg.Issuer,
		logger: logger,
	}, nil
}

// Expiry returns the configured token lifetime.
func (ts *HMACTokenService) Expiry() time.Duration {
	return ts.expiry
}

// Sign stamps issuance metadata on the claims and returns the signed token.
func (ts *HMACTokenService) Sign(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ts.expiry))
	if ts.issuer != "" {
		claims.RegisteredClaims.Issuer = ts.issuer
	}
	if claims.RegisteredClaims.ID == "" {
		claims.RegisteredClaims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(ts.method, claims)

	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}

	return signed, nil
}

// Validate parses a token string and returns its structured claims.
func (ts *HMACTokenService) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
