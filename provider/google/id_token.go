package google

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"

	"github.com/transomhq/go-googletoken"
)

// keySet caches Google's signing keys behind a background refreshing JWKS
// client. The fetch happens on first use, not at construction.
type keySet struct {
	url  string
	once sync.Once
	jwks *keyfunc.JWKS
	err  error
}

func newKeySet(url string) *keySet {
	return &keySet{url: url}
}

func (k *keySet) keyfunc() (jwt.Keyfunc, error) {
	k.once.Do(func() {
		k.jwks, k.err = keyfunc.Get(k.url, keyfunc.Options{
			RefreshErrorHandler: func(err error) {
				log.Printf("failed to do a background refresh of google JWK set: %s", err)
			},
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  time.Minute * 5,
			RefreshTimeout:    time.Second * 10,
			RefreshUnknownKID: true,
		})
	})
	if k.err != nil {
		return nil, k.err
	}
	return k.jwks.Keyfunc, nil
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

func (v *Verifier) verifyIDToken(ctx context.Context, idToken string) (*googletoken.ExternalProfile, error) {
	kf, err := v.keys.keyfunc()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to load google signing keys")
	}

	claims := &idTokenClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
	}
	if v.config.ClientID != "" {
		opts = append(opts, jwt.WithAudience(v.config.ClientID))
	}

	token, err := jwt.ParseWithClaims(idToken, claims, kf, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "invalid id_token")
	}
	if !token.Valid {
		return nil, errors.New("invalid id_token", errors.CategoryAuth)
	}

	// Google issues under both the bare and the https form.
	if iss := claims.Issuer; iss != "accounts.google.com" && iss != "https://accounts.google.com" {
		return nil, errors.New("unexpected id_token issuer", errors.CategoryAuth).
			WithMetadata(map[string]any{"issuer": iss})
	}

	if claims.Subject == "" {
		return nil, errors.New("id_token has no subject", errors.CategoryAuth)
	}

	profile := mapProfile(&googleUserInfo{
		Sub:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
		Picture:       claims.Picture,
		Locale:        claims.Locale,
	})
	profile.AccessToken = idToken
	return profile, nil
}
