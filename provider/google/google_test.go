package google

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	googletoken "github.com/transomhq/go-googletoken"
)

func userInfoServer(t *testing.T, expectToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+expectToken {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_token",
				"error_description": "the token is not valid",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":            "sub-9",
			"email":          "person@example.com",
			"email_verified": true,
			"name":           "Person Example",
			"given_name":     "Person",
			"family_name":    "Example",
			"picture":        "https://img.example.com/p.png",
		})
	}))
}

func TestVerifyAccessToken(t *testing.T) {
	server := userInfoServer(t, "good-token")
	defer server.Close()

	verifier := New(Config{UserInfoURL: server.URL})

	profile, err := verifier.Verify(context.Background(), googletoken.AccessCredential{
		AccessToken: "good-token",
	})
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, "google", profile.Provider)
	assert.Equal(t, "sub-9", profile.ID)
	assert.Equal(t, []string{"person@example.com"}, profile.Emails)
	assert.Equal(t, "Person Example", profile.DisplayName)
	assert.Equal(t, "Person", profile.GivenName)
	assert.Equal(t, "https://img.example.com/p.png", profile.AvatarURL)
	assert.Equal(t, "good-token", profile.AccessToken)
	assert.Equal(t, "sub-9", profile.Raw["sub"])
}

func TestVerifyAccessTokenRejected(t *testing.T) {
	server := userInfoServer(t, "good-token")
	defer server.Close()

	verifier := New(Config{UserInfoURL: server.URL})

	_, err := verifier.Verify(context.Background(), googletoken.AccessCredential{
		AccessToken: "bad-token",
	})
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, errors.CategoryAuth, richErr.Category)
}

func TestVerifyWithoutCredential(t *testing.T) {
	verifier := New(Config{})

	_, err := verifier.Verify(context.Background(), googletoken.AccessCredential{})
	require.Error(t, err)
}

type jwksFixture struct {
	key    *rsa.PrivateKey
	server *httptest.Server
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"use": "sig",
				"alg": "RS256",
				"kid": "test-kid",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jwks)
	}))

	return &jwksFixture{key: key, server: server}
}

func (f *jwksFixture) sign(t *testing.T, claims idTokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-kid"
	signed, err := token.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func googleIDClaims() idTokenClaims {
	return idTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Subject:   "sub-9",
			Audience:  jwt.ClaimStrings{"client-1"},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email:         "person@example.com",
		EmailVerified: true,
		Name:          "Person Example",
	}
}

func TestVerifyIDToken(t *testing.T) {
	fixture := newJWKSFixture(t)
	defer fixture.server.Close()

	verifier := New(Config{
		ClientID: "client-1",
		JWKSURL:  fixture.server.URL,
	})

	signed := fixture.sign(t, googleIDClaims())

	profile, err := verifier.Verify(context.Background(), googletoken.AccessCredential{
		IDToken: signed,
	})
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, "sub-9", profile.ID)
	assert.Equal(t, []string{"person@example.com"}, profile.Emails)
	assert.Equal(t, "Person Example", profile.DisplayName)
	assert.Equal(t, signed, profile.AccessToken)
}

func TestVerifyIDTokenRejectsWrongIssuer(t *testing.T) {
	fixture := newJWKSFixture(t)
	defer fixture.server.Close()

	verifier := New(Config{
		ClientID: "client-1",
		JWKSURL:  fixture.server.URL,
	})

	claims := googleIDClaims()
	claims.Issuer = "https://evil.example.com"

	_, err := verifier.Verify(context.Background(), googletoken.AccessCredential{
		IDToken: fixture.sign(t, claims),
	})
	require.Error(t, err)
}

func TestVerifyIDTokenRejectsWrongAudience(t *testing.T) {
	fixture := newJWKSFixture(t)
	defer fixture.server.Close()

	verifier := New(Config{
		ClientID: "client-1",
		JWKSURL:  fixture.server.URL,
	})

	claims := googleIDClaims()
	claims.Audience = jwt.ClaimStrings{"someone-else"}

	_, err := verifier.Verify(context.Background(), googletoken.AccessCredential{
		IDToken: fixture.sign(t, claims),
	})
	require.Error(t, err)
}

func TestVerifyIDTokenRejectsExpired(t *testing.T) {
	fixture := newJWKSFixture(t)
	defer fixture.server.Close()

	verifier := New(Config{
		ClientID: "client-1",
		JWKSURL:  fixture.server.URL,
	})

	claims := googleIDClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	_, err := verifier.Verify(context.Background(), googletoken.AccessCredential{
		IDToken: fixture.sign(t, claims),
	})
	require.Error(t, err)
}

func TestVerifyPrefersAccessTokenOverIDToken(t *testing.T) {
	server := userInfoServer(t, "good-token")
	defer server.Close()

	verifier := New(Config{UserInfoURL: server.URL})

	profile, err := verifier.Verify(context.Background(), googletoken.AccessCredential{
		AccessToken: "good-token",
		IDToken:     "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "good-token", profile.AccessToken)
}
