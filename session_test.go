package googletoken_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	googletoken "github.com/transomhq/go-googletoken"
)

func TestSessionFromRequestReadsTypedLocals(t *testing.T) {
	tokens := newTestTokenService(t)

	ctx := router.NewMockContext()
	ctx.LocalsMock["user"] = &googletoken.SessionClaims{AccountID: "acc-1"}

	claims, err := googletoken.SessionFromRequest(ctx, tokens, "", "")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.UserID())
}

func TestSessionFromRequestReadsJWTTokenLocals(t *testing.T) {
	tokens := newTestTokenService(t)

	ctx := router.NewMockContext()
	ctx.LocalsMock["user"] = &jwt.Token{
		Claims: jwt.MapClaims{
			"uid":      "acc-2",
			"username": "person@example.com",
		},
	}

	claims, err := googletoken.SessionFromRequest(ctx, tokens, "", "")
	require.NoError(t, err)
	assert.Equal(t, "acc-2", claims.UserID())
	assert.Equal(t, "person@example.com", claims.Username)
}

func TestSessionFromRequestReadsBearerHeader(t *testing.T) {
	tokens := newTestTokenService(t)
	signed, err := tokens.Sign(&googletoken.SessionClaims{AccountID: "acc-3"})
	require.NoError(t, err)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer " + signed)

	claims, err := googletoken.SessionFromRequest(ctx, tokens, "", "")
	require.NoError(t, err)
	assert.Equal(t, "acc-3", claims.UserID())
}

func TestSessionFromRequestReadsCookie(t *testing.T) {
	tokens := newTestTokenService(t)
	signed, err := tokens.Sign(&googletoken.SessionClaims{AccountID: "acc-4"})
	require.NoError(t, err)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("")
	ctx.CookiesM["access_token"] = signed

	claims, err := googletoken.SessionFromRequest(ctx, tokens, "", "")
	require.NoError(t, err)
	assert.Equal(t, "acc-4", claims.UserID())
}

func TestSessionFromRequestWithoutCredential(t *testing.T) {
	tokens := newTestTokenService(t)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("")

	_, err := googletoken.SessionFromRequest(ctx, tokens, "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, googletoken.ErrUnableToFindSession)
}

func TestSessionFromRequestRejectsBadToken(t *testing.T) {
	tokens := newTestTokenService(t)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer not-a-token")

	_, err := googletoken.SessionFromRequest(ctx, tokens, "", "")
	require.Error(t, err)
}
