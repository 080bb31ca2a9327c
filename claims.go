package googletoken

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload embedded in a session token. It carries only
// the fields needed to identify the account; linked identity tokens and any
// other account attributes never travel in a session credential.
type SessionClaims struct {
	jwt.RegisteredClaims
	AccountID   string `json:"uid,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// UserID returns the account id, falling back to the subject claim.
func (c *SessionClaims) UserID() string {
	if c.AccountID != "" {
		return c.AccountID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time, zero when unset.
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// ClaimsBuilder constructs the claims payload for an account. Builders run
// inside the request pipeline and may perform their own lookups.
type ClaimsBuilder func(ctx context.Context, account *Account) (*SessionClaims, error)

// DefaultClaimsBuilder produces the standard id, username, display name, and
// email shape.
func DefaultClaimsBuilder(ctx context.Context, account *Account) (*SessionClaims, error) {
	return &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: account.ID.String(),
		},
		AccountID:   account.ID.String(),
		Username:    account.Username,
		DisplayName: account.DisplayName,
		Email:       account.Email,
	}, nil
}
