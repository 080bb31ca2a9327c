package googletoken

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// AccessCredential carries the third party credential presented by a client.
// Exactly one of the fields is expected; AccessToken wins when both are set.
type AccessCredential struct {
	AccessToken string `json:"access_token" form:"access_token"`
	IDToken     string `json:"id_token" form:"id_token"`
}

// ProfileVerifier validates a provider credential and returns the verified
// profile. Implementations never hand raw provider credentials to the core.
type ProfileVerifier interface {
	Verify(ctx context.Context, credential AccessCredential) (*ExternalProfile, error)
}

// AccountRepository is the durable store for accounts and their linked
// identities. Create must surface a unique key violation on
// (provider, external id) as ErrIdentityConflict rather than a generic
// failure; the resolver never inspects storage engine error codes.
type AccountRepository interface {
	FindByLinkedIdentity(ctx context.Context, provider, externalID string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, account *Account) (*Account, error)
	Update(ctx context.Context, account *Account) (*Account, error)
}

// Connection is a live real-time connection bound to an account.
type Connection interface {
	AccountID() string
	Disconnect() error
}

// ConnectionRegistry exposes a point-in-time snapshot of live connections.
// The registry may be mutated concurrently; entries gone by the time they are
// disconnected are treated as already closed.
type ConnectionRegistry interface {
	Snapshot() []Connection
}

// NewAccountHook runs after a newly created account is persisted. A failure
// is attributed to account finalization, not to authentication.
type NewAccountHook func(ctx context.Context, account *Account) error

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] GOOGLETOKEN "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] GOOGLETOKEN "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] GOOGLETOKEN "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
