package googletoken

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the durable local identity. Its id is assigned at creation and
// never reassigned; inactive accounts must never resolve to a usable session.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`

	ID          uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username    string            `bun:"username,notnull,unique" json:"username,omitempty"`
	DisplayName string            `bun:"display_name" json:"display_name,omitempty"`
	Email       string            `bun:"email,notnull,unique" json:"email,omitempty"`
	Active      bool              `bun:"active,notnull" json:"active"`
	VerifiedAt  *time.Time        `bun:"verified_at,nullzero" json:"verified_at,omitempty"`
	Groups      []string          `bun:"groups,type:jsonb" json:"groups,omitempty"`
	Identities  []*LinkedIdentity `bun:"rel:has-many,join:id=account_id" json:"identities,omitempty"`
	CreatedAt   *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time        `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Identity returns the linked identity for a provider, or nil.
func (a *Account) Identity(provider string) *LinkedIdentity {
	for _, li := range a.Identities {
		if li.Provider == provider {
			return li
		}
	}
	return nil
}

// AttachIdentity overwrites the linked identity for li.Provider. The per
// provider record is a cache of the last successful login, not an append log.
func (a *Account) AttachIdentity(li *LinkedIdentity) {
	li.AccountID = a.ID
	for i, existing := range a.Identities {
		if existing.Provider == li.Provider {
			li.ID = existing.ID
			a.Identities[i] = li
			return
		}
	}
	a.Identities = append(a.Identities, li)
}

// LinkedIdentity maps one external provider identity onto an account. At most
// one account may hold a given (provider, provider_user_id) pair; the
// repository enforces this with a uniqueness constraint.
type LinkedIdentity struct {
	bun.BaseModel `bun:"table:linked_identities,alias:li"`

	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID      uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	Provider       string     `bun:"provider,notnull" json:"provider,omitempty"`
	ProviderUserID string     `bun:"provider_user_id,notnull" json:"provider_user_id,omitempty"`
	AccessToken    string     `bun:"access_token" json:"-"`
	DisplayName    string     `bun:"display_name" json:"display_name,omitempty"`
	Email          string     `bun:"email" json:"email,omitempty"`
	AvatarURL      string     `bun:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
