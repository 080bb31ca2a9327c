package googletoken

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// ResolverConfig configures account provisioning.
type ResolverConfig struct {
	// NewAccountsInactive creates accounts with active=false. The default is
	// active accounts, matching first login expectations.
	NewAccountsInactive bool
	// DefaultGroups are assigned to newly created accounts.
	DefaultGroups []string
	// UseHashID derives new account ids deterministically from the canonical
	// email instead of generating random uuids.
	UseHashID bool
	// NewAccountHook runs after a new account is persisted.
	NewAccountHook NewAccountHook
}

// Resolution is the outcome of a successful resolve call.
type Resolution struct {
	Account *Account
	// Created marks a first seen external identity.
	Created bool
	// Linked marks the identity being attached to an already authenticated
	// account.
	Linked bool
}

// IdentityResolver maps verified external profiles onto local accounts.
type IdentityResolver struct {
	repo   AccountRepository
	config ResolverConfig
	logger Logger
}

// NewIdentityResolver creates a resolver backed by the given repository.
func NewIdentityResolver(repo AccountRepository, cfg ResolverConfig, logger Logger) *IdentityResolver {
	if logger == nil {
		logger = defLogger{}
	}
	return &IdentityResolver{
		repo:   repo,
		config: cfg,
		logger: logger,
	}
}

// Resolve determines the single canonical account for a verified profile.
//
// When current is non nil the request belongs to an already authenticated
// user connecting a new provider: the identity is attached to that account
// directly and no lookup by linked identity happens, the existing session is
// authoritative. Otherwise the repository is queried by (provider, external
// id); a match that is inactive fails with ErrAccountInactive before any
// mutation, and a miss provisions a new account.
func (r *IdentityResolver) Resolve(ctx context.Context, profile *ExternalProfile, current *Account) (*Resolution, error) {
	if profile == nil || profile.ID == "" {
		return nil, ErrNoVerifiedProfile
	}

	canonicalEmail := profile.CanonicalEmail()

	result := &Resolution{}

	switch {
	case current != nil:
		result.Account = current
		result.Linked = true
	default:
		account, err := r.repo.FindByLinkedIdentity(ctx, profile.Provider, profile.ID)
		if err != nil && !repository.IsRecordNotFound(err) && err != sql.ErrNoRows {
			return nil, errors.Wrap(err, ErrAccountStore.Category, "failed to find linked account").
				WithTextCode(ErrAccountStore.TextCode)
		}

		if account != nil {
			if !account.Active {
				return nil, ErrAccountInactive
			}
			result.Account = account
		} else {
			result.Account = r.provision(profile, canonicalEmail)
			result.Created = true
		}
	}

	result.Account.AttachIdentity(&LinkedIdentity{
		Provider:       profile.Provider,
		ProviderUserID: profile.ID,
		AccessToken:    profile.AccessToken,
		DisplayName:    profile.ResolveDisplayName(),
		Email:          canonicalEmail,
		AvatarURL:      profile.AvatarURL,
	})

	if err := r.persist(ctx, result); err != nil {
		return nil, err
	}

	if result.Created && r.config.NewAccountHook != nil {
		if err := r.config.NewAccountHook(ctx, result.Account); err != nil {
			return nil, errors.Wrap(err, ErrAccountStore.Category, "new account finalization failed").
				WithTextCode(ErrAccountStore.TextCode)
		}
	}

	return result, nil
}

func (r *IdentityResolver) provision(profile *ExternalProfile, canonicalEmail string) *Account {
	now := time.Now()
	account := &Account{
		ID:          r.newAccountID(canonicalEmail),
		Username:    canonicalEmail,
		DisplayName: profile.ResolveDisplayName(),
		Email:       canonicalEmail,
		Active:      !r.config.NewAccountsInactive,
		VerifiedAt:  &now,
		Groups:      append([]string(nil), r.config.DefaultGroups...),
	}
	return account
}

func (r *IdentityResolver) newAccountID(canonicalEmail string) uuid.UUID {
	if r.config.UseHashID {
		if id, err := hashid.NewUUID(canonicalEmail); err == nil {
			return id
		}
	}
	return uuid.New()
}

func (r *IdentityResolver) persist(ctx context.Context, result *Resolution) error {
	var err error
	if result.Created {
		result.Account, err = r.repo.Create(ctx, result.Account)
	} else {
		result.Account, err = r.repo.Update(ctx, result.Account)
	}

	if err == nil {
		return nil
	}

	// Two concurrent first logins for the same external identity race between
	// lookup and persist; the repository's uniqueness constraint is the sole
	// arbiter and its conflict signal stays typed so callers can re-resolve.
	if IsConflict(err) {
		return err
	}

	r.logger.Error("account persistence failed: %v", err)
	return errors.Wrap(err, ErrAccountStore.Category, ErrAccountStore.Message).
		WithTextCode(ErrAccountStore.TextCode)
}
