package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	rb "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/transomhq/go-googletoken"
)

// AccountsRepository implements googletoken.AccountRepository using Bun.
// Unique key violations on (provider, provider_user_id) surface as the typed
// identity conflict so callers never inspect driver error codes.
type AccountsRepository struct {
	db *bun.DB
}

// NewAccountsRepository creates a new repository.
func NewAccountsRepository(db *bun.DB) *AccountsRepository {
	return &AccountsRepository{db: db}
}

// FindByLinkedIdentity implements googletoken.AccountRepository.
func (r *AccountsRepository) FindByLinkedIdentity(ctx context.Context, provider, externalID string) (*googletoken.Account, error) {
	account := new(googletoken.Account)
	err := r.db.NewSelect().
		Model(account).
		Relation("Identities").
		Join("JOIN linked_identities AS ident ON ident.account_id = acc.id").
		Where("ident.provider = ? AND ident.provider_user_id = ?", provider, externalID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, rb.NewRecordNotFound()
		}
		return nil, err
	}
	return account, nil
}

// FindByID implements googletoken.AccountRepository.
func (r *AccountsRepository) FindByID(ctx context.Context, id string) (*googletoken.Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid account id")
	}

	account := new(googletoken.Account)
	err = r.db.NewSelect().
		Model(account).
		Relation("Identities").
		Where("acc.id = ?", accountID).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, rb.NewRecordNotFound()
		}
		return nil, err
	}
	return account, nil
}

// Create implements googletoken.AccountRepository. The account and its
// identities are inserted in one transaction.
func (r *AccountsRepository) Create(ctx context.Context, account *googletoken.Account) (*googletoken.Account, error) {
	now := time.Now()
	if account.CreatedAt == nil {
		account.CreatedAt = &now
	}
	account.UpdatedAt = &now

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(account).Exec(ctx); err != nil {
			return err
		}
		// Plain inserts here: a concurrent first login for the same external
		// identity must fail with the conflict, not silently take over the row.
		return insertIdentities(ctx, tx, account)
	})
	if err != nil {
		return nil, translateErr(err)
	}
	return account, nil
}

// Update implements googletoken.AccountRepository. Identities use an upsert
// keyed on (provider, provider_user_id): re-login refreshes the cached
// credential, linking attaches a new row.
func (r *AccountsRepository) Update(ctx context.Context, account *googletoken.Account) (*googletoken.Account, error) {
	now := time.Now()
	account.UpdatedAt = &now

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model(account).
			Column("username", "display_name", "email", "active", "verified_at", "groups", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return err
		}
		return upsertIdentities(ctx, tx, account)
	})
	if err != nil {
		return nil, translateErr(err)
	}
	return account, nil
}

func insertIdentities(ctx context.Context, tx bun.Tx, account *googletoken.Account) error {
	now := time.Now()
	for _, li := range account.Identities {
		stampIdentity(li, account.ID, now)
		if _, err := tx.NewInsert().Model(li).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func upsertIdentities(ctx context.Context, tx bun.Tx, account *googletoken.Account) error {
	now := time.Now()
	for _, li := range account.Identities {
		stampIdentity(li, account.ID, now)

		_, err := tx.NewInsert().
			Model(li).
			On("CONFLICT (provider, provider_user_id) DO UPDATE").
			Set("account_id = EXCLUDED.account_id").
			Set("access_token = EXCLUDED.access_token").
			Set("display_name = EXCLUDED.display_name").
			Set("email = EXCLUDED.email").
			Set("avatar_url = EXCLUDED.avatar_url").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func stampIdentity(li *googletoken.LinkedIdentity, accountID uuid.UUID, now time.Time) {
	li.AccountID = accountID
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	if li.CreatedAt == nil {
		li.CreatedAt = &now
	}
	li.UpdatedAt = &now
}

func translateErr(err error) error {
	if isUniqueViolation(err) {
		return errors.Wrap(err, errors.CategoryConflict, "external identity already registered").
			WithTextCode(googletoken.TextCodeIdentityConflict).
			WithCode(errors.CodeConflict)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "Error 1062")
}
