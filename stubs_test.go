package googletoken_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	googletoken "github.com/transomhq/go-googletoken"
)

type stubAccountRepo struct {
	byIdentity map[string]*googletoken.Account
	byID       map[string]*googletoken.Account

	findCalls   int
	createCalls int
	updateCalls int

	findErr   error
	createErr error
	updateErr error
}

func identityKey(provider, externalID string) string {
	return provider + "|" + externalID
}

func (s *stubAccountRepo) FindByLinkedIdentity(ctx context.Context, provider, externalID string) (*googletoken.Account, error) {
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	if account, ok := s.byIdentity[identityKey(provider, externalID)]; ok {
		return account, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubAccountRepo) FindByID(ctx context.Context, id string) (*googletoken.Account, error) {
	if account, ok := s.byID[id]; ok {
		return account, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubAccountRepo) Create(ctx context.Context, account *googletoken.Account) (*googletoken.Account, error) {
	s.createCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.index(account)
	return account, nil
}

func (s *stubAccountRepo) Update(ctx context.Context, account *googletoken.Account) (*googletoken.Account, error) {
	s.updateCalls++
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.index(account)
	return account, nil
}

func (s *stubAccountRepo) index(account *googletoken.Account) {
	if s.byIdentity == nil {
		s.byIdentity = map[string]*googletoken.Account{}
	}
	if s.byID == nil {
		s.byID = map[string]*googletoken.Account{}
	}
	for _, li := range account.Identities {
		s.byIdentity[identityKey(li.Provider, li.ProviderUserID)] = account
	}
	s.byID[account.ID.String()] = account
}

type stubVerifier struct {
	profile *googletoken.ExternalProfile
	err     error
}

func (s *stubVerifier) Verify(ctx context.Context, credential googletoken.AccessCredential) (*googletoken.ExternalProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

type stubConnection struct {
	accountID     string
	disconnects   int
	disconnectErr error
}

func (s *stubConnection) AccountID() string {
	return s.accountID
}

func (s *stubConnection) Disconnect() error {
	s.disconnects++
	return s.disconnectErr
}

func newTestTokenService(t *testing.T) *googletoken.HMACTokenService {
	t.Helper()
	tokens, err := googletoken.NewTokenService(googletoken.TokenConfig{
		Secret: "test-secret",
	}, nil)
	require.NoError(t, err)
	return tokens
}

func googleProfile() *googletoken.ExternalProfile {
	return &googletoken.ExternalProfile{
		Provider:    "google",
		ID:          "sub-123",
		Emails:      []string{"Person@Example.com"},
		DisplayName: "Person Example",
		AvatarURL:   "https://img.example.com/p.png",
		AccessToken: "provider-token",
	}
}

func activeAccount() *googletoken.Account {
	return &googletoken.Account{
		ID:       uuid.New(),
		Username: "person@example.com",
		Email:    "person@example.com",
		Active:   true,
	}
}
