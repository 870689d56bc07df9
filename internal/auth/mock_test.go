package auth

import (
	"context"
	"time"

	"github.com/hitoshi/authpage/internal/model"
	"github.com/hitoshi/authpage/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn          func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn       func(ctx context.Context, email string) (*model.User, error)
	createWithAccountFn func(ctx context.Context, user *model.User, account *model.Account) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithAccount(ctx context.Context, user *model.User, account *model.Account) error {
	if m.createWithAccountFn != nil {
		return m.createWithAccountFn(ctx, user, account)
	}
	return nil
}

type mockAccountRepo struct {
	findByProviderFn func(ctx context.Context, provider, providerAccountID string) (*model.Account, error)
	linkFn           func(ctx context.Context, account *model.Account) error
	updateTokensFn   func(ctx context.Context, account *model.Account) error
}

func (m *mockAccountRepo) FindByProvider(ctx context.Context, provider, providerAccountID string) (*model.Account, error) {
	if m.findByProviderFn != nil {
		return m.findByProviderFn(ctx, provider, providerAccountID)
	}
	return nil, nil
}

func (m *mockAccountRepo) Link(ctx context.Context, account *model.Account) error {
	if m.linkFn != nil {
		return m.linkFn(ctx, account)
	}
	return nil
}

func (m *mockAccountRepo) UpdateTokens(ctx context.Context, account *model.Account) error {
	if m.updateTokensFn != nil {
		return m.updateTokensFn(ctx, account)
	}
	return nil
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, session *model.Session) error
	findByTokenFn   func(ctx context.Context, token string) (*model.Session, error)
	updateExpiresFn func(ctx context.Context, token string, expires time.Time) error
	deleteByTokenFn func(ctx context.Context, token string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	if m.findByTokenFn != nil {
		return m.findByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) UpdateExpires(ctx context.Context, token string, expires time.Time) error {
	if m.updateExpiresFn != nil {
		return m.updateExpiresFn(ctx, token, expires)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	if m.deleteByTokenFn != nil {
		return m.deleteByTokenFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type mockTokenRepo struct {
	createFn func(ctx context.Context, token *model.VerificationToken) error
	useFn    func(ctx context.Context, identifier, token string) (*model.VerificationToken, error)
}

func (m *mockTokenRepo) Create(ctx context.Context, token *model.VerificationToken) error {
	if m.createFn != nil {
		return m.createFn(ctx, token)
	}
	return nil
}

func (m *mockTokenRepo) Use(ctx context.Context, identifier, token string) (*model.VerificationToken, error) {
	if m.useFn != nil {
		return m.useFn(ctx, identifier, token)
	}
	return nil, nil
}

func (m *mockTokenRepo) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type mockProvider struct {
	exchangeFn func(ctx context.Context, code, verifier string) (*Profile, *Tokens, error)
}

func (m *mockProvider) ID() string   { return "google" }
func (m *mockProvider) Name() string { return "Google" }
func (m *mockProvider) Type() string { return "oidc" }

func (m *mockProvider) AuthCodeURL(state, verifier string) string {
	return "https://idp.example.com/auth?state=" + state + "&verifier=" + verifier
}

func (m *mockProvider) Exchange(ctx context.Context, code, verifier string) (*Profile, *Tokens, error) {
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, code, verifier)
	}
	return nil, nil, nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.AccountRepository = (*mockAccountRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ repository.VerificationTokenRepository = (*mockTokenRepo)(nil)
var _ Provider = (*mockProvider)(nil)
