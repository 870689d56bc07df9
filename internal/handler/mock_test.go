package handler

import (
	"context"
	"sync"

	"github.com/hitoshi/authpage/internal/auth"
	"github.com/hitoshi/authpage/internal/metrics"
	"github.com/hitoshi/authpage/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	getSessionFn     func(ctx context.Context, token string) (auth.SessionResult, error)
	providersFn      func() []auth.ProviderInfo
	beginSignInFn    func(providerID, callbackURL string) (*auth.SignInRequest, error)
	completeSignInFn func(ctx context.Context, providerID, code, verifier string) (*model.Session, error)
	signOutFn        func(ctx context.Context, token string) error
}

func (m *mockAuthService) GetSession(ctx context.Context, token string) (auth.SessionResult, error) {
	if m.getSessionFn != nil {
		return m.getSessionFn(ctx, token)
	}
	return auth.SessionResult{Status: auth.StatusUnauthenticated}, nil
}

func (m *mockAuthService) Providers() []auth.ProviderInfo {
	if m.providersFn != nil {
		return m.providersFn()
	}
	return nil
}

func (m *mockAuthService) BeginSignIn(providerID, callbackURL string) (*auth.SignInRequest, error) {
	if m.beginSignInFn != nil {
		return m.beginSignInFn(providerID, callbackURL)
	}
	return &auth.SignInRequest{
		ProviderID:   providerID,
		URL:          "https://accounts.google.com/o/oauth2/v2/auth?state=test-state",
		State:        "test-state",
		CodeVerifier: "test-verifier",
		CallbackURL:  callbackURL,
	}, nil
}

func (m *mockAuthService) CompleteSignIn(ctx context.Context, providerID, code, verifier string) (*model.Session, error) {
	if m.completeSignInFn != nil {
		return m.completeSignInFn(ctx, providerID, code, verifier)
	}
	return nil, nil
}

func (m *mockAuthService) SignOut(ctx context.Context, token string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, token)
	}
	return nil
}

// signInCollector はサインイン・サインアウトのメトリクスを記録する。
type signInCollector struct {
	metrics.Nop
	mu       sync.Mutex
	signIns  []string // "provider/result"
	signOuts int
}

func (c *signInCollector) RecordSignIn(provider, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signIns = append(c.signIns, provider+"/"+result)
}

func (c *signInCollector) RecordSignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signOuts++
}
