package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/hitoshi/authpage/internal/model"
	"github.com/hitoshi/authpage/internal/repository"
	"github.com/hitoshi/authpage/internal/security"
)

// SessionStatus はセッション解決の結果種別。
type SessionStatus int

const (
	// StatusUnauthenticated は有効なセッションがないことを表す。
	StatusUnauthenticated SessionStatus = iota
	// StatusAuthenticated は有効なセッションとユーザーが存在することを表す。
	StatusAuthenticated
)

// String はログ出力用の文字列を返す。
func (s SessionStatus) String() string {
	if s == StatusAuthenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// SessionResult はGetSessionの結果。
// StatusAuthenticatedの場合のみUserとSessionが設定される。
type SessionResult struct {
	Status  SessionStatus
	User    *model.User
	Session *model.Session
	// Refreshed は有効期限を延長したことを表す。呼び出し側はCookieを再発行する。
	Refreshed bool
}

// Authenticated は有効なセッションがあるかを返す。
func (r SessionResult) Authenticated() bool {
	return r.Status == StatusAuthenticated && r.User != nil && r.Session != nil
}

// SignInRequest はBeginSignInの結果。URLへリダイレクトし、残りはフローCookieに保存する。
type SignInRequest struct {
	ProviderID   string
	URL          string
	State        string
	CodeVerifier string
	CallbackURL  string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BaseURL                  string        // AUTH_URL（末尾スラッシュなし）
	SessionMaxAge            time.Duration // セッション有効期間
	SessionUpdateAge         time.Duration // 有効期限を延長する間隔。0の場合は延長しない
	AllowEmailAccountLinking bool          // 同一メールアドレスの既存ユーザーへ自動で紐付けるか
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	providers   map[string]Provider
	order       []string
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
	sessionRepo repository.SessionRepository
	tokenRepo   repository.VerificationTokenRepository
	sanitizer   *security.ProfileSanitizer
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。sanitizerがnilの場合は標準のProfileSanitizerを使う。
func NewService(
	providers []Provider,
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
	sessionRepo repository.SessionRepository,
	tokenRepo repository.VerificationTokenRepository,
	sanitizer *security.ProfileSanitizer,
	config ServiceConfig,
) *Service {
	if sanitizer == nil {
		sanitizer = security.NewProfileSanitizer()
	}

	s := &Service{
		providers:   make(map[string]Provider, len(providers)),
		userRepo:    userRepo,
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		tokenRepo:   tokenRepo,
		sanitizer:   sanitizer,
		config:      config,
		now:         time.Now,
	}
	for _, p := range providers {
		s.providers[p.ID()] = p
		s.order = append(s.order, p.ID())
	}
	return s
}

// Providers は設定済みプロバイダーの一覧を登録順に返す。
func (s *Service) Providers() []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(s.order))
	for _, id := range s.order {
		p := s.providers[id]
		infos = append(infos, ProviderInfo{
			ID:          id,
			Name:        p.Name(),
			Type:        p.Type(),
			SignInURL:   s.config.BaseURL + "/api/auth/signin/" + id,
			CallbackURL: s.config.BaseURL + "/api/auth/callback/" + id,
		})
	}
	return infos
}

// GetSession はセッショントークンからセッションとユーザーを解決する。
// トークンが空・未登録・期限切れ、またはユーザーが存在しない場合は未認証を返す。
// 期限切れのセッションはその場で削除する（失敗してもログのみ）。
// データベースエラーはそのまま返す。
func (s *Service) GetSession(ctx context.Context, token string) (SessionResult, error) {
	unauthenticated := SessionResult{Status: StatusUnauthenticated}
	if token == "" {
		return unauthenticated, nil
	}

	session, err := s.sessionRepo.FindByToken(ctx, token)
	if err != nil {
		return unauthenticated, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return unauthenticated, nil
	}

	now := s.now()
	if session.IsExpired(now) {
		if err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
			slog.Warn("failed to delete expired session",
				slog.String("user_id", session.UserID),
				slog.String("error", err.Error()),
			)
		}
		return unauthenticated, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return unauthenticated, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return unauthenticated, nil
	}

	result := SessionResult{
		Status:  StatusAuthenticated,
		User:    user,
		Session: session,
	}

	if s.shouldRefresh(session, now) {
		expires := now.Add(s.config.SessionMaxAge)
		if err := s.sessionRepo.UpdateExpires(ctx, token, expires); err != nil {
			// 延長できなくても現在のセッションは有効
			slog.Warn("failed to extend session",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
			return result, nil
		}
		session.Expires = expires
		result.Refreshed = true
	}

	return result, nil
}

// shouldRefresh は最後の延長からSessionUpdateAge以上経過したかを判定する。
// 延長時にexpires = now + maxAgeとするため、expires - maxAgeが最後の延長時刻になる。
func (s *Service) shouldRefresh(session *model.Session, now time.Time) bool {
	if s.config.SessionUpdateAge <= 0 {
		return false
	}
	lastUpdated := session.Expires.Add(-s.config.SessionMaxAge)
	return lastUpdated.Add(s.config.SessionUpdateAge).Before(now)
}

// BeginSignIn はプロバイダーの認可URLと、フローCookieに保存するstate・PKCE verifierを生成する。
// 未知のプロバイダーの場合はConfigurationエラーを返す。
func (s *Service) BeginSignIn(providerID, callbackURL string) (*SignInRequest, error) {
	p, ok := s.providers[providerID]
	if !ok {
		return nil, model.NewConfigurationError(fmt.Sprintf("unknown provider %q", providerID))
	}

	state, err := generateToken()
	if err != nil {
		return nil, model.NewOAuthSigninError(err)
	}
	verifier := oauth2.GenerateVerifier()

	return &SignInRequest{
		ProviderID:   providerID,
		URL:          p.AuthCodeURL(state, verifier),
		State:        state,
		CodeVerifier: verifier,
		CallbackURL:  callbackURL,
	}, nil
}

// CompleteSignIn は認可コードを交換してユーザーを特定（または作成）し、セッションを発行する。
// 初回サインインではusersとaccountsを同一トランザクションで作成する。
// 失敗時は*model.AuthErrorを返す。
func (s *Service) CompleteSignIn(ctx context.Context, providerID, code, verifier string) (*model.Session, error) {
	p, ok := s.providers[providerID]
	if !ok {
		return nil, model.NewConfigurationError(fmt.Sprintf("unknown provider %q", providerID))
	}

	// 1. 認可コードを交換し、プロフィールを取得
	profile, tokens, err := p.Exchange(ctx, code, verifier)
	if err != nil {
		return nil, model.NewOAuthCallbackError(err)
	}
	if profile.ProviderAccountID == "" {
		return nil, model.NewOAuthCallbackError(errors.New("provider returned no account id"))
	}

	// 2. プロフィールを正規化
	profile.Name = s.sanitizer.Name(profile.Name)
	profile.Email = s.sanitizer.Email(profile.Email)
	profile.Image = s.sanitizer.ImageURL(profile.Image)

	// 3. ユーザーを特定または作成
	now := s.now()
	userID, err := s.resolveUser(ctx, p, profile, tokens, now)
	if err != nil {
		return nil, err
	}

	// 4. セッションを発行
	session, err := s.createSession(ctx, userID, now)
	if err != nil {
		return nil, model.NewCallbackError(err)
	}

	return session, nil
}

// resolveUser はアカウント・メールアドレスの順で既存ユーザーを探し、なければ新規作成する。
func (s *Service) resolveUser(ctx context.Context, p Provider, profile *Profile, tokens *Tokens, now time.Time) (string, error) {
	account := newAccount(p, profile, tokens, now)

	existing, err := s.accountRepo.FindByProvider(ctx, p.ID(), profile.ProviderAccountID)
	if err != nil {
		return "", model.NewCallbackError(fmt.Errorf("failed to find account: %w", err))
	}
	if existing != nil {
		// 既存アカウント: トークンのみ更新する
		account.ID = existing.ID
		account.UserID = existing.UserID
		if err := s.accountRepo.UpdateTokens(ctx, account); err != nil {
			return "", model.NewCallbackError(err)
		}
		slog.Info("existing user signed in",
			slog.String("user_id", existing.UserID),
			slog.String("provider", p.ID()),
		)
		return existing.UserID, nil
	}

	if profile.Email != "" {
		user, err := s.userRepo.FindByEmail(ctx, profile.Email)
		if err != nil {
			return "", model.NewCallbackError(fmt.Errorf("failed to find user by email: %w", err))
		}
		if user != nil {
			if !s.config.AllowEmailAccountLinking {
				slog.Warn("sign-in rejected: email already used by another account",
					slog.String("user_id", user.ID),
					slog.String("provider", p.ID()),
				)
				return "", model.NewAccountNotLinkedError()
			}
			account.UserID = user.ID
			if err := s.accountRepo.Link(ctx, account); err != nil {
				return "", model.NewCallbackError(err)
			}
			slog.Info("account linked to existing user",
				slog.String("user_id", user.ID),
				slog.String("provider", p.ID()),
			)
			return user.ID, nil
		}
	}

	// 新規ユーザー: usersとaccountsを同時に作成
	user := &model.User{
		ID:        uuid.New().String(),
		Name:      profile.Name,
		Email:     profile.Email,
		Image:     profile.Image,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if profile.EmailVerified && profile.Email != "" {
		verifiedAt := now
		user.EmailVerified = &verifiedAt
	}
	account.UserID = user.ID

	if err := s.userRepo.CreateWithAccount(ctx, user, account); err != nil {
		return "", model.NewCallbackError(err)
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("provider", p.ID()),
	)
	return user.ID, nil
}

// newAccount はプロフィールとトークンからAccountを組み立てる。UserIDは呼び出し側で設定する。
func newAccount(p Provider, profile *Profile, tokens *Tokens, now time.Time) *model.Account {
	if tokens == nil {
		tokens = &Tokens{}
	}
	return &model.Account{
		ID:                uuid.New().String(),
		Type:              p.Type(),
		Provider:          p.ID(),
		ProviderAccountID: profile.ProviderAccountID,
		RefreshToken:      tokens.RefreshToken,
		AccessToken:       tokens.AccessToken,
		ExpiresAt:         tokens.ExpiresAt,
		TokenType:         tokens.TokenType,
		Scope:             tokens.Scope,
		IDToken:           tokens.IDToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// SignOut はセッションを破棄する。空のトークンは何もしない。
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user signed out")
	return nil
}

// CreateVerificationToken はidentifier（メールアドレス等）に対する使い捨てトークンを発行する。
// verification_tokensテーブルのアダプタとして提供する。メールリンク等のパスワードレス
// プロバイダーは現在設定されていないため、ルートからは呼び出されない。
func (s *Service) CreateVerificationToken(ctx context.Context, identifier string, ttl time.Duration) (*model.VerificationToken, error) {
	if identifier == "" {
		return nil, fmt.Errorf("identifier is required")
	}

	value, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	vt := &model.VerificationToken{
		Identifier: identifier,
		Token:      value,
		Expires:    s.now().Add(ttl),
	}
	if err := s.tokenRepo.Create(ctx, vt); err != nil {
		return nil, err
	}
	return vt, nil
}

// UseVerificationToken はトークンを消費する。
// 未登録・使用済み・期限切れの場合はVerificationエラーを返す。期限切れのトークンも削除される。
func (s *Service) UseVerificationToken(ctx context.Context, identifier, token string) (*model.VerificationToken, error) {
	vt, err := s.tokenRepo.Use(ctx, identifier, token)
	if err != nil {
		return nil, err
	}
	if vt == nil || vt.IsExpired(s.now()) {
		return nil, model.NewVerificationError()
	}
	return vt, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string, now time.Time) (*model.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &model.Session{
		Token:     token,
		UserID:    userID,
		Expires:   now.Add(s.config.SessionMaxAge),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateToken は暗号的に安全な32バイトの乱数を16進文字列で返す。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
