package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	googleProviderID         = "google"
	defaultGoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

	// userinfoレスポンスの読み込み上限
	maxUserInfoSize = 1 << 20
)

// GoogleConfig はGoogleプロバイダーの設定。
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能な値。ゼロ値の場合はGoogleの本番エンドポイントを使う。
	Endpoint    oauth2.Endpoint
	UserInfoURL string

	// トークン・ユーザー情報エンドポイントへの通信に使うクライアント。
	// nilの場合はhttp.DefaultClientを使う。
	HTTPClient *http.Client
}

// GoogleProvider はGoogle OAuth 2.0（OpenID Connect）によるサインインを提供する。
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	client      *http.Client
}

// NewGoogleProvider はGoogleProviderを生成する。
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		endpoint = endpoints.Google
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultGoogleUserInfoURL
	}

	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		client:      cfg.HTTPClient,
	}
}

// ID はプロバイダー識別子を返す。
func (p *GoogleProvider) ID() string { return googleProviderID }

// Name は表示名を返す。
func (p *GoogleProvider) Name() string { return "Google" }

// Type はアカウント種別を返す。
func (p *GoogleProvider) Type() string { return "oidc" }

// AuthCodeURL はGoogleの認可URLを生成する。
// リフレッシュトークンを得るためにaccess_type=offlineを付与する。
func (p *GoogleProvider) AuthCodeURL(state, verifier string) string {
	return p.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)
}

// googleUserInfo はGoogleのuserinfoエンドポイントのレスポンス。
type googleUserInfo struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`
}

// Exchange は認可コードをトークンに交換し、userinfoからプロフィールを取得する。
func (p *GoogleProvider) Exchange(ctx context.Context, code, verifier string) (*Profile, *Tokens, error) {
	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}

	// 1. 認可コードをトークンに交換
	token, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	// 2. アクセストークンでユーザー情報を取得
	info, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	profile := &Profile{
		ProviderAccountID: info.Sub,
		Name:              info.Name,
		Email:             info.Email,
		EmailVerified:     info.EmailVerified,
		Image:             info.Picture,
	}

	return profile, tokensFrom(token), nil
}

// fetchUserInfo はアクセストークン付きクライアントでuserinfoを取得する。
func (p *GoogleProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}

	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if info.Sub == "" {
		return nil, fmt.Errorf("empty sub in user info response")
	}

	return &info, nil
}

// tokensFrom はoauth2.TokenをTokensに変換する。
// id_tokenとscopeはトークンレスポンスの追加フィールドから取り出す。
func tokensFrom(token *oauth2.Token) *Tokens {
	t := &Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
	}
	if !token.Expiry.IsZero() {
		t.ExpiresAt = token.Expiry.Unix()
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		t.IDToken = idToken
	}
	if scope, ok := token.Extra("scope").(string); ok {
		t.Scope = scope
	}
	return t
}

// compile-time interface check
var _ Provider = (*GoogleProvider)(nil)
