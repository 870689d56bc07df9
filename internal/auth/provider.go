// Package auth は外部IdPによるサインインとデータベースセッションの管理を提供する。
package auth

import (
	"context"
)

// Profile はIdPから取得したユーザープロフィールを表す。
type Profile struct {
	ProviderAccountID string // IdP内の一意なユーザーID（Googleのsub）
	Name              string
	Email             string
	EmailVerified     bool
	Image             string
}

// Tokens はIdPが発行したトークン一式を表す。accountsテーブルにそのまま保存する。
type Tokens struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	IDToken      string
	ExpiresAt    int64 // UNIX秒。不明な場合は0
}

// Provider は外部IdPのインターフェース。
// 認可コードフロー（PKCE付き）の開始URL生成と、コード交換からプロフィール取得までを担う。
type Provider interface {
	// ID はURLやaccounts.providerに使う識別子（例: "google"）を返す。
	ID() string
	// Name は画面表示用の名前を返す。
	Name() string
	// Type はaccounts.typeに保存する種別（"oidc" または "oauth"）を返す。
	Type() string
	// AuthCodeURL はstateとPKCEのcode_verifierから認可URLを生成する。
	AuthCodeURL(state, verifier string) string
	// Exchange は認可コードをトークンに交換し、プロフィールを取得する。
	Exchange(ctx context.Context, code, verifier string) (*Profile, *Tokens, error)
}

// ProviderInfo は/api/auth/providersで返すプロバイダー情報。
type ProviderInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	SignInURL   string `json:"signinUrl"`
	CallbackURL string `json:"callbackUrl"`
}
