// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 初回サインイン時に作成され、このアプリケーションからは削除しない。
type User struct {
	ID            string
	Name          string
	Email         string
	EmailVerified *time.Time
	Image         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Account は外部IdPのアカウントとユーザーの紐付けを表す。
// 1ユーザーに対してプロバイダーごとに1件作成される。
type Account struct {
	ID                string
	UserID            string
	Type              string // "oidc", "oauth"
	Provider          string // "google" 等
	ProviderAccountID string
	RefreshToken      string
	AccessToken       string
	ExpiresAt         int64 // アクセストークンの有効期限（UNIX秒）。不明な場合は0
	TokenType         string
	Scope             string
	IDToken           string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	Token     string
	UserID    string
	Expires   time.Time
	CreatedAt time.Time
}

// IsExpired はnow時点でセッションが有効期限切れかどうかを返す。
// 有効期限ちょうどの時刻は期限切れとして扱う。
func (s *Session) IsExpired(now time.Time) bool {
	return !s.Expires.After(now)
}

// VerificationToken はメール検証などで使う短命の使い捨てトークンを表す。
type VerificationToken struct {
	Identifier string
	Token      string
	Expires    time.Time
}

// IsExpired はnow時点でトークンが有効期限切れかどうかを返す。
func (v *VerificationToken) IsExpired(now time.Time) bool {
	return !v.Expires.After(now)
}
