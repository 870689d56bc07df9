// Package repository はデータ永続化のインターフェースとSQL実装を提供する。
// Auth.jsのアダプタと同じ4種類のレコード（users, accounts, sessions,
// verification_tokens）を扱い、ビジネスロジックは持たない。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/authpage/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithAccount はユーザーとアカウントを同一トランザクションで作成する。
	CreateWithAccount(ctx context.Context, user *model.User, account *model.Account) error
}

// AccountRepository は外部IdPアカウントの永続化インターフェース。
type AccountRepository interface {
	// FindByProvider はproviderとprovider_account_idでアカウントを取得する。
	// 見つからない場合はnilを返す。
	FindByProvider(ctx context.Context, provider, providerAccountID string) (*model.Account, error)

	// Link は既存ユーザーにアカウントを紐付ける。
	Link(ctx context.Context, account *model.Account) error

	// UpdateTokens はアカウントのトークン情報を更新する。
	UpdateTokens(ctx context.Context, account *model.Account) error
}

// SessionRepository はセッションデータの永続化インターフェース。
// 有効期限の判定は呼び出し側（auth.Service）が行う。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByToken はセッショントークンでセッションを取得する。
	// 期限切れでも削除されていなければ返す。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.Session, error)

	// UpdateExpires はセッションの有効期限を更新する。
	UpdateExpires(ctx context.Context, token string, expires time.Time) error

	// DeleteByToken は指定トークンのセッションを削除する。存在しなくてもエラーにしない。
	DeleteByToken(ctx context.Context, token string) error

	// DeleteExpired はnow時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// VerificationTokenRepository は検証トークンの永続化インターフェース。
type VerificationTokenRepository interface {
	// Create は検証トークンを作成する。
	Create(ctx context.Context, token *model.VerificationToken) error

	// Use は検証トークンを削除し、削除したトークンを返す。
	// 存在しない場合はnilを返す。期限切れの判定は呼び出し側が行う。
	Use(ctx context.Context, identifier, token string) (*model.VerificationToken, error)

	// DeleteExpired はnow時点で期限切れのトークンを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
