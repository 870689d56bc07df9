package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/authpage/internal/database"
	"github.com/hitoshi/authpage/internal/model"
)

const insertAccountSQL = `INSERT INTO accounts (
	id, user_id, type, provider, provider_account_id,
	refresh_token, access_token, expires_at, token_type, scope, id_token,
	created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// accountArgs はinsertAccountSQLのパラメータを並べる。
func accountArgs(a *model.Account) []any {
	return []any{
		a.ID, a.UserID, a.Type, a.Provider, a.ProviderAccountID,
		a.RefreshToken, a.AccessToken, a.ExpiresAt, a.TokenType, a.Scope, a.IDToken,
		a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	}
}

// SQLAccountRepo はdatabase/sqlを使用したアカウントリポジトリ。
type SQLAccountRepo struct {
	db *database.DB
}

// NewSQLAccountRepo はSQLAccountRepoを生成する。
func NewSQLAccountRepo(db *database.DB) *SQLAccountRepo {
	return &SQLAccountRepo{db: db}
}

// FindByProvider はproviderとprovider_account_idでアカウントを取得する。
// 見つからない場合はnilを返す。
func (r *SQLAccountRepo) FindByProvider(ctx context.Context, provider, providerAccountID string) (*model.Account, error) {
	a := &model.Account{}
	err := r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT id, user_id, type, provider, provider_account_id,
		        refresh_token, access_token, expires_at, token_type, scope, id_token,
		        created_at, updated_at
		 FROM accounts
		 WHERE provider = ? AND provider_account_id = ?`),
		provider, providerAccountID,
	).Scan(
		&a.ID, &a.UserID, &a.Type, &a.Provider, &a.ProviderAccountID,
		&a.RefreshToken, &a.AccessToken, &a.ExpiresAt, &a.TokenType, &a.Scope, &a.IDToken,
		&a.CreatedAt, &a.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	return a, nil
}

// Link は既存ユーザーにアカウントを紐付ける。
func (r *SQLAccountRepo) Link(ctx context.Context, account *model.Account) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(insertAccountSQL), accountArgs(account)...); err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}
	return nil
}

// UpdateTokens はアカウントのトークン情報を更新する。
// プロバイダーがリフレッシュトークンを返さなかった場合は既存の値を維持する。
func (r *SQLAccountRepo) UpdateTokens(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE accounts
		 SET access_token = ?,
		     refresh_token = CASE WHEN ? = '' THEN refresh_token ELSE ? END,
		     expires_at = ?, token_type = ?, scope = ?, id_token = ?, updated_at = ?
		 WHERE provider = ? AND provider_account_id = ?`),
		account.AccessToken,
		account.RefreshToken, account.RefreshToken,
		account.ExpiresAt, account.TokenType, account.Scope, account.IDToken, account.UpdatedAt.UTC(),
		account.Provider, account.ProviderAccountID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account tokens: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AccountRepository = (*SQLAccountRepo)(nil)
