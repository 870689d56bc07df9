package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/authpage/internal/database"
	"github.com/hitoshi/authpage/internal/model"
)

// SQLVerificationTokenRepo はdatabase/sqlを使用した検証トークンリポジトリ。
type SQLVerificationTokenRepo struct {
	db *database.DB
}

// NewSQLVerificationTokenRepo はSQLVerificationTokenRepoを生成する。
func NewSQLVerificationTokenRepo(db *database.DB) *SQLVerificationTokenRepo {
	return &SQLVerificationTokenRepo{db: db}
}

// Create は検証トークンを作成する。
func (r *SQLVerificationTokenRepo) Create(ctx context.Context, token *model.VerificationToken) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO verification_tokens (identifier, token, expires) VALUES (?, ?, ?)`),
		token.Identifier, token.Token, token.Expires.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}
	return nil
}

// Use は検証トークンを削除し、削除したトークンを返す。
// DELETE ... RETURNINGで取得と削除を1文で行うため、同じトークンは1回しか使えない。
func (r *SQLVerificationTokenRepo) Use(ctx context.Context, identifier, token string) (*model.VerificationToken, error) {
	vt := &model.VerificationToken{}
	err := r.db.QueryRowContext(ctx,
		r.db.Rebind(`DELETE FROM verification_tokens
		 WHERE identifier = ? AND token = ?
		 RETURNING identifier, token, expires`),
		identifier, token,
	).Scan(&vt.Identifier, &vt.Token, &vt.Expires)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to use verification token: %w", err)
	}

	return vt, nil
}

// DeleteExpired はnow時点で期限切れのトークンを削除し、削除件数を返す。
func (r *SQLVerificationTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM verification_tokens WHERE expires <= ?`),
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired verification tokens: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ VerificationTokenRepository = (*SQLVerificationTokenRepo)(nil)
