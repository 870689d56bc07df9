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

// SQLSessionRepo はdatabase/sqlを使用したセッションリポジトリ。
type SQLSessionRepo struct {
	db *database.DB
}

// NewSQLSessionRepo はSQLSessionRepoを生成する。
func NewSQLSessionRepo(db *database.DB) *SQLSessionRepo {
	return &SQLSessionRepo{db: db}
}

// Create はセッションを作成する。
func (r *SQLSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO sessions (session_token, user_id, expires, created_at)
		 VALUES (?, ?, ?, ?)`),
		session.Token, session.UserID, session.Expires.UTC(), session.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByToken はセッショントークンでセッションを取得する。見つからない場合はnilを返す。
func (r *SQLSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT session_token, user_id, expires, created_at
		 FROM sessions
		 WHERE session_token = ?`),
		token,
	).Scan(&session.Token, &session.UserID, &session.Expires, &session.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

// UpdateExpires はセッションの有効期限を更新する。
func (r *SQLSessionRepo) UpdateExpires(ctx context.Context, token string, expires time.Time) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE sessions SET expires = ? WHERE session_token = ?`),
		expires.UTC(), token,
	)
	if err != nil {
		return fmt.Errorf("failed to update session expiry: %w", err)
	}
	return nil
}

// DeleteByToken は指定トークンのセッションを削除する。
func (r *SQLSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM sessions WHERE session_token = ?`),
		token,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired はnow時点で期限切れのセッションを削除し、削除件数を返す。
func (r *SQLSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM sessions WHERE expires <= ?`),
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ SessionRepository = (*SQLSessionRepo)(nil)
