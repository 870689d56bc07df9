package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/authpage/internal/database"
	"github.com/hitoshi/authpage/internal/model"
)

const userColumns = `u.id, u.name, u.email, u.email_verified, u.image, u.created_at, u.updated_at`

// SQLUserRepo はdatabase/sqlを使用したユーザーリポジトリ。
type SQLUserRepo struct {
	db *database.DB
}

// NewSQLUserRepo はSQLUserRepoを生成する。
func NewSQLUserRepo(db *database.DB) *SQLUserRepo {
	return &SQLUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT `+userColumns+` FROM users u WHERE u.id = ?`),
		id,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT `+userColumns+` FROM users u WHERE u.email = ?`),
		email,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// CreateWithAccount はユーザーとアカウントを同一トランザクションで作成する。
func (r *SQLUserRepo) CreateWithAccount(ctx context.Context, user *model.User, account *model.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ユーザーを作成
	_, err = tx.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO users (id, name, email, email_verified, image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		user.ID, user.Name, nullString(user.Email), nullTime(user.EmailVerified), user.Image,
		user.CreatedAt.UTC(), user.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	// アカウントを作成
	if _, err := tx.ExecContext(ctx, r.db.Rebind(insertAccountSQL), accountArgs(account)...); err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// scanUser は1行をUserに変換する。行が存在しない場合はnil, nilを返す。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var email sql.NullString
	var emailVerified sql.NullTime
	err := row.Scan(&user.ID, &user.Name, &email, &emailVerified, &user.Image, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user.Email = email.String
	if emailVerified.Valid {
		t := emailVerified.Time
		user.EmailVerified = &t
	}
	return user, nil
}

// compile-time interface check
var _ UserRepository = (*SQLUserRepo)(nil)
