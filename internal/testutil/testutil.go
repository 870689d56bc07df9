// Package testutil はテスト用のデータベース準備とHTML検証のヘルパーを提供する。
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hitoshi/authpage/internal/database"
)

// RequireEnv は環境変数を返す。未設定の場合はテストをスキップする。
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// SQLiteURL はテストごとの一時ディレクトリに置いたSQLiteのDATABASE_URLを返す。
func SQLiteURL(t testing.TB) string {
	t.Helper()
	return "sqlite://" + filepath.Join(t.TempDir(), "authpage_test.db")
}

// NewSQLiteDB はマイグレーション適用済みのSQLiteデータベースを開く。
// テスト終了時に自動でCloseする。
func NewSQLiteDB(t testing.TB) *database.DB {
	t.Helper()

	url := SQLiteURL(t)
	if err := database.RunMigrations(url); err != nil {
		t.Fatalf("マイグレーションに失敗: %v", err)
	}

	db, err := database.Open(url)
	if err != nil {
		t.Fatalf("データベースのオープンに失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Ping(); err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}

	return db
}
