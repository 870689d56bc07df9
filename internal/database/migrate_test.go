package database

import (
	"os"
	"path/filepath"
	"testing"
)

var authTables = []string{"users", "accounts", "sessions", "verification_tokens"}

func TestRunMigrations_SQLite_CreatesAllTables(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "migrate.db")

	if err := RunMigrations(url); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	db, err := Open(url)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	for _, table := range authTables {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s should exist: %v", table, err)
		}
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "migrate.db")

	if err := RunMigrations(url); err != nil {
		t.Fatalf("first RunMigrations() error = %v", err)
	}
	// すでに最新の場合はErrNoChangeを握りつぶしてnilを返す
	if err := RunMigrations(url); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
}

// TestRunMigrations_Postgres はTEST_DATABASE_URLが設定されている場合のみ実行する。
func TestRunMigrations_Postgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	m, err := NewMigrator(url)
	if err != nil {
		t.Fatalf("NewMigrator() error = %v", err)
	}
	defer m.Close()

	// クリーンな状態から適用する
	if err := m.Drop(); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}

	if err := RunMigrations(url); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	db, err := Open(url)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	for _, table := range authTables {
		var exists bool
		err := db.QueryRow(db.Rebind(`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = ?)`), table).Scan(&exists)
		if err != nil || !exists {
			t.Errorf("table %s should exist (err=%v)", table, err)
		}
	}
}
