package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect は接続先データベースの種類を表す。
type Dialect string

const (
	// DialectPostgres はPostgreSQL（lib/pq）を表す。
	DialectPostgres Dialect = "postgres"
	// DialectSQLite はSQLite（modernc.org/sqlite）を表す。ローカル開発とテストで使用する。
	DialectSQLite Dialect = "sqlite"
)

// sqliteParams はSQLite接続時に必ず付与するパラメータ。
// 外部キー制約を有効化し、時刻はUTCの文字列形式で保存する。
const sqliteParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"

// DB は*sql.DBと方言情報を保持する。
// リポジトリは"?"プレースホルダでSQLを記述し、Rebindで方言に合わせて変換する。
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open はDATABASE_URLのスキームに応じたドライバでデータベース接続を開く。
//   - postgres:// / postgresql:// → lib/pq
//   - sqlite:///path/to/file.db → modernc.org/sqlite
//
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
func Open(databaseURL string) (*DB, error) {
	dialect, dsn, err := resolveDSN(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == DialectSQLite {
		// SQLiteは単一ライタのため、接続を1本に絞ってロック競合を避ける
		db.SetMaxOpenConns(1)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// DialectOf はDATABASE_URLから方言を判定する。
func DialectOf(databaseURL string) (Dialect, error) {
	dialect, _, err := resolveDSN(databaseURL)
	return dialect, err
}

// resolveDSN はDATABASE_URLを方言とドライバ用DSNに変換する。
// 設定の検証もこの関数で行うため、ここで受理したURLは必ずOpenできる形式である。
func resolveDSN(databaseURL string) (Dialect, string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid database URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		if u.Host == "" {
			return "", "", fmt.Errorf("postgres database host is required")
		}
		return DialectPostgres, databaseURL, nil
	case "sqlite":
		// sqlite:relative.db のようなopaque形式は受け付けない
		const prefix = "sqlite://"
		if len(databaseURL) < len(prefix) || !strings.EqualFold(databaseURL[:len(prefix)], prefix) {
			return "", "", fmt.Errorf("sqlite database URL must start with %q", prefix)
		}
		path := databaseURL[len(prefix):]
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if path == "" {
			return "", "", fmt.Errorf("sqlite database path is required")
		}
		return DialectSQLite, path + "?" + sqliteParams, nil
	case "":
		return "", "", fmt.Errorf("database URL scheme is required")
	default:
		return "", "", fmt.Errorf("unsupported database scheme: %q", u.Scheme)
	}
}

// Rebind は"?"プレースホルダを方言に合わせて変換する。
// PostgreSQLでは$1, $2, ...に置き換え、SQLiteではそのまま返す。
func (db *DB) Rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
