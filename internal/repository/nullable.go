package repository

import (
	"database/sql"
	"time"
)

// nullString は空文字列をNULLとして扱う。emailのUNIQUE制約で未設定同士が衝突しないようにする。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
