// Package security はIdPから受け取るデータと外部通信に対する防御を提供する。
//
// ProfileSanitizer はプロフィールクレーム（name, email, picture）を
// 永続化前に正規化する。nameはbluemondayのStrictPolicyでマークアップを除去し、
// pictureはValidateImageURLを通過した公開httpsのURLのみ残す。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// maxNameLength はnameクレームとして保存する最大文字数。
const maxNameLength = 256

// ProfileSanitizer はIdPのプロフィールクレームを正規化する。
// bluemondayのPolicyはスレッドセーフなので、1インスタンスを共有してよい。
type ProfileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はタグをすべて除去するポリシーでProfileSanitizerを生成する。
func NewProfileSanitizer() *ProfileSanitizer {
	return &ProfileSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Name は表示名からHTMLタグを除去し、前後の空白を落として返す。
// StrictPolicyはテキスト中の記号をエスケープするため、描画時の二重エスケープを避けて元に戻す。
func (s *ProfileSanitizer) Name(raw string) string {
	name := html.UnescapeString(s.policy.Sanitize(raw))
	name = strings.Join(strings.Fields(name), " ")
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	return name
}

// Email はメールアドレスの前後の空白を除去する。
// 形式として明らかに不正（@を含まない、空白やタグを含む）な場合は空文字列を返す。
func (s *ProfileSanitizer) Email(raw string) string {
	email := strings.TrimSpace(raw)
	if email == "" || strings.ContainsAny(email, " \t\r\n<>\"") {
		return ""
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	return email
}

// ImageURL はValidateImageURLを満たすURLのみを返し、それ以外は空文字列を返す。
func (s *ProfileSanitizer) ImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if err := ValidateImageURL(raw); err != nil {
		return ""
	}
	return raw
}
