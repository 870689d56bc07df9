package security

import (
	"strings"
	"testing"
)

func TestProfileSanitizer_Name(t *testing.T) {
	s := NewProfileSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "Taro Yamada", "Taro Yamada"},
		{"日本語はそのまま", "山田 太郎", "山田 太郎"},
		{"タグは除去される", "<b>Taro</b>", "Taro"},
		{"scriptは中身ごと除去される", "Taro<script>alert(1)</script>", "Taro"},
		{"記号は二重エスケープされない", "Tom & Jerry", "Tom & Jerry"},
		{"連続空白は1つにまとめる", "  Taro \n Yamada  ", "Taro Yamada"},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Name(tt.input); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestProfileSanitizer_Name_TruncatesLongValue(t *testing.T) {
	s := NewProfileSanitizer()

	got := s.Name(strings.Repeat("あ", maxNameLength+10))
	if n := len([]rune(got)); n != maxNameLength {
		t.Errorf("rune length = %d, want %d", n, maxNameLength)
	}
}

func TestProfileSanitizer_Email(t *testing.T) {
	s := NewProfileSanitizer()

	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "user@example.com"},
		{"  user@example.com ", "user@example.com"},
		{"", ""},
		{"no-at-sign", ""},
		{"@example.com", ""},
		{"user@", ""},
		{"<user@example.com>", ""},
		{"a b@example.com", ""},
	}

	for _, tt := range tests {
		if got := s.Email(tt.input); got != tt.want {
			t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestProfileSanitizer_ImageURL(t *testing.T) {
	s := NewProfileSanitizer()

	if got := s.ImageURL("https://lh3.googleusercontent.com/a/photo.jpg"); got != "https://lh3.googleusercontent.com/a/photo.jpg" {
		t.Errorf("public https URL should be kept, got %q", got)
	}
	if got := s.ImageURL("http://example.com/photo.jpg"); got != "" {
		t.Errorf("http URL should be dropped, got %q", got)
	}
	if got := s.ImageURL("javascript:alert(1)"); got != "" {
		t.Errorf("javascript URL should be dropped, got %q", got)
	}
}
