// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/hitoshi/authpage/internal/database"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Auth
	AuthSecret               string `env:"AUTH_SECRET,required,notEmpty"`
	AuthURL                  string `env:"AUTH_URL" envDefault:"http://localhost:8080"`
	AllowEmailAccountLinking bool   `env:"AUTH_ALLOW_EMAIL_ACCOUNT_LINKING" envDefault:"false"`

	// Google
	GoogleClientID     string `env:"AUTH_GOOGLE_ID,required,notEmpty"`
	GoogleClientSecret string `env:"AUTH_GOOGLE_SECRET,required,notEmpty"`

	// Session
	SessionMaxAge    time.Duration `env:"SESSION_MAX_AGE" envDefault:"720h"`
	SessionUpdateAge time.Duration `env:"SESSION_UPDATE_AGE" envDefault:"24h"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	// Cookie
	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool   `env:"-"`

	// CORS（空の場合は無効）
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN"`

	// Rate Limit
	RateLimitAuthPerMinute int `env:"RATE_LIMIT_AUTH_PER_MINUTE" envDefault:"30"`

	// Provider
	ProviderHTTPTimeout time.Duration `env:"PROVIDER_HTTP_TIMEOUT" envDefault:"10s"`

	// Worker
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数の未設定、空文字列、形式不正の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.AuthURL = strings.TrimRight(cfg.AuthURL, "/")
	cfg.CookieSecure = strings.HasPrefix(cfg.AuthURL, "https://")

	return cfg, nil
}

// validate はタグだけでは表現できない形式チェックを行う。
func (c *Config) validate() error {
	var errs []error

	if err := validateDatabaseURL(c.DatabaseURL); err != nil {
		errs = append(errs, fmt.Errorf("DATABASE_URL: %w", err))
	}

	if u, err := url.Parse(c.AuthURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("AUTH_URL: must be an absolute URL"))
	}

	if c.SessionMaxAge <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_MAX_AGE: must be positive"))
	}
	if c.SessionUpdateAge < 0 {
		errs = append(errs, fmt.Errorf("SESSION_UPDATE_AGE: must not be negative"))
	}
	if c.ProviderHTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_HTTP_TIMEOUT: must be positive"))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("CLEANUP_INTERVAL: must be positive"))
	}
	if c.RateLimitAuthPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_AUTH_PER_MINUTE: must be positive"))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	return errors.Join(errs...)
}

// validateDatabaseURL はDATABASE_URLが接続に使える形式であることを検証する。
// 判定はdatabase.Openと同じ規則で行う。
func validateDatabaseURL(raw string) error {
	_, err := database.DialectOf(raw)
	return err
}

// SlogLevel はLogLevelをslog.Levelに変換する。Load済みのConfigでは常に成功する。
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// GoogleRedirectURL はGoogleプロバイダーのコールバックURLを返す。
func (c *Config) GoogleRedirectURL() string {
	return c.AuthURL + "/api/auth/callback/google"
}
