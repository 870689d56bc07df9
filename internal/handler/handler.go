// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/a-h/templ"

	"github.com/hitoshi/authpage/internal/auth"
	"github.com/hitoshi/authpage/internal/middleware"
	"github.com/hitoshi/authpage/internal/model"
)

// AuthService はハンドラーが必要とする認証サービスのインターフェース。
// auth.Serviceが実装する。
type AuthService interface {
	middleware.SessionResolver
	Providers() []auth.ProviderInfo
	BeginSignIn(providerID, callbackURL string) (*auth.SignInRequest, error)
	CompleteSignIn(ctx context.Context, providerID, code, verifier string) (*model.Session, error)
	SignOut(ctx context.Context, token string) error
}

// compile-time interface check
var _ AuthService = (*auth.Service)(nil)

// ErrorPagePath はサインイン失敗時のリダイレクト先。
const ErrorPagePath = "/api/auth/error"

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// renderPage はtemplコンポーネントを指定ステータスで描画する。
// ページの内容はセッション状態に依存するため、キャッシュさせない。
func renderPage(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Cache-Control", "no-store")
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

// asAuthError はerrをAuthErrorに変換する。AuthError以外は永続化失敗として扱う。
func asAuthError(err error) *model.AuthError {
	var authErr *model.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return model.NewCallbackError(err)
}

// redirectToError は失敗をログに記録し、エラーページへ303でリダイレクトする。
// 原因はログにのみ出力し、URLにはエラーコードだけを含める。
func redirectToError(w http.ResponseWriter, r *http.Request, authErr *model.AuthError) {
	attrs := []any{
		slog.String("code", authErr.Code),
		slog.String("category", authErr.Category),
		slog.String("path", r.URL.Path),
	}
	if authErr.Err != nil {
		attrs = append(attrs, slog.String("error", authErr.Err.Error()))
	}
	slog.Warn("sign-in failed", attrs...)

	target := ErrorPagePath + "?error=" + url.QueryEscape(authErr.Code)
	http.Redirect(w, r, target, http.StatusSeeOther)
}
