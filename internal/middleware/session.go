// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/authpage/internal/auth"
	"github.com/hitoshi/authpage/internal/metrics"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var sessionContextKey = contextKey("session")

// SessionResolver はセッショントークンからセッションを解決するインターフェース。
// auth.Serviceが実装する。
type SessionResolver interface {
	GetSession(ctx context.Context, token string) (auth.SessionResult, error)
}

// sessionState はリクエストごとに1回だけ解決したセッションの結果。
type sessionState struct {
	result auth.SessionResult
	err    error
}

// NewSessionMiddleware はセッションCookieからセッションを1回だけ解決し、結果をコンテキストに格納する。
// 未認証でもリクエストは拒否しない（ページの出し分けはハンドラーが行う）。
//   - 無効なCookieは削除する
//   - 有効期限を延長した場合はCookieを再発行する
//   - 解決に失敗した場合はエラーをコンテキストに格納し、ハンドラーに判断を委ねる
func NewSessionMiddleware(resolver SessionResolver, cookies CookieConfig, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				token = cookie.Value
			}

			result, err := resolver.GetSession(r.Context(), token)
			switch {
			case err != nil:
				slog.Error("failed to resolve session",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				collector.RecordSessionLookup(metrics.LookupError)
			case result.Authenticated():
				collector.RecordSessionLookup(metrics.LookupAuthenticated)
				setLogUserID(r.Context(), result.User.ID)
				if result.Refreshed {
					SetSessionCookie(w, cookies, result.Session.Token, result.Session.Expires)
				}
			default:
				collector.RecordSessionLookup(metrics.LookupUnauthenticated)
				if token != "" {
					ClearSessionCookie(w, cookies)
				}
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, &sessionState{result: result, err: err})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext はセッションミドルウェアが解決した結果を返す。
// ミドルウェアを通過していない場合は未認証として扱う。
func SessionFromContext(ctx context.Context) (auth.SessionResult, error) {
	state, ok := ctx.Value(sessionContextKey).(*sessionState)
	if !ok {
		return auth.SessionResult{Status: auth.StatusUnauthenticated}, nil
	}
	return state.result, state.err
}

// ContextWithSession はコンテキストにセッション解決結果を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, result auth.SessionResult, err error) context.Context {
	return context.WithValue(ctx, sessionContextKey, &sessionState{result: result, err: err})
}
