package handler

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/authpage/internal/auth"
	"github.com/hitoshi/authpage/internal/metrics"
	"github.com/hitoshi/authpage/internal/middleware"
	"github.com/hitoshi/authpage/internal/model"
	"github.com/hitoshi/authpage/internal/view"
)

// FlowCookieName はサインイン開始からコールバックまでの状態を保持するCookie名。
const FlowCookieName = "authpage.flow"

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	Cookies middleware.CookieConfig
}

// AuthHandler はサインイン・コールバック・サインアウトとセッション照会のハンドラー。
type AuthHandler struct {
	service   AuthService
	flows     *auth.FlowCodec
	collector metrics.MetricsCollector
	config    AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthService, flows *auth.FlowCodec, collector metrics.MetricsCollector, config AuthHandlerConfig) *AuthHandler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &AuthHandler{
		service:   service,
		flows:     flows,
		collector: collector,
		config:    config,
	}
}

// csrfResponse はGET /api/auth/csrfのレスポンス。
type csrfResponse struct {
	CSRFToken string `json:"csrfToken"`
}

// sessionUser はGET /api/auth/sessionで公開するユーザー情報。
type sessionUser struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}

// sessionResponse はGET /api/auth/sessionのレスポンス。セッショントークンは含めない。
type sessionResponse struct {
	User    sessionUser `json:"user"`
	Expires string      `json:"expires"`
}

// CSRF はCSRFトークンを返す。Cookieの発行はCSRFミドルウェアが行う。
// GET /api/auth/csrf
func (h *AuthHandler) CSRF(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, csrfResponse{CSRFToken: middleware.CSRFTokenFromContext(r.Context())})
}

// Providers は設定済みプロバイダーをIDをキーとするマップで返す。
// GET /api/auth/providers
func (h *AuthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	providers := make(map[string]auth.ProviderInfo)
	for _, p := range h.service.Providers() {
		providers[p.ID] = p
	}
	writeJSON(w, http.StatusOK, providers)
}

// Session は現在のセッションを返す。未認証の場合は空オブジェクトを返す。
// GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	result, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}
	if !result.Authenticated() {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		User: sessionUser{
			Name:  result.User.Name,
			Email: result.User.Email,
			Image: result.User.Image,
		},
		Expires: result.Session.Expires.UTC().Format(time.RFC3339),
	})
}

// SignIn はプロバイダーの認可エンドポイントへのリダイレクトを開始する。
// state・PKCE verifier・戻り先を署名付きのフローCookieに保存する。
// POST /api/auth/signin/{provider}
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "provider")
	callbackURL := safeCallbackURL(r.PostFormValue("callbackUrl"))

	req, err := h.service.BeginSignIn(providerID, callbackURL)
	if err != nil {
		h.collector.RecordSignIn(providerID, metrics.ResultFailure)
		redirectToError(w, r, asAuthError(err))
		return
	}

	flow, err := h.flows.Encode(req)
	if err != nil {
		h.collector.RecordSignIn(providerID, metrics.ResultFailure)
		redirectToError(w, r, model.NewOAuthSigninError(err))
		return
	}

	http.SetCookie(w, h.config.Cookies.NewCookie(FlowCookieName, flow, h.flows.TTL()))
	http.Redirect(w, r, req.URL, http.StatusSeeOther)
}

// Callback はプロバイダーからのリダイレクトを受け、セッションを発行する。
// GET /api/auth/callback/{provider}?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "provider")
	query := r.URL.Query()

	// フローCookieは成否に関わらず1回限り
	http.SetCookie(w, h.config.Cookies.NewCookie(FlowCookieName, "", -1))

	fail := func(authErr *model.AuthError) {
		h.collector.RecordSignIn(providerID, metrics.ResultFailure)
		redirectToError(w, r, authErr)
	}

	// 1. プロバイダー側でのエラー（ユーザーの拒否を含む）
	if providerErr := query.Get("error"); providerErr != "" {
		if providerErr == "access_denied" {
			fail(model.NewAccessDeniedError())
			return
		}
		fail(model.NewOAuthCallbackError(errors.New("provider returned error: " + providerErr)))
		return
	}

	// 2. フローCookieとstateの検証
	var raw string
	if cookie, err := r.Cookie(FlowCookieName); err == nil {
		raw = cookie.Value
	}
	flow, err := h.flows.Decode(raw)
	if err != nil {
		fail(model.NewOAuthCallbackError(err))
		return
	}
	if flow.Provider != providerID {
		fail(model.NewOAuthCallbackError(errors.New("provider mismatch")))
		return
	}
	if subtle.ConstantTimeCompare([]byte(flow.State), []byte(query.Get("state"))) != 1 {
		fail(model.NewOAuthCallbackError(errors.New("state mismatch")))
		return
	}

	code := query.Get("code")
	if code == "" {
		fail(model.NewOAuthCallbackError(errors.New("missing authorization code")))
		return
	}

	// 3. 認可コードの交換とセッション発行
	session, err := h.service.CompleteSignIn(r.Context(), providerID, code, flow.CodeVerifier)
	if err != nil {
		fail(asAuthError(err))
		return
	}

	middleware.SetSessionCookie(w, h.config.Cookies, session.Token, session.Expires)
	h.collector.RecordSignIn(providerID, metrics.ResultSuccess)

	slog.Info("user signed in",
		slog.String("user_id", session.UserID),
		slog.String("provider", providerID),
	)

	http.Redirect(w, r, safeCallbackURL(flow.CallbackURL), http.StatusSeeOther)
}

// SignOut はセッションを破棄し、トップページへリダイレクトする。
// POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.service.SignOut(r.Context(), cookie.Value); err != nil {
			// 削除に失敗してもCookieはクリアする。残ったセッションは期限切れ後に削除される
			slog.Error("failed to sign out", slog.String("error", err.Error()))
		}
	}

	middleware.ClearSessionCookie(w, h.config.Cookies)
	h.collector.RecordSignOut()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Error はサインイン失敗ページを描画する。
// GET /api/auth/error?error=CODE
func (h *AuthHandler) Error(w http.ResponseWriter, r *http.Request) {
	authErr := model.LookupAuthError(r.URL.Query().Get("error"))
	renderPage(w, r, middleware.StatusCodeFor(authErr), view.ErrorPage(authErr))
}

// safeCallbackURL はサインイン後の戻り先を同一オリジンの相対パスに制限する。
// 絶対URL・スキーム相対URL（//host）・バックスラッシュを含む値は"/"に置き換える。
func safeCallbackURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return raw
}
