package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/authpage/internal/middleware"
	"github.com/hitoshi/authpage/internal/model"
	"github.com/hitoshi/authpage/internal/view"
)

// PageHandler はトップページを描画するハンドラー。
// セッションの解決はセッションミドルウェアが済ませている前提。
type PageHandler struct{}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Home はセッション状態に応じてサインインまたはサインアウトの操作を1つだけ描画する。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	result, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		// セッションを解決できない場合は推測で描画せず、ページの読み込み失敗とする
		slog.Error("failed to render home page", slog.String("error", err.Error()))
		renderPage(w, r, http.StatusInternalServerError, view.ErrorPage(model.NewCallbackError(err)))
		return
	}

	renderPage(w, r, http.StatusOK, view.Home(view.HomeState{
		Authenticated: result.Authenticated(),
		CSRFToken:     middleware.CSRFTokenFromContext(r.Context()),
	}))
}
