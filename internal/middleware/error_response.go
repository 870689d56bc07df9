package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/authpage/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// 原因（Err）はレスポンスに含めない。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, authErr *model.AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     authErr.Code,
		Message:  authErr.Message,
		Category: authErr.Category,
		Action:   authErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.AuthError{
		Code:     "InternalError",
		Message:  "内部エラーが発生しました。",
		Category: model.CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// StatusCodeFor はエラーページのHTTPステータスコードを返す。
func StatusCodeFor(authErr *model.AuthError) int {
	switch authErr.Code {
	case model.ErrCodeConfiguration, model.ErrCodeCallback:
		return http.StatusInternalServerError
	case model.ErrCodeAccessDenied, model.ErrCodeVerification:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
