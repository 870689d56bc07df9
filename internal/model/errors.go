// Package model はドメインモデルを定義する。
package model

import "fmt"

// AuthError は認証フローの失敗を表す統一エラー。
// Codeはエラーページのクエリパラメータとしても使用する。
type AuthError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: configuration, provider, persistence, system
	Action   string // ユーザー向け対処方法
	Err      error  // 原因（ログ用、ユーザーには表示しない）
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因となったエラーを返す。
func (e *AuthError) Unwrap() error {
	return e.Err
}

// エラーカテゴリ
const (
	CategoryConfiguration = "configuration"
	CategoryProvider      = "provider"
	CategoryPersistence   = "persistence"
	CategorySystem        = "system"
)

// 定義済みエラーコード
const (
	ErrCodeConfiguration         = "Configuration"
	ErrCodeAccessDenied          = "AccessDenied"
	ErrCodeOAuthSignin           = "OAuthSignin"
	ErrCodeOAuthCallback         = "OAuthCallback"
	ErrCodeOAuthAccountNotLinked = "OAuthAccountNotLinked"
	ErrCodeCallback              = "Callback"
	ErrCodeVerification          = "Verification"
	ErrCodeDefault               = "Default"
)

// NewConfigurationError は設定不備エラーを生成する。
func NewConfigurationError(reason string) *AuthError {
	msg := "サーバーの設定に問題があります。"
	if reason != "" {
		msg = fmt.Sprintf("サーバーの設定に問題があります: %s", reason)
	}
	return &AuthError{
		Code:     ErrCodeConfiguration,
		Message:  msg,
		Category: CategoryConfiguration,
		Action:   "管理者に連絡してください。",
	}
}

// NewAccessDeniedError はプロバイダーで認可が拒否された場合のエラーを生成する。
func NewAccessDeniedError() *AuthError {
	return &AuthError{
		Code:     ErrCodeAccessDenied,
		Message:  "サインインが拒否されました。",
		Category: CategoryProvider,
		Action:   "もう一度サインインし、アクセスを許可してください。",
	}
}

// NewOAuthSigninError はサインイン開始時のエラーを生成する。
func NewOAuthSigninError(err error) *AuthError {
	return &AuthError{
		Code:     ErrCodeOAuthSignin,
		Message:  "サインインを開始できませんでした。",
		Category: CategoryProvider,
		Action:   "しばらく待ってから再度お試しください。",
		Err:      err,
	}
}

// NewOAuthCallbackError はプロバイダーからの応答処理に失敗した場合のエラーを生成する。
func NewOAuthCallbackError(err error) *AuthError {
	return &AuthError{
		Code:     ErrCodeOAuthCallback,
		Message:  "認証プロバイダーからの応答を処理できませんでした。",
		Category: CategoryProvider,
		Action:   "もう一度サインインしてください。",
		Err:      err,
	}
}

// NewAccountNotLinkedError は同じメールアドレスのユーザーが別の方法で登録済みの場合のエラーを生成する。
func NewAccountNotLinkedError() *AuthError {
	return &AuthError{
		Code:     ErrCodeOAuthAccountNotLinked,
		Message:  "このメールアドレスは別のアカウントに紐付いています。",
		Category: CategoryProvider,
		Action:   "最初に使用した方法でサインインしてください。",
	}
}

// NewCallbackError はサインイン中の永続化失敗エラーを生成する。
func NewCallbackError(err error) *AuthError {
	return &AuthError{
		Code:     ErrCodeCallback,
		Message:  "サインイン情報の保存に失敗しました。",
		Category: CategoryPersistence,
		Action:   "しばらく待ってから再度お試しください。",
		Err:      err,
	}
}

// NewVerificationError は検証トークンが無効な場合のエラーを生成する。
func NewVerificationError() *AuthError {
	return &AuthError{
		Code:     ErrCodeVerification,
		Message:  "リンクの有効期限が切れているか、既に使用されています。",
		Category: CategoryProvider,
		Action:   "もう一度サインインしてください。",
	}
}

// LookupAuthError はエラーページのコードから表示用のAuthErrorを返す。
// 未知のコードはDefaultとして扱う。
func LookupAuthError(code string) *AuthError {
	switch code {
	case ErrCodeConfiguration:
		return NewConfigurationError("")
	case ErrCodeAccessDenied:
		return NewAccessDeniedError()
	case ErrCodeOAuthSignin:
		return NewOAuthSigninError(nil)
	case ErrCodeOAuthCallback:
		return NewOAuthCallbackError(nil)
	case ErrCodeOAuthAccountNotLinked:
		return NewAccountNotLinkedError()
	case ErrCodeCallback:
		return NewCallbackError(nil)
	case ErrCodeVerification:
		return NewVerificationError()
	default:
		return &AuthError{
			Code:     ErrCodeDefault,
			Message:  "サインインに失敗しました。",
			Category: CategoryProvider,
			Action:   "もう一度お試しください。",
		}
	}
}
