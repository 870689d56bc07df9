// Package view はサーバーサイドで描画するHTMLコンポーネントを提供する。
// マークアップはhome.templに記述し、templ generateで生成したhome_templ.goをコミットする。
// ハンドラーからはtempl.Handlerで描画する。
package view

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate -f home.templ

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// CSRFFieldName はフォームでCSRFトークンを送るフィールド名。
const CSRFFieldName = "csrfToken"

// SignInAction と SignOutAction はフォームの送信先。home.templのaction属性と一致させること。
const (
	SignInAction  = "/api/auth/signin/google"
	SignOutAction = "/api/auth/signout"
)

// HomeState はトップページの描画に必要な状態。
type HomeState struct {
	Authenticated bool
	CSRFToken     string
}

// Home はセッション状態に応じてサインインまたはサインアウトのどちらか一方だけを描画する。
func Home(state HomeState) templ.Component {
	var control templ.Component
	if state.Authenticated {
		control = SignOut(state.CSRFToken)
	} else {
		control = SignIn(state.CSRFToken)
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Layout("authpage").Render(templ.WithChildren(ctx, control), w)
	})
}
