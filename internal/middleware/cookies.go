package middleware

import (
	"net/http"
	"time"
)

// Cookie名
const (
	SessionCookieName = "authpage.session-token"
	CSRFCookieName    = "authpage.csrf-token"
)

// CookieConfig はCookie発行時の共通属性。
type CookieConfig struct {
	Secure bool   // AUTH_URLがhttpsの場合true
	Domain string // 空の場合はホストオンリーCookie
}

// NewCookie は共通属性（Path=/, HttpOnly, SameSite=Lax）を持つCookieを生成する。
// maxAgeが負の場合は削除用のCookieになる。
func (c CookieConfig) NewCookie(name, value string, maxAge time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	} else {
		cookie.MaxAge = int(maxAge.Seconds())
	}
	return cookie
}

// SetSessionCookie はセッショントークンCookieを有効期限付きで設定する。
func SetSessionCookie(w http.ResponseWriter, config CookieConfig, token string, expires time.Time) {
	cookie := config.NewCookie(SessionCookieName, token, time.Until(expires))
	cookie.Expires = expires.UTC()
	http.SetCookie(w, cookie)
}

// ClearSessionCookie はセッショントークンCookieを削除する。
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, config.NewCookie(SessionCookieName, "", -1))
}
