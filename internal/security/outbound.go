package security

import (
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// NewProviderHTTPClient はIdPのトークン・ユーザー情報エンドポイントへの通信に使う
// HTTPクライアントを生成する。
// safeurlのDialerフックでDNS解決後のIPを検証するため、設定ミスやDNS再バインディングで
// プライベートネットワークやメタデータIPに接続することはない。
// 許可するのはhttpsの443番ポートのみ。
func NewProviderHTTPClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("https").
		SetAllowedPorts(443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateImageURL はプロフィール画像URLを静的に検証する。
// 画像はブラウザが直接読み込むため、公開ホストを指すhttpsの絶対URLのみ許可する。
// DNS解決は行わない。
func ValidateImageURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return fmt.Errorf("disallowed scheme: %q", u.Scheme)
	}
	if u.User != nil {
		return fmt.Errorf("credentials in URL are not allowed")
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("empty host")
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	if addr, err := netip.ParseAddr(host); err == nil && !isPublicAddr(addr) {
		return fmt.Errorf("blocked IP address: %s", addr)
	}

	return nil
}

// isPublicAddr はアドレスがインターネット上で到達可能なユニキャストアドレスかを判定する。
func isPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsGlobalUnicast() &&
		!addr.IsPrivate() &&
		!addr.IsLoopback() &&
		!addr.IsLinkLocalUnicast()
}
