package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/authpage/internal/auth"
	"github.com/hitoshi/authpage/internal/metrics"
	"github.com/hitoshi/authpage/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger            *slog.Logger
	AuthService       AuthService
	Flows             *auth.FlowCodec
	Cookies           middleware.CookieConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HealthChecker     HealthChecker

	// メトリクス（Gathererがnilの場合は/metricsを公開しない）
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Logging → Metrics → Recovery → SecurityHeaders → CORS
//	  → Session → CSRF → (認証ルートのみ) RateLimit
//
// /health と /metrics はセッション解決の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Collector
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	// --- セッション不要のルート ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	pageHandler := NewPageHandler()
	authHandler := NewAuthHandler(deps.AuthService, deps.Flows, collector, AuthHandlerConfig{
		Cookies: deps.Cookies,
	})

	// --- セッションを解決するルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.AuthService, deps.Cookies, collector))
		r.Use(middleware.NewCSRFMiddleware(deps.Cookies))

		r.Get("/", pageHandler.Home)

		r.Route("/api/auth", func(r chi.Router) {
			r.Get("/csrf", authHandler.CSRF)
			r.Get("/providers", authHandler.Providers)
			r.Get("/session", authHandler.Session)
			r.Get("/error", authHandler.Error)

			// 外部プロバイダーとの往復を伴うルートにはレート制限をかける
			r.Group(func(r chi.Router) {
				if deps.RateLimiter != nil {
					r.Use(deps.RateLimiter.Middleware())
				}
				r.Post("/signin/{provider}", authHandler.SignIn)
				r.Get("/callback/{provider}", authHandler.Callback)
				r.Post("/signout", authHandler.SignOut)
			})
		})
	})

	return r
}
