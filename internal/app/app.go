// Package app はプロセスの起動モード解析、依存関係のワイヤリング、グレースフルシャットダウンを提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/authpage/internal/auth"
	"github.com/hitoshi/authpage/internal/config"
	"github.com/hitoshi/authpage/internal/database"
	"github.com/hitoshi/authpage/internal/handler"
	"github.com/hitoshi/authpage/internal/logger"
	"github.com/hitoshi/authpage/internal/metrics"
	"github.com/hitoshi/authpage/internal/middleware"
	"github.com/hitoshi/authpage/internal/repository"
	"github.com/hitoshi/authpage/internal/security"
	"github.com/hitoshi/authpage/internal/worker/cleanup"
)

const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数を読み込み、ログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(cfg.SlogLevel())
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMでグレースフルに停止する。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, w, args)
}

// RunContext はctxのキャンセルを停止要求として扱うRun。
func RunContext(ctx context.Context, w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		writeUsage(w)
		return err
	}

	if cmd == CommandHelp {
		writeUsage(w)
		return nil
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		// 設定不備のまま起動しない
		slog.Error("refusing to start", slog.String("error", err.Error()))
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("auth_url", cfg.AuthURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established", slog.String("dialect", string(db.Dialect)))
	return db, nil
}

// newRegistry はプロセス標準のコレクターを登録したPrometheusレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewServerHandler は設定とDB接続から全依存関係をワイヤリングし、HTTPハンドラーを構築する。
// 返されるstop関数はレートリミッターのバックグラウンド処理を停止する。
func NewServerHandler(cfg *config.Config, db *database.DB, reg *prometheus.Registry) (http.Handler, func()) {
	// 1. リポジトリの初期化
	userRepo := repository.NewSQLUserRepo(db)
	accountRepo := repository.NewSQLAccountRepo(db)
	sessionRepo := repository.NewSQLSessionRepo(db)
	tokenRepo := repository.NewSQLVerificationTokenRepo(db)

	// 2. プロバイダーの初期化（外部通信はSSRF対策済みクライアントに限定）
	google := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL(),
		HTTPClient:   security.NewProviderHTTPClient(cfg.ProviderHTTPTimeout),
	})

	// 3. 認証サービスの初期化
	authService := auth.NewService(
		[]auth.Provider{google},
		userRepo, accountRepo, sessionRepo, tokenRepo,
		security.NewProfileSanitizer(),
		auth.ServiceConfig{
			BaseURL:                  cfg.AuthURL,
			SessionMaxAge:            cfg.SessionMaxAge,
			SessionUpdateAge:         cfg.SessionUpdateAge,
			AllowEmailAccountLinking: cfg.AllowEmailAccountLinking,
		},
	)

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimitAuthPerMinute))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:      slog.Default(),
		AuthService: authService,
		Flows:       auth.NewFlowCodec(cfg.AuthSecret, auth.DefaultFlowTTL),
		Cookies: middleware.CookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		HealthChecker:     db,
		Collector:         metrics.NewCollector(reg),
		Gatherer:          reg,
	})

	return router, rateLimiter.Stop
}

// runServe はWebサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	router, stopLimiter := NewServerHandler(cfg, db, newRegistry())
	defer stopLimiter()

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return serveUntilDone(ctx, server, "web server")
}

// runWorker はワーカーモードで起動する。
// 期限切れデータのクリーンアップを定期実行し、/healthと/metricsを公開する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := newRegistry()
	job := cleanup.NewCleanupJob(
		repository.NewSQLSessionRepo(db),
		repository.NewSQLVerificationTokenRepo(db),
		metrics.NewCollector(reg),
		slog.Default(),
	)

	r := chi.NewRouter()
	r.Get("/health", handler.NewHealthHandler(db))
	r.Handle("/metrics", metrics.Handler(reg))

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	jobCtx, cancelJob := context.WithCancel(ctx)
	defer cancelJob()
	done := make(chan struct{})
	go func() {
		defer close(done)
		job.Start(jobCtx, cfg.CleanupInterval)
	}()

	err = serveUntilDone(ctx, server, "worker")
	cancelJob()
	<-done
	return err
}

// serveUntilDone はサーバーを起動し、ctxのキャンセルでシャットダウンする。
// 起動失敗（ポート使用中など）はエラーとして返す。
func serveUntilDone(ctx context.Context, server *http.Server, name string) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s failed: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down " + name + "...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
}

func checkHealth(healthURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
