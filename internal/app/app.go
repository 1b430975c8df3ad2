package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/uhot33-create/MyPortal/internal/auth"
	"github.com/uhot33-create/MyPortal/internal/config"
	"github.com/uhot33-create/MyPortal/internal/cupnudle"
	"github.com/uhot33-create/MyPortal/internal/database"
	"github.com/uhot33-create/MyPortal/internal/fxrate"
	"github.com/uhot33-create/MyPortal/internal/handler"
	"github.com/uhot33-create/MyPortal/internal/logger"
	"github.com/uhot33-create/MyPortal/internal/metrics"
	"github.com/uhot33-create/MyPortal/internal/middleware"
	"github.com/uhot33-create/MyPortal/internal/news"
	"github.com/uhot33-create/MyPortal/internal/portal"
	"github.com/uhot33-create/MyPortal/internal/repository"
	"github.com/uhot33-create/MyPortal/internal/retry"
	"github.com/uhot33-create/MyPortal/internal/security"
	"github.com/uhot33-create/MyPortal/internal/settings"
)

const (
	dbPingTimeout   = 5 * time.Second
	fxClientTimeout = 10 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// .envがあれば読み込み、環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	log := logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envの読み込み（存在しない場合は環境変数のみを使う）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Error("設定の読み込みに失敗しました", slog.String("error", err.Error()))
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 4. LOG_LEVELを反映したロガーに差し替える
	log = logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, log, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, log, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("store_backend", cfg.StoreBackend),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg, log)
	default:
		return runServe(cfg, log)
	}
}

// store はストアバックエンドの選択結果。
type store struct {
	repos  *repository.Repositories
	health handler.HealthChecker
	close  func() error
}

// openStore はSTORE_BACKENDに応じてリポジトリ一式を生成する。
// postgresの場合はDB接続を開き、疎通を確認する。
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*store, error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		log.Warn("メモリストアで起動します。再起動で設定は失われます")
		return &store{
			repos: repository.NewMemoryRepositories(),
			close: func() error { return nil },
		}, nil
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connection established")

	return &store{
		repos:  repository.NewPostgresRepositories(db),
		health: db,
		close:  db.Close,
	}, nil
}

// serverDeps はnewServerが外部に依存する部分。テストでは差し替える。
type serverDeps struct {
	store    *store
	verifier auth.TokenVerifier
	registry *prometheus.Registry
}

// newServer は全依存関係をワイヤリングしたHTTPサーバーを生成する。
// 戻り値のcleanupはサーバー停止後に呼び出すこと。
func newServer(cfg *config.Config, log *slog.Logger, deps serverDeps) (*http.Server, func()) {
	// 1. セキュリティ・メトリクス
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()
	collector := metrics.NewCollector(deps.registry)

	// 2. 外部取得クライアント
	fetcher := news.NewFetcher(
		ssrfGuard.NewSafeClient(cfg.NewsFetchTimeout),
		ssrfGuard,
		sanitizer,
		collector,
		log.With(slog.String("component", "news")),
		cfg.NewsFetchTimeout,
		cfg.NewsFetchMaxSize,
	)
	fxClient := fxrate.NewClient(
		&http.Client{Timeout: fxClientTimeout},
		log.With(slog.String("component", "fxrate")),
		collector,
		retry.Policy{MaxAttempts: cfg.FXRetryMaxAttempts, Delay: cfg.FXRetryDelay},
		cfg.FXRateEndpoint,
	)

	// 3. ドメインサービス
	settingsService := settings.NewService(deps.store.repos, ssrfGuard, collector, log.With(slog.String("component", "settings")))
	portalService := portal.NewService(settingsService, fetcher, fxClient, portal.Config{
		MaxConcurrent:    cfg.NewsFetchMaxConcurrent,
		GlobalLimit:      cfg.NewsGlobalLimit,
		TimelineCooldown: cfg.TimelineCooldown,
		TimelineRetry:    retry.Policy{MaxAttempts: cfg.TimelineRetryMaxAttempts, Delay: cfg.TimelineRetryDelay},
	}, log.With(slog.String("component", "portal")))
	cupnudleService := cupnudle.NewService(deps.store.repos.Items, deps.store.repos.Stocks, log.With(slog.String("component", "cupnudle")))

	// 4. 認証
	sharedSecret := auth.NewSharedSecretStrategy(auth.SharedSecretConfig{
		LoginID:     cfg.CupnudleLoginID,
		Password:    cfg.CupnudlePassword,
		CookieValue: cfg.CupnudleSessionValue,
		MaxAge:      cfg.SessionMaxAge,
		Secure:      cfg.CookieSecure,
		Domain:      cfg.CookieDomain,
	})
	federated := auth.NewFederatedTokenStrategy(deps.verifier, log.With(slog.String("component", "auth")))

	// 5. ミドルウェア
	loginLimiterCfg := middleware.DefaultLoginRateLimiterConfig()
	if cfg.LoginRateLimit > 0 {
		loginLimiterCfg.PerMinute = cfg.LoginRateLimit
	}
	loginLimiter := middleware.NewLoginRateLimiter(loginLimiterCfg, log)
	csrf := middleware.NewCSRF(middleware.CSRFConfig{
		CookieSecure: cfg.CookieSecure,
		CookieDomain: cfg.CookieDomain,
	}, log)

	// 6. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		SecureCookies:     cfg.CookieSecure,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		CSRF:              csrf,
		LoginRateLimiter:  loginLimiter,

		SharedSecret:   sharedSecret,
		FederatedToken: federated,

		SettingsService: settingsService,
		PortalBuilder:   portalService,
		CupnudleService: cupnudleService,
		AuthHandler:     handler.NewAuthHandler(sharedSecret, collector, log),

		HealthChecker:  deps.store.health,
		MetricsHandler: metrics.Handler(deps.registry),

		WebDir: cfg.WebDir,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server, loginLimiter.Stop
}

// runServe はAPIサーバーモードで起動する。
// ストアを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	verifier, err := auth.NewFirebaseVerifier(ctx, auth.FirebaseConfig{
		ProjectID:   cfg.FirebaseProjectID,
		ClientEmail: cfg.FirebaseClientEmail,
		PrivateKey:  cfg.FirebasePrivateKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize firebase: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server, cleanup := newServer(cfg, log, serverDeps{store: st, verifier: verifier, registry: registry})
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config, log *slog.Logger) error {
	if cfg.StoreBackend != config.StoreBackendPostgres {
		return fmt.Errorf("migrate requires STORE_BACKEND=postgres, got %q", cfg.StoreBackend)
	}

	log.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
