package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/dskst/voxntry-sub001/internal/auth"
	"github.com/dskst/voxntry-sub001/internal/checkin"
	"github.com/dskst/voxntry-sub001/internal/conference"
	"github.com/dskst/voxntry-sub001/internal/config"
	"github.com/dskst/voxntry-sub001/internal/database"
	"github.com/dskst/voxntry-sub001/internal/directory"
	"github.com/dskst/voxntry-sub001/internal/handler"
	"github.com/dskst/voxntry-sub001/internal/logger"
	"github.com/dskst/voxntry-sub001/internal/metrics"
	"github.com/dskst/voxntry-sub001/internal/middleware"
	"github.com/dskst/voxntry-sub001/internal/notify"
	"github.com/dskst/voxntry-sub001/internal/repository"
	"github.com/dskst/voxntry-sub001/internal/security"
	"github.com/dskst/voxntry-sub001/internal/token"
	"github.com/dskst/voxntry-sub001/internal/worker/cleanup"
	"github.com/dskst/voxntry-sub001/internal/worker/refresh"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
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

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandConference:
		return runConference(w, cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. リポジトリの初期化
	confRepo := repository.NewPostgresConferenceRepo(db)
	eventRepo := repository.NewPostgresCheckinEventRepo(db)

	sheetsSvc, err := repository.NewSheetsService(context.Background(), cfg.SheetsCredentialsFile)
	if err != nil {
		return fmt.Errorf("failed to create sheets client: %w", err)
	}
	dirRepo := repository.NewInstrumentedDirectoryRepo(
		repository.NewSheetsDirectoryRepo(sheetsSvc), collector,
	)

	// 4. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 5. ドメインサービスの初期化
	// シークレットはローテーションを即時反映するため環境変数を毎回読み直す
	codec := token.NewCodec(
		token.EnvSecret(config.AuthTokenSecretEnv),
		token.Config{TTL: cfg.AuthTokenTTL},
	)

	confService := conference.NewService(confRepo, ssrfGuard)
	authService := auth.NewService(confService, codec)
	dirService := directory.NewService(dirRepo, sanitizer, cfg.DirectoryCacheTTL)

	notifier := notify.NewWebhookNotifier(
		ssrfGuard.NewSafeClient(cfg.WebhookTimeout), slog.Default(),
	)
	checkinService := checkin.NewService(
		confService, dirService, eventRepo, notifier, collector, cfg.WebhookTimeout,
	)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		HealthChecker:      db,
		MetricsHandler:     metrics.Handler(registry),
		IdentityResolver:   authService,
		AllowLegacyCookies: cfg.LegacyCookieAuth,
		CORSAllowedOrigin:  cfg.CORSAllowedOrigin,
		RateLimiter:        rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		Metrics: collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
			TokenMaxAge:  int(cfg.AuthTokenTTL.Seconds()),
		},

		DirectoryService:  dirService,
		ConferenceService: confService,

		CheckinService: checkinService,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 名簿スナップショットの定期リフレッシュと監査記録のクリーンアップを実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	confRepo := repository.NewPostgresConferenceRepo(db)

	sheetsSvc, err := repository.NewSheetsService(context.Background(), cfg.SheetsCredentialsFile)
	if err != nil {
		return fmt.Errorf("failed to create sheets client: %w", err)
	}
	dirRepo := repository.NewSheetsDirectoryRepo(sheetsSvc)

	// 3. 名簿サービスとリフレッシャーの初期化
	sanitizer := security.NewContentSanitizer()
	dirService := directory.NewService(dirRepo, sanitizer, cfg.DirectoryCacheTTL)

	refresher := refresh.NewRefresher(
		confRepo, dirService, nil, slog.Default(), cfg.DirectoryRefreshMaxConcurrent,
	)

	// 4. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewAuditCleanupJob(db, slog.Default())
	cleanupJob.RetentionDays = cfg.AuditRetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("refresh_interval", cfg.DirectoryRefreshInterval),
		slog.Int("max_concurrent", cfg.DirectoryRefreshMaxConcurrent),
		slog.Int("audit_retention_days", cfg.AuditRetentionDays),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// リフレッシャーをメインgoroutineで実行（ブロッキング）
	refresher.Start(ctx, cfg.DirectoryRefreshInterval)

	slog.Info("worker stopped gracefully")
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

// rateLimiterConfig は設定（req/min単位）からレートリミッターの設定を組み立てる。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rlCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitLogin > 0 {
		rlCfg.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60.0)
		rlCfg.LoginBurst = cfg.RateLimitLogin
	}
	return rlCfg
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
