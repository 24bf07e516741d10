package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dskst/voxntry-sub001/internal/metrics"
	"github.com/dskst/voxntry-sub001/internal/middleware"
)

// HealthChecker はDB接続の死活確認に必要なインターフェース。
// *sql.DBの部分集合として定義する。
type HealthChecker interface {
	Ping() error
}

// SetupAuthRoutes は認証関連のルーティングを設定したchi.Routerを返す。
func SetupAuthRoutes(service AuthServiceInterface, config AuthHandlerConfig) http.Handler {
	r := chi.NewRouter()
	h := NewAuthHandler(service, config, nil)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})

	return r
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker      HealthChecker
	MetricsHandler     http.Handler
	IdentityResolver   middleware.IdentityResolver
	AllowLegacyCookies bool
	CORSAllowedOrigin  string
	RateLimiter        *middleware.RateLimiter
	CSRFConfig         middleware.CSRFConfig

	// メトリクス（nilの場合は記録しない）
	Metrics metrics.MetricsCollector

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 名簿
	DirectoryService  DirectoryServiceInterface
	ConferenceService ConferenceGetter

	// チェックイン
	CheckinService CheckinServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SecurityHeadersMiddleware → RecoveryMiddleware
//	→（認証ルート）LoggingMiddleware
//	→（API）TokenAuthMiddleware → LoggingMiddleware → RateLimitMiddleware(General) → CSRFMiddleware
//
// APIルートではログにスタッフアイデンティティを含めるため、
// LoggingMiddlewareをTokenAuthMiddlewareの内側に積む。
// /health と /metrics はプローブによるノイズを避けるためアクセスログの対象外とする。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Metrics)
	attendeeHandler := NewAttendeeHandler(deps.DirectoryService, deps.ConferenceService, deps.Metrics)
	checkinHandler := NewCheckinHandler(deps.CheckinService)

	tokenAuth := middleware.NewTokenAuthMiddleware(deps.IdentityResolver, deps.AllowLegacyCookies, deps.Metrics)
	logRequests := middleware.NewLoggingMiddleware(slog.Default(), deps.Metrics)

	// --- 運用エンドポイント ---

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証不要のルート ---

	r.Group(func(r chi.Router) {
		r.Use(logRequests)

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		r.Route("/auth", func(r chi.Router) {
			// POST /auth/login - ログイン（IPアドレス単位のレート制限を追加）
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(tokenAuth).Get("/me", authHandler.Me)
		})
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: TokenAuth → Logging → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(tokenAuth)
		r.Use(logRequests)
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// 参加者名簿
		r.Route("/api/attendees", func(r chi.Router) {
			r.Get("/", attendeeHandler.ListAttendees)

			// POST /api/attendees/{row}/checkin - チェックイン
			r.Post("/{row}/checkin", checkinHandler.CheckIn)
		})

		// 監査記録（管理者のみ）
		r.With(middleware.NewRequireAdminMiddleware()).Get("/api/checkins", checkinHandler.ListCheckins)
	})

	return r
}

// healthHandler はDB接続を確認して稼働状態を返すハンドラーを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := checker.Ping(); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
