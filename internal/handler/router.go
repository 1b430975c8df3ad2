package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/uhot33-create/MyPortal/internal/auth"
	"github.com/uhot33-create/MyPortal/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	SecureCookies     bool
	// TrustProxyHeaders が真の場合のみ転送ヘッダーからクライアントIPを復元する
	TrustProxyHeaders bool
	CSRF              *middleware.CSRF
	LoginRateLimiter  *middleware.LoginRateLimiter

	// 認証方式（ルートグループごとに選択）
	SharedSecret   *auth.SharedSecretStrategy
	FederatedToken auth.Strategy

	// サービス
	SettingsService SettingsServiceInterface
	PortalBuilder   PortalBuilder
	CupnudleService CupnudleServiceInterface
	AuthHandler     *AuthHandler

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// WebDir が空でない場合、ページを静的ファイルとして配信する
	WebDir string
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	[RealIP] → Logging → Recovery → SecurityHeaders → CORS
//
// RealIPはTrustProxyHeadersが真の場合のみ適用する。
// 偽のときはRemoteAddrをそのまま使うため、ログイン制限をヘッダー偽装で回避できない。
//
// 認証はルートグループごとに適用する。
//   - /api/settings/*, /api/portal: Firebase IDトークン
//   - /api/cupnudle/*: 共有シークレットCookie + CSRF
//   - /cupnudle 配下のページ: ルートゲート（リダイレクト）
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.SecureCookies))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	settingsHandler := NewSettingsHandler(deps.SettingsService, deps.Logger)
	portalHandler := NewPortalHandler(deps.PortalBuilder, deps.Logger)
	cupnudleHandler := NewCupnudleHandler(deps.CupnudleService, deps.Logger)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker, deps.Logger))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Method(http.MethodGet, "/api/csrf-token", deps.CSRF.TokenHandler())

	r.Route("/api/auth", func(r chi.Router) {
		r.With(deps.LoginRateLimiter.Middleware()).Post("/login", deps.AuthHandler.Login)
		r.Post("/logout", deps.AuthHandler.Logout)
		r.Get("/session", deps.AuthHandler.Session)
	})

	// --- Firebase IDトークンで保護するルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.FederatedToken))

		r.Route("/api/settings", func(r chi.Router) {
			r.Get("/news", settingsHandler.GetNews)
			r.Post("/news", settingsHandler.SaveNews)
			r.Get("/x", settingsHandler.GetXTargets)
			r.Post("/x", settingsHandler.SaveXTargets)
			r.Get("/power", settingsHandler.GetPower)
			r.Post("/power", settingsHandler.SavePower)
		})
		r.Get("/api/portal", portalHandler.Get)
	})

	// --- 共有シークレットCookieで保護するルート ---
	r.Route("/api/cupnudle", func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.SharedSecret))
		r.Use(deps.CSRF.Middleware())

		r.Route("/items", func(r chi.Router) {
			r.Get("/", cupnudleHandler.ListItems)
			r.Post("/", cupnudleHandler.CreateItem)
			r.Delete("/{id}", cupnudleHandler.DeleteItem)
		})
		r.Route("/stocks", func(r chi.Router) {
			r.Get("/", cupnudleHandler.ListStocks)
			r.Post("/", cupnudleHandler.CreateStock)
			r.Put("/{id}", cupnudleHandler.UpdateStock)
			r.Delete("/{id}", cupnudleHandler.DeleteStock)
		})
	})

	// --- ページ ---
	gate := middleware.NewRouteGate(deps.SharedSecret)
	pages := gate(NewPageHandler(deps.WebDir))
	r.Handle("/cupnudle", pages)
	r.Handle("/cupnudle/*", pages)
	if deps.WebDir != "" {
		r.Handle("/*", pages)
	}

	return r
}
