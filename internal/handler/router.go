package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/issuetracker/internal/metrics"
	"github.com/hitoshi/issuetracker/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger   *slog.Logger
	Metrics  metrics.MetricsCollector
	Resolver middleware.CurrentUserResolver
	CSRF     middleware.CSRFConfig
	APICORS  middleware.CORSConfig
	HSTS     bool

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler // nilの場合は/metricsを公開しない

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// Issue
	IssueService IssueServiceInterface
}

// DefaultAPICORSConfig は読み取りAPI（/issue）の既定のCORS設定を返す。
func DefaultAPICORSConfig(origin string) middleware.CORSConfig {
	if origin == "" {
		origin = "*"
	}
	return middleware.CORSConfig{
		AllowedOrigin:  origin,
		AllowedMethods: "GET, POST, PUT, DELETE, OPTIONS",
		AllowedHeaders: "Content-Type, Authorization",
	}
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestScope → SecurityHeaders → Logging → Metrics → Recovery
//
// /actions/* にはさらにCSRF検証を、/issue にはCORSを適用する。
// /actions/signout だけはCSRF検証に失敗しても303でサインインページへ戻す。
// Issueアクションの認証はアクション自身が行い、結果エンベロープで返す。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestScopeMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(mc))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.Resolver, deps.AuthConfig)
	issueHandler := NewIssueHandler(deps.IssueService)
	apiHandler := NewAPIHandler(deps.IssueService)

	// --- 運用 ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- CSRFトークン・現在ユーザー ---
	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))
		r.With(middleware.NewRequireUserMiddleware(deps.Resolver)).Get("/me", authHandler.Me)
	})

	// --- アクション（状態変更）---
	r.Route("/actions", func(r chi.Router) {
		// サインアウトはCSRF検証に失敗してもCookieを消してリダイレクトする
		r.With(middleware.NewCSRFMiddlewareWithFallback(deps.CSRF, http.HandlerFunc(authHandler.SignOutUnverified))).
			Post("/signout", authHandler.SignOut)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

			r.Post("/signin", authHandler.SignIn)
			r.Post("/signup", authHandler.SignUp)

			r.Post("/issues", issueHandler.Create)
			r.Route("/issues/{id}", func(r chi.Router) {
				r.Patch("/", issueHandler.Update)
				r.Delete("/", issueHandler.Delete)
			})
		})
	})

	// --- ページ用読み取り ---
	r.Get("/issues", issueHandler.List)
	r.Get("/issues/{id}", issueHandler.Get)

	// --- 読み取りAPI ---
	r.Route("/issue", func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.APICORS))

		r.Get("/", apiHandler.ListIssues)
		r.Post("/", apiHandler.CreateIssue)
		r.Options("/", func(w http.ResponseWriter, r *http.Request) {})
		r.Get("/{id}", apiHandler.GetIssue)
		r.Options("/{id}", func(w http.ResponseWriter, r *http.Request) {})
	})

	return r
}
