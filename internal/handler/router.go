package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Volt-Athletics/state-management-tests/internal/middleware"
	"github.com/Volt-Athletics/state-management-tests/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	SignInLimiter     *middleware.RateLimiter

	// セッション
	Sessions  SessionManager
	Sanitizer security.DescriptionSanitizer

	// MetricsHandler が設定されている場合は /metrics で公開する。
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Recovery → SecurityHeaders → CORS
//
// サインイン（POST /session）にはクライアントごとのレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sanitizer := deps.Sanitizer
	if sanitizer == nil {
		sanitizer = security.NewDescriptionSanitizer()
	}

	r := chi.NewRouter()

	sessionID := currentSessionID(deps.Sessions)
	r.Use(middleware.NewLoggingMiddleware(logger, sessionID))
	r.Use(middleware.NewRecoveryMiddleware(logger, sessionID))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	h := NewSessionHandler(deps.Sessions, sanitizer, logger)

	r.Get("/health", Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/session", func(r chi.Router) {
		if deps.SignInLimiter != nil {
			r.With(deps.SignInLimiter.Middleware()).Post("/", h.SignIn)
		} else {
			r.Post("/", h.SignIn)
		}
		r.Delete("/", h.SignOut)
		r.Post("/refresh", h.Refresh)

		r.Get("/status", h.Status)
		r.Get("/profile", h.Profile)
		r.Get("/contexts", h.Contexts)
		r.Get("/context", h.SelectedContext)
		r.Get("/program", h.Program)
		r.Get("/week", h.Week)
		r.Get("/workouts", h.Workouts)
	})

	return r
}

// Health はプロセスの死活を返す。バックエンドには問い合わせない。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func currentSessionID(sessions SessionManager) middleware.SessionIDFunc {
	if sessions == nil {
		return nil
	}
	return func() string {
		if s := sessions.Current(); s != nil {
			return s.ID()
		}
		return ""
	}
}
