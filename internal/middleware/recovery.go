package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はハンドラー内のpanicを回収し、統一フォーマットの500レスポンスを返す
// ミドルウェアを生成する。回収したpanicはスタックトレースと現在のセッションIDとともに記録する。
// http.ErrAbortHandlerはnet/httpの中断シグナルのため再度panicさせる。
func NewRecoveryMiddleware(logger *slog.Logger, sessionID SessionIDFunc) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				attrs := []any{
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				}
				if sessionID != nil {
					if id := sessionID(); id != "" {
						attrs = append(attrs, slog.String("session_id", id))
					}
				}
				attrs = append(attrs, slog.String("stack", string(debug.Stack())))
				logger.Error("panic recovered", attrs...)

				WriteInternalServerError(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
