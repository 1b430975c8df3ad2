package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はpanic発生時にプロセスクラッシュを防ぎ、
// 統一エラーフォーマットの500レスポンスを返すミドルウェアを生成する。
// 認証済みのリクエストでは認証方式（共有シークレット/IDトークン）もログに残す。
// http.ErrAbortHandlerは回復せず再panicする。
func NewRecoveryMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					attrs := []any{
						slog.Any("panic", rec),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					}
					if p, ok := logPrincipal(r.Context()); ok {
						attrs = append(attrs, slog.String("auth_method", p.Method))
					}
					attrs = append(attrs, slog.String("stack", string(debug.Stack())))
					logger.Error("panic recovered", attrs...)
					WriteInternalServerError(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
