package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/uhot33-create/MyPortal/internal/auth"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// requestLogInfo は後段のミドルウェアがアクセスログに追記する情報。
// 認証は内側のミドルウェアで行われるため、ポインタ経由で受け渡す。
type requestLogInfo struct {
	principal *auth.Principal
}

type logInfoKey struct{}

// setLogPrincipal はアクセスログに出力する認証済み主体を記録する。
func setLogPrincipal(ctx context.Context, p *auth.Principal) {
	if info, ok := ctx.Value(logInfoKey{}).(*requestLogInfo); ok {
		info.principal = p
	}
}

// logPrincipal はsetLogPrincipalで記録された主体を返す。
func logPrincipal(ctx context.Context) (*auth.Principal, bool) {
	info, ok := ctx.Value(logInfoKey{}).(*requestLogInfo)
	if !ok || info.principal == nil {
		return nil, false
	}
	return info.principal, true
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、principal（認証済みの場合）を含む。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			info := &requestLogInfo{}
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), logInfoKey{}, info)))

			durationMs := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}
			if info.principal != nil {
				args = append(args,
					slog.String("principal", info.principal.Subject),
					slog.String("auth_method", info.principal.Method),
				)
			}

			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}
