// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"net/http"

	"github.com/uhot33-create/MyPortal/internal/auth"
	"github.com/uhot33-create/MyPortal/internal/model"
)

// NewAuthMiddleware は指定した認証方式でAPIリクエストを認証するミドルウェアを返す。
// 認証済み主体をリクエストコンテキストに注入する。
// 未認証リクエストには統一エラーフォーマットで401を返す。
func NewAuthMiddleware(strategy auth.Strategy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := strategy.Authenticate(r)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			setLogPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}
