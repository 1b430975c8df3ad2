package middleware

import (
	"net/http"
	"strings"

	"github.com/uhot33-create/MyPortal/internal/auth"
)

// 在庫管理サブアプリのページパス
const (
	CupnudleBasePath  = "/cupnudle"
	CupnudleLoginPath = "/cupnudle/login"
)

// NewRouteGate は在庫管理ページへのアクセスをログイン状態で振り分けるミドルウェアを返す。
// /cupnudle 配下のみを対象とし、それ以外のパスはそのまま通す。
// 判定にはAPIのNewAuthMiddlewareと同じauth.Strategyを使う。
//   - 未認証でログインページ以外 → /cupnudle/login へ307リダイレクト
//   - 認証済みでログインページ → /cupnudle へ307リダイレクト
func NewRouteGate(strategy auth.Strategy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if !isCupnudlePath(path) {
				next.ServeHTTP(w, r)
				return
			}

			_, err := strategy.Authenticate(r)
			authenticated := err == nil
			login := isLoginPath(path)

			switch {
			case !authenticated && !login:
				http.Redirect(w, r, CupnudleLoginPath, http.StatusTemporaryRedirect)
			case authenticated && login:
				http.Redirect(w, r, CupnudleBasePath, http.StatusTemporaryRedirect)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func isCupnudlePath(path string) bool {
	return path == CupnudleBasePath || strings.HasPrefix(path, CupnudleBasePath+"/")
}

func isLoginPath(path string) bool {
	return path == CupnudleLoginPath || strings.HasPrefix(path, CupnudleLoginPath+"/")
}
