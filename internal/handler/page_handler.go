package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NewPageHandler はdir配下の静的ページを配信するハンドラーを返す。
// /cupnudle/login のような拡張子の無いパスは login.html または login/index.html を探す。
// dirが空の場合は全て404を返す。
func NewPageHandler(dir string) http.Handler {
	if dir == "" {
		return http.NotFoundHandler()
	}
	files := http.FileServer(http.Dir(dir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if path.Ext(clean) == "" && clean != "/" {
			candidate := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))+".html")
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				http.ServeFile(w, r, candidate)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}
