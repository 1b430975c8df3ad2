package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/uhot33-create/MyPortal/internal/metrics"
	"github.com/uhot33-create/MyPortal/internal/middleware"
	"github.com/uhot33-create/MyPortal/internal/model"
)

// SharedSecretAuthenticator は在庫管理ログインに必要な認証インターフェース。
// auth.SharedSecretStrategyが実装する。
type SharedSecretAuthenticator interface {
	CheckCredential(loginID, password string) bool
	IssueCookie() *http.Cookie
	ClearCookie() *http.Cookie
	IsAuthenticated(r *http.Request) bool
}

// AuthHandler は在庫管理サブアプリのログイン・ログアウト・セッション確認のハンドラー。
type AuthHandler struct {
	auth    SharedSecretAuthenticator
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(auth SharedSecretAuthenticator, rec metrics.Recorder, logger *slog.Logger) *AuthHandler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthHandler{auth: auth, metrics: rec, logger: logger}
}

type loginRequest struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool `json:"authenticated"`
}

// Login はログインIDとパスワードを照合し、成功時に認証Cookieを設定する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// パスワードは前後の空白も含めて照合する
	loginID := strings.TrimSpace(req.LoginID)
	if loginID == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingCredentialError())
		return
	}

	if !h.auth.CheckCredential(loginID, req.Password) {
		h.metrics.RecordLogin(false)
		h.logger.Warn("ログインに失敗しました", slog.String("remote_addr", r.RemoteAddr))
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialError())
		return
	}

	h.metrics.RecordLogin(true)
	http.SetCookie(w, h.auth.IssueCookie())
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Logout は認証Cookieを削除する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.auth.ClearCookie())
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Session は認証Cookieが有効かどうかを返す。
// GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{Authenticated: h.auth.IsAuthenticated(r)})
}
