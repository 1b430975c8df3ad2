package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
)

// CookieName は在庫管理サブアプリの認証Cookie名。
const CookieName = "cupnudle_auth"

// DefaultCookieValue はCUPNUDLE_SESSION_VALUE未設定時のCookie値。
const DefaultCookieValue = "authenticated"

// SharedSecretConfig は共有シークレット方式の設定。
type SharedSecretConfig struct {
	LoginID     string
	Password    string
	CookieValue string
	MaxAge      int // 秒
	Secure      bool
	Domain      string
}

// SharedSecretStrategy は固定のログインID・パスワードと固定値のCookieによる認証。
// Cookieは利用者を識別しない（値が一致すれば誰でも認証済みとなる）。
type SharedSecretStrategy struct {
	cfg SharedSecretConfig
}

// NewSharedSecretStrategy はSharedSecretStrategyを生成する。
func NewSharedSecretStrategy(cfg SharedSecretConfig) *SharedSecretStrategy {
	if cfg.CookieValue == "" {
		cfg.CookieValue = DefaultCookieValue
	}
	return &SharedSecretStrategy{cfg: cfg}
}

// CheckCredential はログインIDとパスワードが設定値と一致するかを定数時間で比較する。
func (s *SharedSecretStrategy) CheckCredential(loginID, password string) bool {
	idOK := subtle.ConstantTimeCompare([]byte(loginID), []byte(s.cfg.LoginID))
	pwOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password))
	return idOK&pwOK == 1
}

// IssueCookie はログイン成功時に設定する認証Cookieを返す。
func (s *SharedSecretStrategy) IssueCookie() *http.Cookie {
	return s.cookie(s.cfg.CookieValue, s.cfg.MaxAge)
}

// ClearCookie はログアウト時に認証Cookieを削除するCookieを返す。
func (s *SharedSecretStrategy) ClearCookie() *http.Cookie {
	return s.cookie("", -1)
}

func (s *SharedSecretStrategy) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Domain:   s.cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// IsAuthenticated はリクエストの認証Cookieが固定値と一致するかを返す。
func (s *SharedSecretStrategy) IsAuthenticated(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(s.cfg.CookieValue)) == 1
}

// Authenticate はStrategyを実装する。
func (s *SharedSecretStrategy) Authenticate(r *http.Request) (*Principal, error) {
	if !s.IsAuthenticated(r) {
		return nil, fmt.Errorf("%w: missing or invalid %s cookie", ErrUnauthenticated, CookieName)
	}
	return &Principal{Subject: "cupnudle", Method: MethodSharedSecret}, nil
}

// compile-time interface check
var _ Strategy = (*SharedSecretStrategy)(nil)
