package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/uhot33-create/MyPortal/internal/auth"
	"github.com/uhot33-create/MyPortal/internal/cupnudle"
	"github.com/uhot33-create/MyPortal/internal/metrics"
	"github.com/uhot33-create/MyPortal/internal/middleware"
	"github.com/uhot33-create/MyPortal/internal/portal"
	"github.com/uhot33-create/MyPortal/internal/repository"
	"github.com/uhot33-create/MyPortal/internal/settings"
)

const testIDToken = "valid-id-token"

type mockStrategy struct {
	authenticateFn func(r *http.Request) (*auth.Principal, error)
}

func (m *mockStrategy) Authenticate(r *http.Request) (*auth.Principal, error) {
	return m.authenticateFn(r)
}

// bearerStrategy は固定のトークンのみを受け付けるテスト用の認証方式。
func bearerStrategy() *mockStrategy {
	return &mockStrategy{authenticateFn: func(r *http.Request) (*auth.Principal, error) {
		if tok, ok := auth.BearerToken(r); ok && tok == testIDToken {
			return &auth.Principal{Subject: "uid-test", Method: auth.MethodFederatedToken}, nil
		}
		return nil, auth.ErrUnauthenticated
	}}
}

type mockPortalBuilder struct {
	buildFn func(ctx context.Context, limit int) (*portal.Page, error)
}

func (m *mockPortalBuilder) Build(ctx context.Context, limit int) (*portal.Page, error) {
	return m.buildFn(ctx, limit)
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(context.Context) error { return m.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	router       http.Handler
	sharedSecret *auth.SharedSecretStrategy
	portal       *mockPortalBuilder
	health       *mockHealthChecker
	limiter      *middleware.LoginRateLimiter
}

func newTestEnv(t *testing.T, webDir string) *testEnv {
	t.Helper()
	return newTestEnvWith(t, webDir, nil)
}

// newTestEnvWith はルーター構築前にRouterDepsを書き換えられるnewTestEnv。
func newTestEnvWith(t *testing.T, webDir string, customize func(*RouterDeps)) *testEnv {
	t.Helper()
	logger := discardLogger()
	repos := repository.NewMemoryRepositories()

	shared := auth.NewSharedSecretStrategy(auth.SharedSecretConfig{
		LoginID:  "admin",
		Password: "pass word",
		MaxAge:   28800,
	})
	limiter := middleware.NewLoginRateLimiter(middleware.LoginRateLimiterConfig{PerMinute: 5, CleanupInterval: time.Minute}, logger)
	t.Cleanup(limiter.Stop)

	reg := prometheus.NewRegistry()
	rec := metrics.NewCollector(reg)

	env := &testEnv{
		sharedSecret: shared,
		portal: &mockPortalBuilder{buildFn: func(context.Context, int) (*portal.Page, error) {
			return &portal.Page{}, nil
		}},
		health:  &mockHealthChecker{},
		limiter: limiter,
	}
	deps := &RouterDeps{
		Logger:           logger,
		CSRF:             middleware.NewCSRF(middleware.CSRFConfig{}, logger),
		LoginRateLimiter: limiter,
		SharedSecret:     shared,
		FederatedToken:   bearerStrategy(),
		SettingsService:  settings.NewService(repos, nil, rec, logger),
		PortalBuilder:    env.portal,
		CupnudleService:  cupnudle.NewService(repos.Items, repos.Stocks, logger),
		AuthHandler:      NewAuthHandler(shared, rec, logger),
		HealthChecker:    env.health,
		MetricsHandler:   metrics.Handler(reg),
		WebDir:           webDir,
	}
	if customize != nil {
		customize(deps)
	}
	env.router = NewRouter(deps)
	return env
}

type requestOption func(*http.Request)

func withBearer(r *http.Request) { r.Header.Set("Authorization", "Bearer "+testIDToken) }

func withCookies(cookies ...*http.Cookie) requestOption {
	return func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	}
}

func withHeader(k, v string) requestOption {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func (e *testEnv) do(method, target, body string, opts ...requestOption) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.RemoteAddr = "192.0.2.10:5000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("failed to decode body %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")

	if w := env.do(http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	env.health.err = errors.New("db down")
	if w := env.do(http.MethodGet, "/health", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

// ログイン → セッション確認 → ログアウト → セッション確認の流れを検証
func TestAuthFlow_LoginSessionLogout(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodPost, "/api/auth/login", `{"loginId":"  admin ","password":"pass word"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	if body := decodeBody[okResponse](t, w); !body.OK {
		t.Error("expected ok:true")
	}
	cookie := findCookie(w, auth.CookieName)
	if cookie == nil || !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode || cookie.MaxAge != 28800 {
		t.Fatalf("login cookie = %+v", cookie)
	}

	w = env.do(http.MethodGet, "/api/auth/session", "", withCookies(cookie))
	if got := decodeBody[sessionResponse](t, w); !got.Authenticated {
		t.Error("session should be authenticated after login")
	}

	w = env.do(http.MethodPost, "/api/auth/logout", "", withCookies(cookie))
	cleared := findCookie(w, auth.CookieName)
	if cleared == nil || cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("logout cookie = %+v", cleared)
	}

	// ブラウザは削除されたCookieを送らない
	w = env.do(http.MethodGet, "/api/auth/session", "")
	if got := decodeBody[sessionResponse](t, w); got.Authenticated {
		t.Error("session should not be authenticated after logout")
	}
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
		code string
	}{
		{"empty id", `{"loginId":"  ","password":"x"}`, http.StatusBadRequest, "MISSING_CREDENTIAL"},
		{"empty password", `{"loginId":"admin","password":""}`, http.StatusBadRequest, "MISSING_CREDENTIAL"},
		{"mismatch", `{"loginId":"admin","password":"wrong"}`, http.StatusUnauthorized, "INVALID_CREDENTIAL"},
		{"password is not trimmed", `{"loginId":"admin","password":" pass word "}`, http.StatusUnauthorized, "INVALID_CREDENTIAL"},
		{"malformed", `{`, http.StatusBadRequest, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "")
			w := env.do(http.MethodPost, "/api/auth/login", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if body := decodeBody[middleware.ErrorResponseBody](t, w); body.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Code, tt.code)
			}
			if findCookie(w, auth.CookieName) != nil {
				t.Error("no cookie should be set on failure")
			}
		})
	}
}

// ログイン試行がIPごとに制限されることを検証
func TestLogin_RateLimited(t *testing.T) {
	env := newTestEnv(t, "")
	for i := 0; i < 5; i++ {
		env.do(http.MethodPost, "/api/auth/login", `{"loginId":"admin","password":"wrong"}`)
	}
	w := env.do(http.MethodPost, "/api/auth/login", `{"loginId":"admin","password":"pass word"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

// 転送ヘッダーを毎回変えても同一接続元として制限されることを検証
func TestLogin_RateLimited_IgnoresForwardedHeadersByDefault(t *testing.T) {
	env := newTestEnv(t, "")
	spoof := func(i int) requestOption {
		return func(r *http.Request) {
			r.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
			r.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i))
		}
	}
	for i := 0; i < 5; i++ {
		env.do(http.MethodPost, "/api/auth/login", `{"loginId":"admin","password":"wrong"}`, spoof(i))
	}
	w := env.do(http.MethodPost, "/api/auth/login", `{"loginId":"admin","password":"pass word"}`, spoof(99))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
}

// TrustProxyHeaders有効時はX-Real-IPごとに制限されることを検証
func TestLogin_RateLimited_TrustedProxyUsesForwardedIP(t *testing.T) {
	env := newTestEnvWith(t, "", func(d *RouterDeps) { d.TrustProxyHeaders = true })
	from := func(ip string) requestOption {
		return func(r *http.Request) { r.Header.Set("X-Real-IP", ip) }
	}
	for i := 0; i < 5; i++ {
		env.do(http.MethodPost, "/api/auth/login", `{"loginId":"admin","password":"wrong"}`, from("203.0.113.1"))
	}
	if w := env.do(http.MethodPost, "/api/auth/login", `{"loginId":"admin","password":"wrong"}`, from("203.0.113.1")); w.Code != http.StatusTooManyRequests {
		t.Fatalf("same client status = %d, want 429", w.Code)
	}
	if w := env.do(http.MethodPost, "/api/auth/login", `{"loginId":"admin","password":"pass word"}`, from("203.0.113.2")); w.Code != http.StatusOK {
		t.Fatalf("other client status = %d, want 200", w.Code)
	}
}

// 設定APIがIDトークンを要求することを検証
func TestSettings_RequiresIDToken(t *testing.T) {
	env := newTestEnv(t, "")
	for _, target := range []string{"/api/settings/news", "/api/settings/x", "/api/settings/power", "/api/portal"} {
		w := env.do(http.MethodGet, target, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s status = %d, want 401", target, w.Code)
		}
	}

	// 共有シークレットCookieでは設定APIにアクセスできない
	w := env.do(http.MethodGet, "/api/settings/news", "", withCookies(env.sharedSecret.IssueCookie()))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("shared secret cookie status = %d, want 401", w.Code)
	}
}

// ニュース設定の保存と取得を検証
func TestSettings_NewsRoundTrip(t *testing.T) {
	env := newTestEnv(t, "")

	body := `{"items":[
		{"id":"b","keyword":" Go ","enabled":true,"order":7,"limit":0},
		{"id":"a","keyword":"Rust","enabled":false,"order":1,"limit":50}
	]}`
	w := env.do(http.MethodPost, "/api/settings/news", body, withBearer)
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodGet, "/api/settings/news", "", withBearer)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := decodeBody[struct {
		Items []struct {
			ID      string `json:"id"`
			Keyword string `json:"keyword"`
			Order   int    `json:"order"`
			Limit   int    `json:"limit"`
		} `json:"items"`
	}](t, w)
	if len(got.Items) != 2 {
		t.Fatalf("items = %+v", got.Items)
	}
	if got.Items[0].ID != "b" || got.Items[0].Keyword != "Go" || got.Items[0].Order != 1 || got.Items[0].Limit != 5 {
		t.Errorf("first = %+v", got.Items[0])
	}
	if got.Items[1].ID != "a" || got.Items[1].Order != 2 || got.Items[1].Limit != 20 {
		t.Errorf("second = %+v", got.Items[1])
	}
}

// 不正なペイロードが400となり書き込まれないことを検証
func TestSettings_InvalidPayloadNoWrite(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodPost, "/api/settings/x", `{"items":[{"id":"x1","name":"ok","username":"jack","order":1}]}`, withBearer)
	if w.Code != http.StatusOK {
		t.Fatalf("seed status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodPost, "/api/settings/x", `{"items":[
		{"id":"x2","name":"ok","username":"nasa","order":1},
		{"id":"x3","name":"both","username":"a","profileUrl":"https://x.com/a","order":2}
	]}`, withBearer)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeBody[middleware.ErrorResponseBody](t, w); body.Code != "INVALID_PAYLOAD" || body.Category != "validation" {
		t.Errorf("body = %+v", body)
	}

	w = env.do(http.MethodGet, "/api/settings/x", "", withBearer)
	got := decodeBody[struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}](t, w)
	if len(got.Items) != 1 || got.Items[0].ID != "x1" {
		t.Errorf("items = %+v, want only x1", got.Items)
	}
}

// 電力使用量の保存と空コレクションの取得を検証
func TestSettings_Power(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodGet, "/api/settings/power", "", withBearer)
	if !strings.Contains(w.Body.String(), `"dailyItems":[]`) || !strings.Contains(w.Body.String(), `"monthlyItems":[]`) {
		t.Errorf("empty power body = %s", w.Body.String())
	}

	body := `{"dailyItems":[{"id":"d1","date":"2025-01-31","powerKwh":10.5,"costYen":300}],
		"monthlyItems":[{"id":"m1","month":"2025-01","powerKwh":300,"costYen":9000}]}`
	if w := env.do(http.MethodPost, "/api/settings/power", body, withBearer); w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodGet, "/api/settings/power", "", withBearer)
	got := decodeBody[settings.PowerSettings](t, w)
	if len(got.DailyItems) != 1 || got.DailyItems[0].PowerKwh != 10.5 || len(got.MonthlyItems) != 1 {
		t.Errorf("power = %+v", got)
	}

	bad := `{"dailyItems":[{"id":"d1","date":"2025-02-30","powerKwh":1,"costYen":1}],"monthlyItems":[]}`
	if w := env.do(http.MethodPost, "/api/settings/power", bad, withBearer); w.Code != http.StatusBadRequest {
		t.Errorf("invalid date status = %d, want 400", w.Code)
	}
}

func TestPortal(t *testing.T) {
	env := newTestEnv(t, "")

	var gotLimit int
	env.portal.buildFn = func(_ context.Context, limit int) (*portal.Page, error) {
		gotLimit = limit
		return &portal.Page{NewsTabs: []portal.NewsTab{}, Timeline: portal.TimelinePolicy{CooldownMs: 1500}}, nil
	}

	w := env.do(http.MethodGet, "/api/portal?limit=12", "", withBearer)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotLimit != 12 {
		t.Errorf("limit = %d, want 12", gotLimit)
	}
	if !strings.Contains(w.Body.String(), `"cooldownMs":1500`) || !strings.Contains(w.Body.String(), `"usdJpy":null`) {
		t.Errorf("body = %s", w.Body.String())
	}

	env.do(http.MethodGet, "/api/portal?limit=-3", "", withBearer)
	if gotLimit != 1 {
		t.Errorf("negative limit = %d, want 1", gotLimit)
	}

	if w := env.do(http.MethodGet, "/api/portal?limit=abc", "", withBearer); w.Code != http.StatusBadRequest {
		t.Errorf("non-integer limit status = %d, want 400", w.Code)
	}

	env.portal.buildFn = func(context.Context, int) (*portal.Page, error) {
		return nil, errors.New("db down")
	}
	w = env.do(http.MethodGet, "/api/portal", "", withBearer)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("error status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "db down") {
		t.Error("internal error details must not leak")
	}
}

// 在庫管理APIの認証・CSRF・CRUDを検証
func TestCupnudleAPI(t *testing.T) {
	env := newTestEnv(t, "")

	if w := env.do(http.MethodGet, "/api/cupnudle/items", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", w.Code)
	}

	session := env.sharedSecret.IssueCookie()

	w := env.do(http.MethodGet, "/api/csrf-token", "")
	csrfCookie := findCookie(w, "csrf_token")
	if csrfCookie == nil {
		t.Fatal("expected csrf cookie")
	}
	token := decodeBody[map[string]string](t, w)["token"]

	// CSRFトークンなしの変更はできない
	if w := env.do(http.MethodPost, "/api/cupnudle/items", `{"name":"カレー"}`, withCookies(session)); w.Code != http.StatusForbidden {
		t.Fatalf("without csrf status = %d, want 403", w.Code)
	}

	authed := []requestOption{withCookies(session, csrfCookie), withHeader("X-CSRF-Token", token)}

	w = env.do(http.MethodPost, "/api/cupnudle/items", `{"name":"カレー"}`, authed...)
	if w.Code != http.StatusCreated {
		t.Fatalf("create item status = %d, body = %s", w.Code, w.Body.String())
	}
	itemID := decodeBody[map[string]any](t, w)["id"].(string)

	if w := env.do(http.MethodPost, "/api/cupnudle/items", `{"name":"カレー"}`, authed...); w.Code != http.StatusBadRequest {
		t.Errorf("duplicate status = %d, want 400", w.Code)
	}

	w = env.do(http.MethodPost, "/api/cupnudle/stocks",
		`{"itemId":"`+itemID+`","quantity":2,"expiresOn":"2025-07-01","note":"棚"}`, authed...)
	if w.Code != http.StatusCreated {
		t.Fatalf("create stock status = %d, body = %s", w.Code, w.Body.String())
	}
	stockID := decodeBody[map[string]any](t, w)["id"].(string)

	w = env.do(http.MethodPut, "/api/cupnudle/stocks/"+stockID, `{"quantity":1,"expiresOn":"2025-06-01"}`, authed...)
	if w.Code != http.StatusOK {
		t.Fatalf("update stock status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodGet, "/api/cupnudle/stocks", "", withCookies(session))
	list := decodeBody[struct {
		Items []struct {
			ID       string `json:"id"`
			ItemName string `json:"itemName"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
	}](t, w)
	if len(list.Items) != 1 || list.Items[0].ItemName != "カレー" || list.Items[0].Quantity != 1 {
		t.Errorf("stocks = %+v", list.Items)
	}

	if w := env.do(http.MethodPut, "/api/cupnudle/stocks/unknown", `{"quantity":1,"expiresOn":"2025-06-01"}`, authed...); w.Code != http.StatusNotFound {
		t.Errorf("unknown stock status = %d, want 404", w.Code)
	}
	if w := env.do(http.MethodPost, "/api/cupnudle/stocks", `{"itemId":"`+itemID+`","quantity":0,"expiresOn":"2025-06-01"}`, authed...); w.Code != http.StatusBadRequest {
		t.Errorf("zero quantity status = %d, want 400", w.Code)
	}

	if w := env.do(http.MethodDelete, "/api/cupnudle/items/"+itemID, "", authed...); w.Code != http.StatusNoContent {
		t.Fatalf("delete item status = %d", w.Code)
	}
	if w := env.do(http.MethodDelete, "/api/cupnudle/stocks/"+stockID, "", authed...); w.Code != http.StatusNotFound {
		t.Errorf("cascaded stock delete status = %d, want 404", w.Code)
	}
}

// ページパスのルートゲートと静的配信を検証
func TestPages_RouteGate(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "cupnudle"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"index.html":          "portal",
		"cupnudle/index.html": "inventory",
		"cupnudle/login.html": "login form",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	env := newTestEnv(t, dir)
	session := env.sharedSecret.IssueCookie()

	w := env.do(http.MethodGet, "/cupnudle", "")
	if w.Code != http.StatusTemporaryRedirect || w.Header().Get("Location") != "/cupnudle/login" {
		t.Errorf("unauth /cupnudle = %d %q", w.Code, w.Header().Get("Location"))
	}

	w = env.do(http.MethodGet, "/cupnudle/login", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "login form") {
		t.Errorf("login page = %d %q", w.Code, w.Body.String())
	}

	w = env.do(http.MethodGet, "/cupnudle/login", "", withCookies(session))
	if w.Code != http.StatusTemporaryRedirect || w.Header().Get("Location") != "/cupnudle" {
		t.Errorf("auth login = %d %q", w.Code, w.Header().Get("Location"))
	}

	w = env.do(http.MethodGet, "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "portal") {
		t.Errorf("root = %d %q", w.Code, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(http.MethodPost, "/api/auth/login", `{"loginId":"admin","password":"wrong"}`)

	w := env.do(http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "myportal_login_attempts_total") {
		t.Error("expected login metric in exposition")
	}
}

// APIError以外のエラーが500の統一エラーとなることを検証
func TestHandleServiceError_UnknownError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	handleServiceError(w, discardLogger(), r, nil, errors.New("boom"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if body := decodeBody[middleware.ErrorResponseBody](t, w); body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q", body.Code)
	}
}
