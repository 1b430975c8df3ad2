package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ストアバックエンドの種別。
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreBackend string
	DatabaseURL  string

	// Firebase
	FirebaseProjectID   string
	FirebaseClientEmail string
	FirebasePrivateKey  string

	// Cupnudle
	CupnudleLoginID      string
	CupnudlePassword     string
	CupnudleSessionValue string
	SessionMaxAge        int

	// News
	NewsFetchTimeout       time.Duration
	NewsFetchMaxSize       int64
	NewsFetchMaxConcurrent int
	NewsGlobalLimit        int

	// FX
	FXRateEndpoint     string
	FXRetryMaxAttempts int
	FXRetryDelay       time.Duration

	// Timeline
	TimelineCooldown         time.Duration
	TimelineRetryMaxAttempts int
	TimelineRetryDelay       time.Duration

	// Rate Limit
	LoginRateLimit int
	// TrustProxyHeaders が真の場合のみX-Forwarded-For/X-Real-IPをクライアントIPとして扱う
	TrustProxyHeaders bool

	// Server
	ServerPort string
	BaseURL    string
	WebDir     string
	LogLevel   string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.StoreBackend = strings.ToLower(getEnvString("STORE_BACKEND", StoreBackendPostgres))
	switch cfg.StoreBackend {
	case StoreBackendPostgres, StoreBackendMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_BACKEND: %q", cfg.StoreBackend)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && cfg.StoreBackend == StoreBackendPostgres {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.FirebaseProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	if cfg.FirebaseProjectID == "" {
		missing = append(missing, "FIREBASE_PROJECT_ID")
	}

	cfg.CupnudleLoginID = os.Getenv("CUPNUDLE_LOGIN_ID")
	if cfg.CupnudleLoginID == "" {
		missing = append(missing, "CUPNUDLE_LOGIN_ID")
	}

	cfg.CupnudlePassword = os.Getenv("CUPNUDLE_PASSWORD")
	if cfg.CupnudlePassword == "" {
		missing = append(missing, "CUPNUDLE_PASSWORD")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.FirebaseClientEmail = getEnvString("FIREBASE_CLIENT_EMAIL", "")
	cfg.FirebasePrivateKey = getEnvString("FIREBASE_PRIVATE_KEY", "")
	cfg.CupnudleSessionValue = getEnvString("CUPNUDLE_SESSION_VALUE", "authenticated")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 28800)
	cfg.NewsFetchTimeout = getEnvDuration("NEWS_FETCH_TIMEOUT", 8*time.Second)
	cfg.NewsFetchMaxSize = getEnvInt64("NEWS_FETCH_MAX_SIZE", 5242880)
	cfg.NewsFetchMaxConcurrent = getEnvInt("NEWS_FETCH_MAX_CONCURRENT", 8)
	cfg.NewsGlobalLimit = getEnvInt("NEWS_GLOBAL_LIMIT", 30)
	cfg.FXRateEndpoint = getEnvString("FX_RATE_ENDPOINT", "")
	cfg.FXRetryMaxAttempts = getEnvInt("FX_RETRY_MAX_ATTEMPTS", 2)
	cfg.FXRetryDelay = getEnvDuration("FX_RETRY_DELAY", 500*time.Millisecond)
	cfg.TimelineCooldown = getEnvDuration("TIMELINE_COOLDOWN", 1500*time.Millisecond)
	cfg.TimelineRetryMaxAttempts = getEnvInt("TIMELINE_RETRY_MAX_ATTEMPTS", 2)
	cfg.TimelineRetryDelay = getEnvDuration("TIMELINE_RETRY_DELAY", 3*time.Second)
	cfg.LoginRateLimit = getEnvInt("LOGIN_RATE_LIMIT", 10)
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", false)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.WebDir = getEnvString("WEB_DIR", "")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
