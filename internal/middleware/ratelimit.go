package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/uhot33-create/MyPortal/internal/model"
)

// LoginRateLimiterConfig はログイン試行のレート制限設定。
type LoginRateLimiterConfig struct {
	PerMinute       int           // IPあたりの1分間の試行回数
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultLoginRateLimiterConfig はデフォルトのレート制限設定を返す。
func DefaultLoginRateLimiterConfig() LoginRateLimiterConfig {
	return LoginRateLimiterConfig{
		PerMinute:       10,
		CleanupInterval: 5 * time.Minute,
	}
}

// ipLimiter はIPごとのレートリミッターとアクセス時刻を保持する。
type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LoginRateLimiter はログインエンドポイントへの試行をクライアントIPごとに制限する。
// 期限切れエントリは自身が所有するバックグラウンドのtickerで削除する。
type LoginRateLimiter struct {
	config LoginRateLimiterConfig
	limit  rate.Limit
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[string]*ipLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
	now      func() time.Time
}

// NewLoginRateLimiter はLoginRateLimiterを生成し、クリーンアップを開始する。
// 終了時はStopを呼び出すこと。
func NewLoginRateLimiter(config LoginRateLimiterConfig, logger *slog.Logger) *LoginRateLimiter {
	if config.PerMinute < 1 {
		config.PerMinute = 1
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &LoginRateLimiter{
		config:   config,
		limit:    rate.Limit(float64(config.PerMinute) / 60.0),
		logger:   logger,
		limiters: make(map[string]*ipLimiter),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。複数回呼び出してもよい。
func (rl *LoginRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware はレート制限ミドルウェアを返す。超過時は429とRetry-Afterを返す。
func (rl *LoginRateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !rl.limiterFor(ip).Allow() {
				rl.logger.Warn("ログイン試行回数の上限を超えました", slog.String("ip", ip))
				w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
				WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Len は現在管理しているIPエントリ数を返す。
func (rl *LoginRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *LoginRateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters[ip]; ok {
		l.lastAccess = rl.now()
		return l.limiter
	}
	l := &ipLimiter{
		limiter:    rate.NewLimiter(rl.limit, rl.config.PerMinute),
		lastAccess: rl.now(),
	}
	rl.limiters[ip] = l
	return l.limiter
}

// retryAfterSeconds は1回分の試行が補充されるまでの秒数。
func (rl *LoginRateLimiter) retryAfterSeconds() int {
	n := rl.config.PerMinute
	return (60 + n - 1) / n
}

func (rl *LoginRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセスからCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *LoginRateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, l := range rl.limiters {
		if now.Sub(l.lastAccess) > ttl {
			delete(rl.limiters, ip)
		}
	}
}

// clientIP はRemoteAddrからホスト部分を取り出す。
// TrustProxyHeaders有効時のみchiのRealIPミドルウェアがRemoteAddrを書き換える。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
