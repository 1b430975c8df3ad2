package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/uhot33-create/MyPortal/internal/metrics"
	"github.com/uhot33-create/MyPortal/internal/model"
)

const (
	// DefaultTimeout はキーワード1件あたりの取得タイムアウト。
	DefaultTimeout = 8 * time.Second
	// DefaultMaxBodySize はフィード本文の読み取り上限（5MiB）。
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	userAgent = "MyPortal/1.0"
)

// URLValidator はrssUrlで上書きされた取得先の安全性を検証するインターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Sanitizer はタイトルをプレーンテキストにするインターフェース。
type Sanitizer interface {
	Plain(raw string) string
}

// Fetcher はキーワード単位でフィードを取得し、記事リストに変換する。
// 取得・解析の失敗は全てFetchResult.Errorに変換され、呼び出し元にエラーは返らない。
type Fetcher struct {
	httpClient  *http.Client
	validator   URLValidator
	sanitizer   Sanitizer
	metrics     metrics.Recorder
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64

	feedURL func(model.NewsKeywordSetting) string // テスト用に差し替え可能
}

// NewFetcher はFetcherを生成する。
// validatorがnilの場合、rssUrlの静的検証は行わない（HTTPクライアント側の検証のみ）。
// timeoutとmaxBodySizeが0以下の場合は既定値を使用する。
func NewFetcher(
	httpClient *http.Client,
	validator URLValidator,
	sanitizer Sanitizer,
	rec metrics.Recorder,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Fetcher{
		httpClient:  httpClient,
		validator:   validator,
		sanitizer:   sanitizer,
		metrics:     rec,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		feedURL:     FeedURL,
	}
}

// fetchError は取得失敗の分類とFetchResultに載せるメッセージを保持する。
type fetchError struct {
	outcome string
	msg     string
}

func (e *fetchError) Error() string { return e.msg }

// Fetch はキーワード1件分のフィードを取得する。
// 記事は公開日時の新しい順（不明なものは最後）に並べ、件数上限で切り詰める。
func (f *Fetcher) Fetch(ctx context.Context, s model.NewsKeywordSetting) model.FetchResult {
	start := time.Now()
	target := f.feedURL(s)

	articles, err := f.fetch(ctx, s, target)
	duration := time.Since(start)

	result := model.FetchResult{
		KeywordID: s.ID,
		Keyword:   s.Keyword,
		Items:     []model.RssArticle{},
	}

	if err != nil {
		outcome := metrics.OutcomeNetwork
		var fe *fetchError
		if errors.As(err, &fe) {
			outcome = fe.outcome
		}
		f.metrics.RecordNewsFetch(outcome, duration)
		f.logger.Warn("ニュースフィードの取得に失敗しました",
			slog.String("keyword_id", s.ID),
			slog.String("url", target),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", duration.Milliseconds()),
		)
		result.Error = err.Error()
		return result
	}

	f.metrics.RecordNewsFetch(metrics.OutcomeOK, duration)
	f.logger.Debug("ニュースフィードを取得しました",
		slog.String("keyword_id", s.ID),
		slog.Int("items", len(articles)),
		slog.Int64("duration_ms", duration.Milliseconds()),
	)

	sortNewestFirst(articles)
	if limit := EffectiveLimit(s.Limit); len(articles) > limit {
		articles = articles[:limit]
	}
	result.Items = articles
	return result
}

func (f *Fetcher) fetch(ctx context.Context, s model.NewsKeywordSetting, target string) ([]model.RssArticle, error) {
	if f.validator != nil && strings.TrimSpace(s.RSSURL) != "" {
		if err := f.validator.ValidateURL(target); err != nil {
			return nil, &fetchError{outcome: metrics.OutcomeNetwork, msg: err.Error()}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &fetchError{outcome: metrics.OutcomeNetwork, msg: fmt.Sprintf("invalid url: %v", err)}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, f.classify(ctx, err)
	}
	defer resp.Body.Close()

	f.metrics.RecordUpstreamStatus(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &fetchError{outcome: metrics.OutcomeHTTPError, msg: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, f.classify(ctx, err)
	}

	entries, err := parseEntries(body)
	if err != nil {
		return nil, &fetchError{outcome: metrics.OutcomeParseError, msg: err.Error()}
	}

	return toArticles(entries, s.Keyword, f.sanitizer.Plain), nil
}

// classify は通信エラーをタイムアウトとそれ以外に分類する。
func (f *Fetcher) classify(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &fetchError{outcome: metrics.OutcomeTimeout, msg: fmt.Sprintf("timeout after %s", f.timeout)}
	}
	return &fetchError{outcome: metrics.OutcomeNetwork, msg: err.Error()}
}

// sortNewestFirst は公開日時の降順で安定ソートする。日時不明はUnixエポックとして扱う。
func sortNewestFirst(articles []model.RssArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].SortTime().After(articles[j].SortTime())
	})
}
