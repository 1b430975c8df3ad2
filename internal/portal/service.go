// Package portal はポータル画面に表示するデータを集約する。
package portal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/uhot33-create/MyPortal/internal/fxrate"
	"github.com/uhot33-create/MyPortal/internal/model"
	"github.com/uhot33-create/MyPortal/internal/news"
	"github.com/uhot33-create/MyPortal/internal/retry"
	"github.com/uhot33-create/MyPortal/internal/settings"
)

const (
	DefaultMaxConcurrent = 8
	DefaultGlobalLimit   = 30
)

// SettingsReader はポータル表示に必要な設定の読み取りインターフェース。
type SettingsReader interface {
	ListNews(ctx context.Context) ([]model.NewsKeywordSetting, error)
	ListXTargets(ctx context.Context) ([]model.XTargetSetting, error)
}

// NewsFetcher はキーワード1件分のフィードを取得するインターフェース。
type NewsFetcher interface {
	Fetch(ctx context.Context, s model.NewsKeywordSetting) model.FetchResult
}

// RateSource はUSD/JPYレートを取得するインターフェース。取得失敗時はnilを返す。
type RateSource interface {
	USDJPY(ctx context.Context) *fxrate.Rate
}

// NewsTab はキーワード1件分のタブ。
type NewsTab struct {
	KeywordID string             `json:"keywordId"`
	Keyword   string             `json:"keyword"`
	Error     string             `json:"error,omitempty"`
	Items     []model.RssArticle `json:"items"`
}

// XTimeline は埋め込み対象のXアカウント。
// ハンドルを解決できない設定はInvalidをtrueにして返す。
type XTimeline struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ScreenName string `json:"screenName,omitempty"`
	Invalid    bool   `json:"invalid"`
}

// RetryPolicy はブラウザ側のタイムライン埋め込みで使う再試行設定。
type RetryPolicy struct {
	MaxAttempts int    `json:"maxAttempts"`
	DelayMs     int64  `json:"delayMs"`
	Backoff     string `json:"backoff"`
}

// TimelinePolicy はタブ切り替えのクールダウンと埋め込みの再試行設定。
type TimelinePolicy struct {
	CooldownMs int64       `json:"cooldownMs"`
	Retry      RetryPolicy `json:"retry"`
}

// Page はGET /api/portalのレスポンス。
type Page struct {
	NewsTabs []NewsTab          `json:"newsTabs"`
	Articles []model.RssArticle `json:"articles"`
	XTargets []XTimeline        `json:"xTargets"`
	USDJPY   *fxrate.Rate       `json:"usdJpy"`
	Timeline TimelinePolicy     `json:"timeline"`
}

// Config はServiceの設定。
type Config struct {
	MaxConcurrent    int
	GlobalLimit      int
	TimelineCooldown time.Duration
	TimelineRetry    retry.Policy
}

// Service はポータル画面のデータを組み立てるサービス層。
type Service struct {
	settings SettingsReader
	fetcher  NewsFetcher
	rates    RateSource
	config   Config
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(settings SettingsReader, fetcher NewsFetcher, rates RateSource, config Config, logger *slog.Logger) *Service {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultMaxConcurrent
	}
	if config.GlobalLimit < 1 {
		config.GlobalLimit = DefaultGlobalLimit
	}
	return &Service{
		settings: settings,
		fetcher:  fetcher,
		rates:    rates,
		config:   config,
		logger:   logger,
	}
}

// Build はポータル画面のデータを組み立てる。
// limitが0以下の場合は設定の記事件数上限を使用する。
// 設定の読み込み失敗はエラーとして返すが、ニュースと為替の取得失敗は結果に含めて返す。
// 為替の取得は設定の読み込みとニュース取得の両方と並行に行う。
func (s *Service) Build(ctx context.Context, limit int) (*Page, error) {
	var (
		xTargets []model.XTargetSetting
		results  []model.FetchResult
		rate     *fxrate.Rate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rate = s.rates.USDJPY(gctx)
		return nil
	})
	g.Go(func() error {
		var newsSettings []model.NewsKeywordSetting
		sg, sctx := errgroup.WithContext(gctx)
		sg.Go(func() error {
			var err error
			newsSettings, err = s.settings.ListNews(sctx)
			if err != nil {
				return fmt.Errorf("load news settings: %w", err)
			}
			return nil
		})
		sg.Go(func() error {
			var err error
			xTargets, err = s.settings.ListXTargets(sctx)
			if err != nil {
				return fmt.Errorf("load x settings: %w", err)
			}
			return nil
		})
		if err := sg.Wait(); err != nil {
			return err
		}
		results = s.fetchAll(gctx, enabledKeywords(newsSettings))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if limit < 1 {
		limit = s.config.GlobalLimit
	}

	page := &Page{
		NewsTabs: make([]NewsTab, len(results)),
		Articles: news.Merge(results, limit),
		XTargets: timelines(xTargets),
		USDJPY:   rate,
		Timeline: s.timelinePolicy(),
	}
	for i, r := range results {
		page.NewsTabs[i] = NewsTab{KeywordID: r.KeywordID, Keyword: r.Keyword, Error: r.Error, Items: r.Items}
	}

	s.logger.Debug("ポータルを組み立てました",
		slog.Int("keywords", len(results)),
		slog.Int("articles", len(page.Articles)),
		slog.Bool("fx_available", rate != nil),
	)
	return page, nil
}

// fetchAll はキーワードを並行に取得し、入力順の結果を返す。
// 同時実行数はMaxConcurrentで制限する。Fetchはエラーを返さないため全件の結果が揃う。
func (s *Service) fetchAll(ctx context.Context, keywords []model.NewsKeywordSetting) []model.FetchResult {
	results := make([]model.FetchResult, len(keywords))

	var g errgroup.Group
	g.SetLimit(s.config.MaxConcurrent)
	for i, k := range keywords {
		g.Go(func() error {
			results[i] = s.fetcher.Fetch(ctx, k)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Service) timelinePolicy() TimelinePolicy {
	p := s.config.TimelineRetry
	return TimelinePolicy{
		CooldownMs: s.config.TimelineCooldown.Milliseconds(),
		Retry: RetryPolicy{
			MaxAttempts: p.Attempts(),
			DelayMs:     p.Delay.Milliseconds(),
			Backoff:     p.Backoff(),
		},
	}
}

// enabledKeywords は有効かつキーワードが空白でない設定をorder順のまま返す。
func enabledKeywords(all []model.NewsKeywordSetting) []model.NewsKeywordSetting {
	out := make([]model.NewsKeywordSetting, 0, len(all))
	for _, s := range all {
		if s.Enabled && strings.TrimSpace(s.Keyword) != "" {
			out = append(out, s)
		}
	}
	return out
}

// timelines は有効なXターゲットをハンドル解決済みの表示用に変換する。
func timelines(all []model.XTargetSetting) []XTimeline {
	out := make([]XTimeline, 0, len(all))
	for _, t := range all {
		if !t.Enabled {
			continue
		}
		handle, ok := settings.ResolveHandle(t)
		out = append(out, XTimeline{
			ID:         t.ID,
			Name:       t.Name,
			ScreenName: handle,
			Invalid:    !ok,
		})
	}
	return out
}
