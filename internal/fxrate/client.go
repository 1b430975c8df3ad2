// Package fxrate は為替レートAPI（frankfurter.app）からUSD/JPYのレートを取得する。
package fxrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/uhot33-create/MyPortal/internal/metrics"
	"github.com/uhot33-create/MyPortal/internal/retry"
)

// DefaultEndpoint は最新レート取得APIのエンドポイント。
const DefaultEndpoint = "https://api.frankfurter.app/latest"

// maxBodySize はレスポンスボディの読み取り上限。
const maxBodySize = 64 * 1024

// Rate はUSD/JPYの為替レート。DateはAPIが返す基準日（YYYY-MM-DD）で、不明な場合は空。
type Rate struct {
	Rate float64 `json:"rate"`
	Date string  `json:"date,omitempty"`
}

type latestResponse struct {
	Date  string              `json:"date"`
	Rates map[string]*float64 `json:"rates"`
}

// Client は為替レートAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.Recorder
	policy     retry.Policy
	endpoint   string
}

// NewClient はClientを生成する。endpointが空の場合はDefaultEndpointを使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, rec metrics.Recorder, policy retry.Policy, endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    rec,
		policy:     policy,
		endpoint:   endpoint,
	}
}

// USDJPY はUSD/JPYのレートを取得する。
// 取得に失敗した場合はログを出力してnilを返し、呼び出し元へエラーは返さない。
func (c *Client) USDJPY(ctx context.Context) *Rate {
	var rate *Rate
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		r, err := c.fetch(ctx)
		if err != nil {
			return err
		}
		rate = r
		return nil
	})

	c.metrics.RecordFXFetch(err == nil)
	if err != nil {
		c.logger.Warn("為替レートの取得に失敗しました",
			slog.String("error", err.Error()),
			slog.String("endpoint", c.endpoint),
		)
		return nil
	}
	return rate
}

// fetch は1回分のAPI呼び出しを行う。
// 4xxや不正なレスポンスはリトライしても変わらないためPermanentとして返す。
func (c *Client) fetch(ctx context.Context) (*Rate, error) {
	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err))
	}
	q := reqURL.Query()
	q.Set("from", "USD")
	q.Set("to", "JPY")
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("為替レートAPIがステータス %d を返しました", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(statusErr)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var parsed latestResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, retry.Permanent(fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err))
	}

	jpy := parsed.Rates["JPY"]
	if jpy == nil {
		return nil, retry.Permanent(errors.New("レスポンスにJPYのレートが含まれていません"))
	}

	return &Rate{Rate: *jpy, Date: parsed.Date}, nil
}
