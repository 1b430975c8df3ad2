// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "myportal"

// フェッチ結果の分類
const (
	OutcomeOK         = "ok"
	OutcomeTimeout    = "timeout"
	OutcomeHTTPError  = "http_error"
	OutcomeParseError = "parse_error"
	OutcomeNetwork    = "network_error"
)

// Recorder はサービス層から利用するメトリクス記録のインターフェース。
type Recorder interface {
	RecordNewsFetch(outcome string, duration time.Duration)
	RecordUpstreamStatus(statusCode int)
	RecordFXFetch(ok bool)
	RecordLogin(ok bool)
	RecordSettingsSave(collection string, ok bool)
}

// Collector はPrometheusメトリクスを収集するRecorderの実装。
type Collector struct {
	newsFetch      *prometheus.CounterVec
	newsLatency    prometheus.Histogram
	upstreamStatus *prometheus.CounterVec
	fxFetch        *prometheus.CounterVec
	login          *prometheus.CounterVec
	settingsSave   *prometheus.CounterVec
}

// NewCollector はCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		newsFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_fetch_total",
			Help:      "キーワード単位のニュースフィード取得数（結果別）",
		}, []string{"outcome"}),
		newsLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "news_fetch_duration_seconds",
			Help:      "ニュースフィード取得の所要時間（秒）",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
		}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_http_status_total",
			Help:      "外部フィードのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		fxFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fx_fetch_total",
			Help:      "為替レート取得数（結果別）",
		}, []string{"result"}),
		login: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "在庫管理ログインの試行数（結果別）",
		}, []string{"result"}),
		settingsSave: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_save_total",
			Help:      "設定保存数（コレクション・結果別）",
		}, []string{"collection", "result"}),
	}

	reg.MustRegister(
		c.newsFetch,
		c.newsLatency,
		c.upstreamStatus,
		c.fxFetch,
		c.login,
		c.settingsSave,
	)

	return c
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordNewsFetch はキーワード1件分の取得結果と所要時間を記録する。
func (c *Collector) RecordNewsFetch(outcome string, duration time.Duration) {
	c.newsFetch.WithLabelValues(outcome).Inc()
	c.newsLatency.Observe(duration.Seconds())
}

// RecordUpstreamStatus は外部フィードのHTTPステータスコードを記録する。
func (c *Collector) RecordUpstreamStatus(statusCode int) {
	c.upstreamStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFXFetch は為替レート取得の成否を記録する。
func (c *Collector) RecordFXFetch(ok bool) {
	c.fxFetch.WithLabelValues(result(ok)).Inc()
}

// RecordLogin はログイン試行の成否を記録する。
func (c *Collector) RecordLogin(ok bool) {
	c.login.WithLabelValues(result(ok)).Inc()
}

// RecordSettingsSave は設定保存の成否を記録する。
func (c *Collector) RecordSettingsSave(collection string, ok bool) {
	c.settingsSave.WithLabelValues(collection, result(ok)).Inc()
}

// Nop は何も記録しないRecorder。メトリクスを使用しない構成やテストで使用する。
type Nop struct{}

func (Nop) RecordNewsFetch(string, time.Duration) {}
func (Nop) RecordUpstreamStatus(int)              {}
func (Nop) RecordFXFetch(bool)                    {}
func (Nop) RecordLogin(bool)                      {}
func (Nop) RecordSettingsSave(string, bool)       {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
