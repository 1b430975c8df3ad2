// Package news はキーワードごとのニュースフィード取得と、複数キーワードの結果の統合を提供する。
package news

import (
	"net/url"
	"strings"

	"github.com/uhot33-create/MyPortal/internal/model"
)

// searchEndpoint はGoogleニュースのRSS検索エンドポイント。
const searchEndpoint = "https://news.google.com/rss/search"

// BuildSearchURL はキーワードからGoogleニュース（日本語・日本向け）の検索フィードURLを組み立てる。
// キーワードは前後の空白を除いてからエンコードする。空白は%20で表す。
func BuildSearchURL(keyword string) string {
	q := strings.ReplaceAll(url.QueryEscape(strings.TrimSpace(keyword)), "+", "%20")
	return searchEndpoint + "?q=" + q + "&hl=ja&gl=JP&ceid=JP:ja"
}

// FeedURL は設定の取得先URLを返す。rssUrlが設定されていればそれを優先する。
func FeedURL(s model.NewsKeywordSetting) string {
	if override := strings.TrimSpace(s.RSSURL); override != "" {
		return override
	}
	return BuildSearchURL(s.Keyword)
}

// EffectiveLimit はキーワードごとの取得件数を返す。0は既定値、1未満は1として扱う。
func EffectiveLimit(limit int) int {
	if limit == 0 {
		limit = model.DefaultNewsLimit
	}
	if limit < 1 {
		return 1
	}
	return limit
}
