package model

import "time"

// RssArticle はフィードから抽出した記事を表す。永続化はしない。
// Linkは複数キーワード間の重複排除キーとして使用する。
type RssArticle struct {
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	PublishedAt *time.Time `json:"publishedAt"`
	Source      string     `json:"source"`
}

// SortTime は並び替え用の公開日時を返す。
// 公開日時が不明な記事はUnixエポックとして扱い、最も古い記事として並ぶ。
func (a RssArticle) SortTime() time.Time {
	if a.PublishedAt == nil {
		return time.Unix(0, 0)
	}
	return *a.PublishedAt
}

// FetchResult はキーワード1件分のフェッチ結果を表す。
// Errorが空でない場合、Itemsは常に空である。
type FetchResult struct {
	KeywordID string       `json:"keywordId"`
	Keyword   string       `json:"keyword"`
	Items     []RssArticle `json:"items"`
	Error     string       `json:"error,omitempty"`
}
