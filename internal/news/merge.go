package news

import "github.com/uhot33-create/MyPortal/internal/model"

// Merge は複数キーワードの取得結果を1つの記事リストにまとめる。
// 同じリンクの記事は入力順で最初に現れたものを採用する。エラーの結果は記事を持たない。
// 結果は公開日時の新しい順に並べ、max(1, globalLimit)件で切り詰める。
func Merge(results []model.FetchResult, globalLimit int) []model.RssArticle {
	seen := make(map[string]struct{})
	merged := []model.RssArticle{}

	for _, r := range results {
		for _, a := range r.Items {
			if _, ok := seen[a.Link]; ok {
				continue
			}
			seen[a.Link] = struct{}{}
			merged = append(merged, a)
		}
	}

	sortNewestFirst(merged)

	if globalLimit < 1 {
		globalLimit = 1
	}
	if len(merged) > globalLimit {
		merged = merged[:globalLimit]
	}
	return merged
}
