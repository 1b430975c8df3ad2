package news

import (
	"testing"

	"github.com/uhot33-create/MyPortal/internal/model"
)

func TestBuildSearchURL(t *testing.T) {
	tests := []struct {
		keyword string
		want    string
	}{
		{
			keyword: "golang",
			want:    "https://news.google.com/rss/search?q=golang&hl=ja&gl=JP&ceid=JP:ja",
		},
		{
			keyword: "  生成 AI  ",
			want:    "https://news.google.com/rss/search?q=%E7%94%9F%E6%88%90%20AI&hl=ja&gl=JP&ceid=JP:ja",
		},
		{
			keyword: "a&b=c",
			want:    "https://news.google.com/rss/search?q=a%26b%3Dc&hl=ja&gl=JP&ceid=JP:ja",
		},
	}
	for _, tt := range tests {
		if got := BuildSearchURL(tt.keyword); got != tt.want {
			t.Errorf("BuildSearchURL(%q) = %q, want %q", tt.keyword, got, tt.want)
		}
	}
}

func TestFeedURL_OverrideWins(t *testing.T) {
	s := model.NewsKeywordSetting{Keyword: "golang", RSSURL: "  https://example.com/feed.xml "}
	if got := FeedURL(s); got != "https://example.com/feed.xml" {
		t.Errorf("FeedURL() = %q, want trimmed override", got)
	}

	s.RSSURL = "   "
	if got := FeedURL(s); got != BuildSearchURL("golang") {
		t.Errorf("FeedURL() = %q, want search url", got)
	}
}

func TestEffectiveLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 5},
		{-3, 1},
		{1, 1},
		{7, 7},
		{20, 20},
	}
	for _, tt := range tests {
		if got := EffectiveLimit(tt.in); got != tt.want {
			t.Errorf("EffectiveLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
