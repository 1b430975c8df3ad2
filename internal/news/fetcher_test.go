package news

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/uhot33-create/MyPortal/internal/metrics"
	"github.com/uhot33-create/MyPortal/internal/model"
	"github.com/uhot33-create/MyPortal/internal/security"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newTestFetcher は取得先をテストサーバーに向けたFetcherを生成する。
func newTestFetcher(t *testing.T, server *httptest.Server, timeout time.Duration) (*Fetcher, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	f := NewFetcher(server.Client(), nil, security.NewTextSanitizer(), metrics.Nop{}, newTestLogger(&buf), timeout, 0)
	f.feedURL = func(s model.NewsKeywordSetting) string {
		return server.URL + "/" + s.ID
	}
	return f, &buf
}

func rssWithItems(n int, prefix string, newestDay int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`)
	for i := 0; i < n; i++ {
		day := newestDay - i
		fmt.Fprintf(&b, `<item><title>%s %d</title><link>https://example.com/%s/%d</link><pubDate>%s</pubDate></item>`,
			prefix, i, prefix, i, time.Date(2025, 3, day, 12, 0, 0, 0, time.UTC).Format(time.RFC1123Z))
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestFetcher_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "MyPortal/1.0" {
			t.Errorf("User-Agent = %q, want MyPortal/1.0", ua)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssWithItems(3, "go", 20)))
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, server, time.Second)
	got := f.Fetch(context.Background(), model.NewsKeywordSetting{ID: "k1", Keyword: "go", Limit: 2})

	if got.Error != "" {
		t.Fatalf("Error = %q, want empty", got.Error)
	}
	if got.KeywordID != "k1" || got.Keyword != "go" {
		t.Errorf("result identity = %s/%s", got.KeywordID, got.Keyword)
	}
	if len(got.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2 (limit)", len(got.Items))
	}
	if got.Items[0].Link != "https://example.com/go/0" {
		t.Errorf("first = %s, want newest", got.Items[0].Link)
	}
	if got.Items[0].Source != "go" {
		t.Errorf("source = %q, want keyword", got.Items[0].Source)
	}
}

// limit=0は既定の5件として扱われる
func TestFetcher_Fetch_DefaultLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssWithItems(8, "x", 20)))
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, server, time.Second)
	got := f.Fetch(context.Background(), model.NewsKeywordSetting{ID: "k", Keyword: "x"})
	if len(got.Items) != 5 {
		t.Errorf("len(Items) = %d, want 5", len(got.Items))
	}
}

func TestFetcher_Fetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f, buf := newTestFetcher(t, server, time.Second)
	got := f.Fetch(context.Background(), model.NewsKeywordSetting{ID: "k", Keyword: "x"})

	if got.Error != "HTTP 503" {
		t.Errorf("Error = %q, want HTTP 503", got.Error)
	}
	if got.Items == nil || len(got.Items) != 0 {
		t.Errorf("Items = %#v, want empty non-nil", got.Items)
	}
	if !strings.Contains(buf.String(), "ニュースフィードの取得に失敗しました") {
		t.Errorf("expected warning log, got %s", buf.String())
	}
}

// 応答が返らないフィードはタイムアウトのエラー結果となる
func TestFetcher_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	f, _ := newTestFetcher(t, server, 50*time.Millisecond)
	start := time.Now()
	got := f.Fetch(context.Background(), model.NewsKeywordSetting{ID: "slow", Keyword: "slow"})

	if got.Error != "timeout after 50ms" {
		t.Errorf("Error = %q, want timeout after 50ms", got.Error)
	}
	if len(got.Items) != 0 {
		t.Errorf("Items = %v, want empty", got.Items)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Fetch took %v, want bounded by timeout", elapsed)
	}
}

func TestFetcher_Fetch_ParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><item><title>broken`))
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, server, time.Second)
	got := f.Fetch(context.Background(), model.NewsKeywordSetting{ID: "k", Keyword: "x"})
	if got.Error == "" {
		t.Error("expected parse error")
	}
	if len(got.Items) != 0 {
		t.Errorf("Items = %v, want empty", got.Items)
	}
}

func TestFetcher_Fetch_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	f, _ := newTestFetcher(t, server, time.Second)
	server.Close()

	got := f.Fetch(context.Background(), model.NewsKeywordSetting{ID: "k", Keyword: "x"})
	if got.Error == "" || strings.HasPrefix(got.Error, "timeout") {
		t.Errorf("Error = %q, want network error", got.Error)
	}
}

type stubValidator struct {
	err   error
	calls int
}

func (s *stubValidator) ValidateURL(string) error {
	s.calls++
	return s.err
}

// rssUrlの上書き先が拒否された場合はリクエストを送らずエラー結果となる
func TestFetcher_Fetch_OverrideRejected(t *testing.T) {
	hit := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, server, time.Second)
	v := &stubValidator{err: errors.New("unsafe url: address 10.0.0.1")}
	f.validator = v

	got := f.Fetch(context.Background(), model.NewsKeywordSetting{ID: "k", Keyword: "x", RSSURL: "http://10.0.0.1/feed"})
	if got.Error != "unsafe url: address 10.0.0.1" {
		t.Errorf("Error = %q", got.Error)
	}
	if hit {
		t.Error("request should not reach the server")
	}

	// 検索フィード（rssUrl未設定）は検証しない
	f.Fetch(context.Background(), model.NewsKeywordSetting{ID: "k2", Keyword: "y"})
	if v.calls != 1 {
		t.Errorf("validator calls = %d, want 1", v.calls)
	}
}

func TestFetcher_Fetch_BodyCapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssWithItems(50, "big", 28)))
	}))
	defer server.Close()

	var buf bytes.Buffer
	f := NewFetcher(server.Client(), nil, security.NewTextSanitizer(), nil, newTestLogger(&buf), time.Second, 256)
	f.feedURL = func(model.NewsKeywordSetting) string { return server.URL }

	got := f.Fetch(context.Background(), model.NewsKeywordSetting{ID: "k", Keyword: "big"})
	if got.Error == "" {
		t.Error("expected error for truncated document")
	}
}

func TestNewFetcher_Defaults(t *testing.T) {
	var buf bytes.Buffer
	f := NewFetcher(http.DefaultClient, nil, security.NewTextSanitizer(), nil, newTestLogger(&buf), 0, 0)
	if f.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", f.timeout, DefaultTimeout)
	}
	if f.maxBodySize != DefaultMaxBodySize {
		t.Errorf("maxBodySize = %d, want %d", f.maxBodySize, DefaultMaxBodySize)
	}
}
