package news

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"

	"github.com/uhot33-create/MyPortal/internal/model"
)

const noTitle = "(no title)"

// entry はフィード形式ごとの記事要素。rssEntry と atomEntry のみが実装する。
type entry interface {
	feedEntry()
}

type rssEntry struct{ item *rss.Item }

// atomEntry のtextLinksはhrefを持たないlink要素の本文（出現順）。
type atomEntry struct {
	entry     *atom.Entry
	textLinks []string
}

func (rssEntry) feedEntry()  {}
func (atomEntry) feedEntry() {}

// fields は記事要素から抽出した正規化前の値。
type fields struct {
	title     string
	link      string
	published *time.Time
}

// extract は形式ごとの抽出処理を呼び分ける。
func extract(e entry) fields {
	switch v := e.(type) {
	case rssEntry:
		return fields{
			title:     v.item.Title,
			link:      rssLink(v.item),
			published: v.item.PubDateParsed,
		}
	case atomEntry:
		return fields{
			title:     v.entry.Title,
			link:      atomLink(v.entry.Links, v.textLinks),
			published: atomDate(v.entry),
		}
	default:
		return fields{}
	}
}

// rssLink は最初の空でないlink要素を返す。
// gofeedのItem.Linkは最後のlink要素を保持するため、Linksを先頭から見る。
func rssLink(it *rss.Item) string {
	for _, l := range it.Links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return strings.TrimSpace(it.Link)
}

// atomLink はhrefを持つ最初のlink要素のhrefを返す。
// hrefを持つ要素が無い場合は本文を持つ最初のlink要素の本文を返す。
func atomLink(links []*atom.Link, textLinks []string) string {
	for _, l := range links {
		if l != nil && l.Href != "" {
			return l.Href
		}
	}
	for _, t := range textLinks {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return ""
}

// atomLinkDoc はlink要素の本文を取り出すための最小構造。
// gofeedのAtomパーサーはlink要素の本文を捨てるため別途読む。
type atomLinkDoc struct {
	Entries []struct {
		Links []struct {
			Href string `xml:"href,attr"`
			Text string `xml:",chardata"`
		} `xml:"link"`
	} `xml:"entry"`
}

// atomTextLinks はentryごとのhref無しlink要素の本文を返す。
// 読み取りに失敗した場合はnilを返し、hrefのみで抽出する。
func atomTextLinks(body []byte) [][]string {
	var doc atomLinkDoc
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	if err := dec.Decode(&doc); err != nil {
		return nil
	}
	out := make([][]string, len(doc.Entries))
	for i, e := range doc.Entries {
		for _, l := range e.Links {
			if l.Href == "" && strings.TrimSpace(l.Text) != "" {
				out[i] = append(out[i], l.Text)
			}
		}
	}
	return out
}

// atomDate はupdatedを優先し、無ければpublishedを返す。
// updatedが存在して解釈できない場合はpublishedへフォールバックせず日時不明とする。
func atomDate(e *atom.Entry) *time.Time {
	if e.Updated != "" {
		return e.UpdatedParsed
	}
	return e.PublishedParsed
}

// parseEntries はフィード本文の形式を判定し、記事要素の列を返す。
// RSS 2.0 と Atom 以外の文書は記事0件として扱う。
func parseEntries(body []byte) ([]entry, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(body)) {
	case gofeed.FeedTypeRSS:
		feed, err := (&rss.Parser{}).Parse(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse rss: %w", err)
		}
		entries := make([]entry, 0, len(feed.Items))
		for _, it := range feed.Items {
			if it != nil {
				entries = append(entries, rssEntry{item: it})
			}
		}
		return entries, nil

	case gofeed.FeedTypeAtom:
		feed, err := (&atom.Parser{}).Parse(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse atom: %w", err)
		}
		// gofeedとencoding/xmlはどちらもentryを文書順に読むため、添字で対応付ける
		textLinks := atomTextLinks(body)
		entries := make([]entry, 0, len(feed.Entries))
		for i, e := range feed.Entries {
			if e == nil {
				continue
			}
			ae := atomEntry{entry: e}
			if i < len(textLinks) {
				ae.textLinks = textLinks[i]
			}
			entries = append(entries, ae)
		}
		return entries, nil

	default:
		return nil, nil
	}
}

// toArticles は記事要素を記事に変換する。リンクの無い要素は除外する。
func toArticles(entries []entry, source string, clean func(string) string) []model.RssArticle {
	articles := make([]model.RssArticle, 0, len(entries))
	for _, e := range entries {
		f := extract(e)
		if f.link == "" {
			continue
		}
		title := clean(f.title)
		if title == "" {
			title = noTitle
		}
		articles = append(articles, model.RssArticle{
			Title:       title,
			Link:        f.link,
			PublishedAt: f.published,
			Source:      source,
		})
	}
	return articles
}
