package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はフィード由来の文字列からHTMLを取り除き、表示用のプレーンテキストにする。
// 記事タイトルはブラウザ側でテキストとして描画されるため、タグは一切残さない。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyを使うTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Plain はタグを除去し、文字参照を展開し、連続する空白を1つにまとめる。
// bluemondayは出力をエスケープするため、最後にUnescapeStringで元の文字に戻す。
func (s *TextSanitizer) Plain(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := s.policy.Sanitize(raw)
	return strings.Join(strings.Fields(html.UnescapeString(stripped)), " ")
}
