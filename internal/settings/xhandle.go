package settings

import (
	"net/url"
	"strings"

	"github.com/uhot33-create/MyPortal/internal/model"
)

// NormalizeUsername は先頭の@を1つ取り除き、前後の空白を除いたXのユーザー名を返す。
func NormalizeUsername(input string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), "@"))
}

// UsernameFromProfileURL はプロフィールURL（例: https://x.com/golang/）の
// 最初のパス要素をユーザー名として返す。絶対URLでない場合やパスが空の場合はfalseを返す。
func UsernameFromProfileURL(profileURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(profileURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg == "" {
			continue
		}
		name := NormalizeUsername(seg)
		return name, name != ""
	}
	return "", false
}

// ResolveHandle はXターゲット設定から埋め込みに使うユーザー名を解決する。
// usernameを優先し、無ければprofileUrlから取り出す。
func ResolveHandle(t model.XTargetSetting) (string, bool) {
	if t.Username != "" {
		name := NormalizeUsername(t.Username)
		return name, name != ""
	}
	if t.ProfileURL != "" {
		return UsernameFromProfileURL(t.ProfileURL)
	}
	return "", false
}
