package settings

import (
	"testing"

	"github.com/uhot33-create/MyPortal/internal/model"
)

func TestNormalizeUsername(t *testing.T) {
	tests := map[string]string{
		"golang":    "golang",
		"@golang":   "golang",
		"  @golang": "golang",
		"@@double":  "@double",
		"@":         "",
	}
	for in, want := range tests {
		if got := NormalizeUsername(in); got != want {
			t.Errorf("NormalizeUsername(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUsernameFromProfileURL(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "https://x.com/golang", want: "golang", wantOK: true},
		{in: "https://twitter.com/golang/status/123", want: "golang", wantOK: true},
		{in: "https://x.com//@golang/", want: "golang", wantOK: true},
		{in: "https://x.com/", wantOK: false},
		{in: "x.com/golang", wantOK: false},
		{in: "not a url", wantOK: false},
		{in: "", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := UsernameFromProfileURL(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("UsernameFromProfileURL(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestResolveHandle(t *testing.T) {
	if got, ok := ResolveHandle(model.XTargetSetting{Username: "@nhk_news"}); !ok || got != "nhk_news" {
		t.Errorf("username: got (%q, %v)", got, ok)
	}
	if got, ok := ResolveHandle(model.XTargetSetting{ProfileURL: "https://x.com/nhk_news"}); !ok || got != "nhk_news" {
		t.Errorf("profileUrl: got (%q, %v)", got, ok)
	}
	if _, ok := ResolveHandle(model.XTargetSetting{}); ok {
		t.Error("empty target should not resolve")
	}
}
