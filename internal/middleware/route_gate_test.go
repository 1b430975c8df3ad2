package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/uhot33-create/MyPortal/internal/auth"
)

type sessionStubStrategy struct {
	authenticated bool
}

func (s sessionStubStrategy) Authenticate(*http.Request) (*auth.Principal, error) {
	if !s.authenticated {
		return nil, fmt.Errorf("no session: %w", auth.ErrUnauthenticated)
	}
	return &auth.Principal{Subject: "cupnudle", Method: auth.MethodSharedSecret}, nil
}

func TestRouteGate(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		authenticated bool
		wantStatus    int
		wantLocation  string
	}{
		{"unauth top", "/cupnudle", false, http.StatusTemporaryRedirect, "/cupnudle/login"},
		{"unauth nested", "/cupnudle/stocks", false, http.StatusTemporaryRedirect, "/cupnudle/login"},
		{"unauth login", "/cupnudle/login", false, http.StatusOK, ""},
		{"unauth login nested", "/cupnudle/login/help", false, http.StatusOK, ""},
		{"auth top", "/cupnudle", true, http.StatusOK, ""},
		{"auth login", "/cupnudle/login", true, http.StatusTemporaryRedirect, "/cupnudle"},
		{"auth login nested", "/cupnudle/login/x", true, http.StatusTemporaryRedirect, "/cupnudle"},
		{"loginx is not login", "/cupnudle/loginx", false, http.StatusTemporaryRedirect, "/cupnudle/login"},
		{"other path", "/settings", false, http.StatusOK, ""},
		{"prefix lookalike", "/cupnudles", false, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewRouteGate(sessionStubStrategy{authenticated: tt.authenticated})(okHandler())

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
		})
	}
}
