package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// VerifiedToken は検証済みIDトークンから取り出した情報。
type VerifiedToken struct {
	UID   string
	Email string
}

// TokenVerifier はIDトークンを検証するインターフェース。
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*VerifiedToken, error)
}

// FederatedTokenStrategy はAuthorization: Bearer <IDトークン> による認証。
type FederatedTokenStrategy struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewFederatedTokenStrategy はFederatedTokenStrategyを生成する。
func NewFederatedTokenStrategy(verifier TokenVerifier, logger *slog.Logger) *FederatedTokenStrategy {
	return &FederatedTokenStrategy{verifier: verifier, logger: logger}
}

// BearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func BearerToken(r *http.Request) (string, bool) {
	raw := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(raw, " ")
	if !ok || scheme != "Bearer" {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate はStrategyを実装する。
// 検証失敗（期限切れ・署名不正・検証先への通信失敗を含む）は全て未認証として扱う。
func (s *FederatedTokenStrategy) Authenticate(r *http.Request) (*Principal, error) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}

	verified, err := s.verifier.VerifyIDToken(r.Context(), token)
	if err != nil {
		s.logger.Info("IDトークンの検証に失敗しました",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	return &Principal{Subject: verified.UID, Email: verified.Email, Method: MethodFederatedToken}, nil
}

// compile-time interface check
var _ Strategy = (*FederatedTokenStrategy)(nil)
