// Package auth はルートグループごとに選択する認証方式を提供する。
// 在庫管理サブアプリは固定IDとパスワードによる共有シークレットCookie、
// 設定・ポータルAPIはFirebase IDトークン（Bearer）で認証する。
package auth

import (
	"context"
	"errors"
	"net/http"
)

// ErrUnauthenticated は認証情報が無い、または無効な場合に返される。
var ErrUnauthenticated = errors.New("unauthenticated")

// 認証方式
const (
	MethodSharedSecret   = "shared_secret"
	MethodFederatedToken = "federated_token"
)

// Principal は認証済みのリクエスト主体。
// 共有シークレット方式では利用者を識別できないため、Subjectは固定値となる。
type Principal struct {
	Subject string
	Email   string
	Method  string
}

// Strategy はリクエストを認証するインターフェース。
// 認証できない場合はErrUnauthenticatedをラップしたエラーを返す。
type Strategy interface {
	Authenticate(r *http.Request) (*Principal, error)
}

type principalKey struct{}

// WithPrincipal はコンテキストに認証済み主体を格納する。
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext はコンテキストから認証済み主体を取り出す。
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
