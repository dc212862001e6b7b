// Package auth はリクエストスコープ、現在ユーザーの解決、サインイン・サインアップ・サインアウトを提供する。
package auth

import (
	"context"
	"net/http"
	"sync"

	"github.com/hitoshi/issuetracker/internal/model"
)

type scopeKey struct{}

// RequestScope は1リクエストの間だけ有効なコンテキスト。
// リクエスト・レスポンスと、解決済みの現在ユーザーを保持する。
// リクエストごとにミドルウェアで生成し、リクエスト間で共有しない。
type RequestScope struct {
	W http.ResponseWriter
	R *http.Request

	mu       sync.Mutex
	resolved bool
	user     *model.User
}

// NewRequestScope はRequestScopeを生成する。
func NewRequestScope(w http.ResponseWriter, r *http.Request) *RequestScope {
	return &RequestScope{W: w, R: r}
}

// WithScope はscopeを保持したcontextを返す。
func WithScope(ctx context.Context, scope *RequestScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFromContext はcontextからRequestScopeを取得する。ない場合はnilを返す。
func ScopeFromContext(ctx context.Context) *RequestScope {
	scope, _ := ctx.Value(scopeKey{}).(*RequestScope)
	return scope
}

// UserID は解決済みの現在ユーザーのIDを返す。
// 未解決または未認証の場合は空文字列を返し、解決処理は行わない。
func (s *RequestScope) UserID() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// remember は現在ユーザーを記憶する。nilは「未認証として解決済み」を表す。
func (s *RequestScope) remember(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = true
	s.user = user
}
