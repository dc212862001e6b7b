// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/issuetracker/internal/auth"
	"github.com/hitoshi/issuetracker/internal/model"
)

// CurrentUserResolver は現在ユーザーの解決に必要なインターフェース。
type CurrentUserResolver interface {
	CurrentUser(ctx context.Context, scope *auth.RequestScope) *model.User
}

// NewRequestScopeMiddleware はリクエストごとにauth.RequestScopeを生成し、
// リクエストコンテキストに格納するミドルウェアを返す。
// スコープはリクエストの終了とともに破棄され、リクエスト間で共有されない。
func NewRequestScopeMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := auth.NewRequestScope(w, nil)
			r = r.WithContext(auth.WithScope(r.Context(), scope))
			scope.R = r
			next.ServeHTTP(w, r)
		})
	}
}

// NewRequireUserMiddleware は現在ユーザーを解決し、未認証リクエストに401を返すミドルウェアを返す。
// NewRequestScopeMiddlewareの内側で使用する。
func NewRequireUserMiddleware(resolver CurrentUserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := auth.ScopeFromContext(r.Context())
			if resolver.CurrentUser(r.Context(), scope) == nil {
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext はリクエストスコープで解決済みのユーザーIDを取得する。
// 未解決または未認証の場合はエラーを返す。このメソッド自体は解決を行わない。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID := auth.ScopeFromContext(ctx).UserID()
	if userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}
