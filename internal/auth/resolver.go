package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/issuetracker/internal/model"
)

// SessionStore はセッションの発行・解決・失効を行う。
type SessionStore interface {
	Create(ctx context.Context, userID string) (*model.Session, error)
	Resolve(ctx context.Context, id string) (string, bool)
	Revoke(ctx context.Context, id string) error
}

// SessionTransport はクライアントとの間でセッションIDを受け渡す。
type SessionTransport interface {
	Read(r *http.Request) string
	Set(w http.ResponseWriter, session *model.Session)
	Clear(w http.ResponseWriter)
}

// UserFinder はIDでユーザーを取得する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Resolver はリクエストのセッションCookieから現在ユーザーを解決する。
type Resolver struct {
	sessions  SessionStore
	users     UserFinder
	transport SessionTransport
}

// NewResolver はResolverを生成する。
func NewResolver(sessions SessionStore, users UserFinder, transport SessionTransport) *Resolver {
	return &Resolver{sessions: sessions, users: users, transport: transport}
}

// CurrentUser は現在のユーザーを返す。未認証の場合はnilを返す。
// 結果はscopeに記憶され、同じリクエスト内の2回目以降の呼び出しでは再問い合わせしない。
// セッションがない・無効・期限切れ、ユーザーが存在しない、取得に失敗した場合はいずれもnilを返す。
func (r *Resolver) CurrentUser(ctx context.Context, scope *RequestScope) *model.User {
	if scope == nil {
		return nil
	}

	scope.mu.Lock()
	defer scope.mu.Unlock()

	if scope.resolved {
		return scope.user
	}

	scope.user = r.lookup(ctx, scope.R)
	scope.resolved = true
	return scope.user
}

func (r *Resolver) lookup(ctx context.Context, req *http.Request) *model.User {
	if req == nil {
		return nil
	}

	sessionID := r.transport.Read(req)
	if sessionID == "" {
		return nil
	}

	userID, ok := r.sessions.Resolve(ctx, sessionID)
	if !ok {
		return nil
	}

	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		slog.Error("failed to get current user",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return user
}
