// Package session はセッションIDの発行・解決・失効と、Cookieによる受け渡しを提供する。
// Storeはトランスポート非依存で、Cookieの設定・削除は呼び出し側がCookieTransportで行う。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/issuetracker/internal/model"
	"github.com/hitoshi/issuetracker/internal/repository"
)

// idBytes はセッションIDの乱数バイト数。hexエンコード後は64文字になる。
const idBytes = 32

// DefaultMaxAge はセッションの既定有効期間（7日）。
const DefaultMaxAge = 7 * 24 * time.Hour

// Store はセッションの発行・解決・失効を行う。
type Store struct {
	repo   repository.SessionRepository
	maxAge time.Duration
	now    func() time.Time
}

// NewStore はStoreを生成する。maxAgeが0以下の場合はDefaultMaxAgeを使用する。
func NewStore(repo repository.SessionRepository, maxAge time.Duration) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{
		repo:   repo,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// MaxAge はセッションの有効期間を返す。
func (s *Store) MaxAge() time.Duration {
	return s.maxAge
}

// Create は指定ユーザーのセッションを発行する。
func (s *Store) Create(ctx context.Context, userID string) (*model.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	id, err := generateID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	sess := &model.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: now.Add(s.maxAge),
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	slog.Info("session created", slog.String("user_id", userID))
	return sess, nil
}

// Resolve はセッションIDからユーザーIDを解決する。
// 空・不正形式・期限切れ・失効済みのIDはすべて("", false)を返し、エラーを呼び出し側に返さない。
func (s *Store) Resolve(ctx context.Context, id string) (string, bool) {
	if !validID(id) {
		return "", false
	}

	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		slog.Error("failed to resolve session", slog.String("error", err.Error()))
		return "", false
	}
	if sess == nil {
		return "", false
	}
	// DB側の条件とは別に、アプリ側の時刻でも期限を確認する
	if !sess.ExpiresAt.After(s.now()) {
		return "", false
	}

	return sess.UserID, true
}

// Revoke はセッションを失効させる。存在しないIDや空のIDは何もしない。
func (s *Store) Revoke(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// generateID は暗号論的に安全なランダムなセッションIDを生成する。
func generateID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// validID はidがgenerateIDの出力形式（小文字hex 64文字）かを判定する。
func validID(id string) bool {
	if len(id) != idBytes*2 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
