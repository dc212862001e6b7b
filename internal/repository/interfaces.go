// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/issuetracker/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	// メールアドレスは保存された値と大文字小文字を区別して比較する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが既に登録済みの場合はmodel.ErrEmailTakenを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
}

// IssueRepository はIssueデータの永続化インターフェース。
type IssueRepository interface {
	// Create はIssueを作成する。採番されたIDとcreated_atをissueに書き戻す。
	Create(ctx context.Context, issue *model.Issue) error

	// ListWithOwner は作成者をJOINしたIssue一覧をcreated_at降順で返す。
	ListWithOwner(ctx context.Context) ([]*model.Issue, error)

	// FindByID は作成者をJOINしたIssueを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Issue, error)

	// Update は指定IDのIssueにpatchのフィールドだけを適用する。
	// 所有者によるスコープは行わない。
	Update(ctx context.Context, id int64, patch model.IssuePatch) error

	// DeleteByIDAndOwner はIDと所有者の両方が一致するIssueを削除する。
	// 一致する行がない場合も0件削除としてエラーにしない。
	DeleteByIDAndOwner(ctx context.Context, id int64, ownerID string) error
}
