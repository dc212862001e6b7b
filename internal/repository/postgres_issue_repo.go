package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/issuetracker/internal/model"
)

// PostgresIssueRepo はPostgreSQLを使用したIssueリポジトリ。
type PostgresIssueRepo struct {
	db *sql.DB
}

// NewPostgresIssueRepo はPostgresIssueRepoを生成する。
func NewPostgresIssueRepo(db *sql.DB) *PostgresIssueRepo {
	return &PostgresIssueRepo{db: db}
}

// issueWithOwnerColumns はusersをJOINしたIssue取得時のSELECT列。
const issueWithOwnerColumns = `i.id, i.title, i.description, i.status, i.priority, i.user_id, i.created_at, u.id, u.email`

// Create はIssueを作成する。
// id と created_at はDBが採番した値をissueに書き戻す。
func (r *PostgresIssueRepo) Create(ctx context.Context, issue *model.Issue) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO issues (title, description, status, priority, user_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		issue.Title, issue.Description, string(issue.Status), string(issue.Priority), issue.UserID,
	).Scan(&issue.ID, &issue.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}
	return nil
}

// ListWithOwner は作成者をJOINしたIssue一覧をcreated_at降順で返す。
func (r *PostgresIssueRepo) ListWithOwner(ctx context.Context) ([]*model.Issue, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+issueWithOwnerColumns+`
		 FROM issues i
		 LEFT JOIN users u ON u.id = i.user_id
		 ORDER BY i.created_at DESC, i.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	issues := make([]*model.Issue, 0)
	for rows.Next() {
		issue, err := scanIssueWithOwner(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate issues: %w", err)
	}

	return issues, nil
}

// FindByID は作成者をJOINしたIssueを取得する。見つからない場合はnilを返す。
func (r *PostgresIssueRepo) FindByID(ctx context.Context, id int64) (*model.Issue, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+issueWithOwnerColumns+`
		 FROM issues i
		 LEFT JOIN users u ON u.id = i.user_id
		 WHERE i.id = $1`,
		id,
	)

	issue, err := scanIssueWithOwner(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// Update は指定IDのIssueにpatchで指定されたフィールドだけを適用する。
// patchが空の場合は何もしない。
func (r *PostgresIssueRepo) Update(ctx context.Context, id int64, patch model.IssuePatch) error {
	query, args := buildIssueUpdate(id, patch)
	if query == "" {
		return nil
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}
	return nil
}

// DeleteByIDAndOwner はIDと所有者の両方が一致するIssueを削除する。
// 一致しない場合は0件削除となり、エラーにはしない。
func (r *PostgresIssueRepo) DeleteByIDAndOwner(ctx context.Context, id int64, ownerID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM issues WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
	}
	return nil
}

// buildIssueUpdate はpatchからUPDATE文と引数を構築する。
// 更新対象がない場合は空文字列を返す。
func buildIssueUpdate(id int64, patch model.IssuePatch) (string, []any) {
	var sets []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.DescriptionSet {
		add("description", patch.Description)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Priority != nil {
		add("priority", string(*patch.Priority))
	}

	if len(sets) == 0 {
		return "", nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE issues SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	return query, args
}

// scanIssueWithOwner はJOIN結果の1行をmodel.Issueに変換する。
// 作成者が存在しない行ではOwnerをnilにする。
func scanIssueWithOwner(row interface{ Scan(dest ...any) error }) (*model.Issue, error) {
	issue := &model.Issue{}
	var (
		description sql.NullString
		status      string
		priority    string
		ownerID     sql.NullString
		ownerEmail  sql.NullString
	)

	err := row.Scan(
		&issue.ID, &issue.Title, &description, &status, &priority, &issue.UserID, &issue.CreatedAt,
		&ownerID, &ownerEmail,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan issue: %w", err)
	}

	if description.Valid {
		d := description.String
		issue.Description = &d
	}
	issue.Status = model.IssueStatus(status)
	issue.Priority = model.IssuePriority(priority)
	if ownerID.Valid {
		issue.Owner = &model.IssueOwner{ID: ownerID.String, Email: ownerEmail.String}
	}

	return issue, nil
}

// compile-time interface check
var _ IssueRepository = (*PostgresIssueRepo)(nil)
