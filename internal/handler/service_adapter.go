package handler

import (
	"context"
	"time"

	"github.com/hitoshi/issuetracker/internal/auth"
	"github.com/hitoshi/issuetracker/internal/issue"
	"github.com/hitoshi/issuetracker/internal/model"
)

// issueOwnerResponse はIssueにJOINされた作成者のレスポンス。
type issueOwnerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// issueResponse はIssueのAPIレスポンス。
type issueResponse struct {
	ID          int64               `json:"id"`
	Title       string              `json:"title"`
	Description *string             `json:"description"`
	Status      string              `json:"status"`
	Priority    string              `json:"priority"`
	UserID      string              `json:"userId"`
	CreatedAt   time.Time           `json:"createdAt"`
	User        *issueOwnerResponse `json:"user,omitempty"`
}

// IssueServiceAdapter は issue.Service を IssueServiceInterface に適合させるアダプタ。
type IssueServiceAdapter struct {
	svc *issue.Service
}

// NewIssueServiceAdapter はIssueServiceAdapterを生成する。
func NewIssueServiceAdapter(svc *issue.Service) *IssueServiceAdapter {
	return &IssueServiceAdapter{svc: svc}
}

// Create はIssue作成アクションに委譲する。
func (a *IssueServiceAdapter) Create(ctx context.Context, scope *auth.RequestScope, in issue.CreateInput) model.ActionResult {
	return a.svc.Create(ctx, scope, in)
}

// Update はIssue更新アクションに委譲する。
func (a *IssueServiceAdapter) Update(ctx context.Context, scope *auth.RequestScope, id int64, in issue.UpdateInput) model.ActionResult {
	return a.svc.Update(ctx, scope, id, in)
}

// Delete はIssue削除アクションに委譲する。
func (a *IssueServiceAdapter) Delete(ctx context.Context, scope *auth.RequestScope, id int64) model.ActionResult {
	return a.svc.Delete(ctx, scope, id)
}

// ListIssues はIssue一覧をhandlerレスポンス型で返す。
func (a *IssueServiceAdapter) ListIssues(ctx context.Context) ([]issueResponse, error) {
	issues, err := a.svc.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]issueResponse, len(issues))
	for i, is := range issues {
		results[i] = toIssueResponse(is)
	}
	return results, nil
}

// GetIssue はIssueをhandlerレスポンス型で返す。見つからない場合はnilを返す。
func (a *IssueServiceAdapter) GetIssue(ctx context.Context, id int64) (*issueResponse, error) {
	is, err := a.svc.Get(ctx, id)
	if err != nil || is == nil {
		return nil, err
	}
	resp := toIssueResponse(is)
	return &resp, nil
}

// CreateIssueFromAPI は読み取りAPIからIssueを作成しhandlerレスポンス型で返す。
func (a *IssueServiceAdapter) CreateIssueFromAPI(ctx context.Context, in issue.APICreateInput) (*issueResponse, error) {
	is, err := a.svc.CreateFromAPI(ctx, in)
	if err != nil {
		return nil, err
	}
	resp := toIssueResponse(is)
	return &resp, nil
}

// toIssueResponse はドメインのIssueをhandlerのレスポンス型に変換する。
func toIssueResponse(is *model.Issue) issueResponse {
	resp := issueResponse{
		ID:          is.ID,
		Title:       is.Title,
		Description: is.Description,
		Status:      string(is.Status),
		Priority:    string(is.Priority),
		UserID:      is.UserID,
		CreatedAt:   is.CreatedAt,
	}
	if is.Owner != nil {
		resp.User = &issueOwnerResponse{ID: is.Owner.ID, Email: is.Owner.Email}
	}
	return resp
}
