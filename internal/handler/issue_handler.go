package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/issuetracker/internal/auth"
	"github.com/hitoshi/issuetracker/internal/issue"
	"github.com/hitoshi/issuetracker/internal/middleware"
	"github.com/hitoshi/issuetracker/internal/model"
)

// IssueServiceInterface はIssueハンドラーが必要とするサービスインターフェース。
type IssueServiceInterface interface {
	Create(ctx context.Context, scope *auth.RequestScope, in issue.CreateInput) model.ActionResult
	Update(ctx context.Context, scope *auth.RequestScope, id int64, in issue.UpdateInput) model.ActionResult
	Delete(ctx context.Context, scope *auth.RequestScope, id int64) model.ActionResult

	// ListIssues は作成者付きのIssue一覧を新しい順に返す。
	ListIssues(ctx context.Context) ([]issueResponse, error)
	// GetIssue は作成者付きのIssueを返す。見つからない場合はnilを返す。
	GetIssue(ctx context.Context, id int64) (*issueResponse, error)
	// CreateIssueFromAPI は認証なしでIssueを作成する。
	CreateIssueFromAPI(ctx context.Context, in issue.APICreateInput) (*issueResponse, error)
}

// IssueHandler はIssueアクションとページ用読み取りのHTTPハンドラー。
type IssueHandler struct {
	service IssueServiceInterface
}

// NewIssueHandler はIssueHandlerを生成する。
func NewIssueHandler(service IssueServiceInterface) *IssueHandler {
	return &IssueHandler{service: service}
}

// issueListResponse はIssue一覧のレスポンス。
type issueListResponse struct {
	Data []issueResponse `json:"data"`
}

// issueDetailResponse はIssue詳細のレスポンス。
type issueDetailResponse struct {
	Data issueResponse `json:"data"`
}

// Create はIssue作成アクションを処理する。
// POST /actions/issues
func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in issue.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeInvalidRequest(w)
		return
	}

	writeActionResult(w, h.service.Create(r.Context(), auth.ScopeFromContext(r.Context()), in))
}

// Update はIssue更新アクションを処理する。
// PATCH /actions/issues/{id}
func (h *IssueHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, raw, ok := parseIssueID(r)
	if !ok {
		middleware.WriteAPIError(w, model.NewInvalidIssueIDError(raw))
		return
	}

	var in issue.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeInvalidRequest(w)
		return
	}

	writeActionResult(w, h.service.Update(r.Context(), auth.ScopeFromContext(r.Context()), id, in))
}

// Delete はIssue削除アクションを処理する。
// DELETE /actions/issues/{id}
func (h *IssueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, raw, ok := parseIssueID(r)
	if !ok {
		middleware.WriteAPIError(w, model.NewInvalidIssueIDError(raw))
		return
	}

	writeActionResult(w, h.service.Delete(r.Context(), auth.ScopeFromContext(r.Context()), id))
}

// List はIssue一覧を返す。
// GET /issues
func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	issues, err := h.service.ListIssues(r.Context())
	if err != nil {
		slog.Error("failed to list issues", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, issueListResponse{Data: issues})
}

// Get は作成者付きのIssueを返す。
// GET /issues/{id}
func (h *IssueHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, raw, ok := parseIssueID(r)
	if !ok {
		middleware.WriteAPIError(w, model.NewInvalidIssueIDError(raw))
		return
	}

	resp, err := h.service.GetIssue(r.Context(), id)
	if err != nil {
		slog.Error("failed to get issue",
			slog.Int64("issue_id", id),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if resp == nil {
		middleware.WriteAPIError(w, model.NewIssueNotFoundError(id))
		return
	}

	writeJSON(w, http.StatusOK, issueDetailResponse{Data: *resp})
}
