package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/issuetracker/internal/issue"
)

// 読み取りAPIのメッセージ。エラーの詳細はログにのみ記録し、レスポンスには含めない。
const (
	msgIssueAdded        = "Issue Added successfully"
	msgIssueNotRetrieved = "Could not retrieve the issue"
	msgInvalidBody       = "Request body must be valid JSON"
	msgListFailed        = "Unknown error occurred while retrieving issues"
	msgAddFailed         = "Unknown error occurred while adding a new issue"
	msgGetFailed         = "Unknown error occurred while retrieving an issue"
)

// APIHandler は外部クライアント向けの読み取りAPI（/issue）のHTTPハンドラー。
// 認証は要求しない。
type APIHandler struct {
	service IssueServiceInterface
}

// NewAPIHandler はAPIHandlerを生成する。
func NewAPIHandler(service IssueServiceInterface) *APIHandler {
	return &APIHandler{service: service}
}

// messageResponse は読み取りAPIのメッセージのみのレスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// issueCreatedResponse は読み取りAPIでのIssue作成レスポンス。
type issueCreatedResponse struct {
	Message string        `json:"message"`
	Issue   issueResponse `json:"issue"`
}

// ListIssues はIssue一覧を返す。
// GET /issue
func (h *APIHandler) ListIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := h.service.ListIssues(r.Context())
	if err != nil {
		slog.Error("read api: failed to list issues", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msgListFailed})
		return
	}

	writeJSON(w, http.StatusOK, issueListResponse{Data: issues})
}

// CreateIssue はIssueを作成する。
// POST /issue
func (h *APIHandler) CreateIssue(w http.ResponseWriter, r *http.Request) {
	var in issue.APICreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgInvalidBody})
		return
	}

	created, err := h.service.CreateIssueFromAPI(r.Context(), in)
	if err != nil {
		var inputErr *issue.InputError
		if errors.As(err, &inputErr) {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: inputErr.Message})
			return
		}
		slog.Error("read api: failed to add issue", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msgAddFailed})
		return
	}

	writeJSON(w, http.StatusCreated, issueCreatedResponse{Message: msgIssueAdded, Issue: *created})
}

// GetIssue はIssueを返す。
// GET /issue/{id}
func (h *APIHandler) GetIssue(w http.ResponseWriter, r *http.Request) {
	id, _, ok := parseIssueID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: msgIssueNotRetrieved})
		return
	}

	resp, err := h.service.GetIssue(r.Context(), id)
	if err != nil {
		slog.Error("read api: failed to get issue",
			slog.Int64("issue_id", id),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msgGetFailed})
		return
	}
	if resp == nil {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: msgIssueNotRetrieved})
		return
	}

	writeJSON(w, http.StatusOK, issueDetailResponse{Data: *resp})
}
