package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/issuetracker/internal/model"
)

// ErrorResponseBody はAPIErrorのJSON表現。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// statusByCode はエラーコードごとのHTTPステータス。
var statusByCode = map[string]int{
	model.ErrCodeInvalidRequest: http.StatusBadRequest,
	model.ErrCodeInvalidIssueID: http.StatusBadRequest,
	model.ErrCodeIssueNotFound:  http.StatusNotFound,
	model.ErrCodeUnauthorized:   http.StatusUnauthorized,
	model.ErrCodeCSRFFailed:     http.StatusForbidden,
	model.ErrCodeInternal:       http.StatusInternalServerError,
}

// StatusFor はAPIErrorに対応するHTTPステータスを返す。未知のコードは500とする。
func StatusFor(apiErr *model.APIError) int {
	if apiErr == nil {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[apiErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteAPIError はコードから決まるステータスでAPIErrorを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	if apiErr == nil {
		apiErr = model.NewInternalError()
	}
	WriteErrorResponse(w, StatusFor(apiErr), apiErr)
}

// WriteErrorResponse はステータスを明示してAPIErrorを書き込む。
// エラーレスポンスはキャッシュさせない。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
	})
}

// WriteInternalServerError は詳細を含まない500レスポンスを書き込む。詳細は呼び出し側でログに残す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteAPIError(w, model.NewInternalError())
}
