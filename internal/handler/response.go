package handler

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/issuetracker/internal/middleware"
	"github.com/hitoshi/issuetracker/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeActionResult はアクションの結果をエンベロープのままJSONで返す。
// HTTPステータスは結果の分類から決める。
func writeActionResult(w http.ResponseWriter, result model.ActionResult) {
	writeJSON(w, statusForResult(result), result)
}

// statusForResult はアクション結果の分類をHTTPステータスコードにマッピングする。
func statusForResult(result model.ActionResult) int {
	switch result.Code {
	case model.ResultOK:
		return http.StatusOK
	case model.ResultInvalid:
		return http.StatusBadRequest
	case model.ResultUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// parseIssueID はURLパラメータ{id}からIssue IDを取り出す。正の整数以外は不正とする。
func parseIssueID(r *http.Request) (int64, string, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, raw, false
	}
	return id, raw, true
}

// isJSONRequest はリクエストボディがJSONかどうかを判定する。
func isJSONRequest(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}

func writeInvalidRequest(w http.ResponseWriter) {
	middleware.WriteAPIError(w, model.NewInvalidRequestError())
}
