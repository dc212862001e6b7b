package model

import (
	"errors"
	"fmt"
)

// ErrEmailTaken はメールアドレスの一意制約違反を表す。
// 書き込み時に競合が検出された場合にリポジトリが返す。
var ErrEmailTaken = errors.New("email already registered")

// APIError は統一エラーフォーマットを表す。
// アクションの結果フォーマットに載らないエラー（不正なリクエスト、404等）で使用する。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, issue, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInvalidIssueID = "INVALID_ISSUE_ID"
	ErrCodeIssueNotFound  = "ISSUE_NOT_FOUND"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeCSRFFailed     = "CSRF_FAILED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "Request body could not be parsed",
		Category: "validation",
	}
}

// NewInvalidIssueIDError は不正なIssue IDエラーを生成する。
func NewInvalidIssueIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidIssueID,
		Message:  fmt.Sprintf("Invalid issue id: %s", raw),
		Category: "validation",
	}
}

// NewIssueNotFoundError はIssue未検出エラーを生成する。
func NewIssueNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeIssueNotFound,
		Message:  fmt.Sprintf("Issue not found: %d", id),
		Category: "issue",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required",
		Category: "auth",
	}
}

// NewCSRFFailedError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFFailed,
		Message:  "CSRF token validation failed",
		Category: "auth",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "An internal error occurred",
		Category: "system",
	}
}
