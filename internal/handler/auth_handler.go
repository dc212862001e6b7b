// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/issuetracker/internal/auth"
	"github.com/hitoshi/issuetracker/internal/middleware"
	"github.com/hitoshi/issuetracker/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignIn(ctx context.Context, scope *auth.RequestScope, in auth.SignInInput) model.ActionResult
	SignUp(ctx context.Context, scope *auth.RequestScope, in auth.SignUpInput) model.ActionResult
	SignOut(ctx context.Context, scope *auth.RequestScope) model.ActionResult
	ForgetSession(scope *auth.RequestScope)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	SignInPath string // サインアウト後のリダイレクト先
}

// AuthHandler はサインイン・サインアップ・サインアウトのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	resolver middleware.CurrentUserResolver
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, resolver middleware.CurrentUserResolver, config AuthHandlerConfig) *AuthHandler {
	if config.SignInPath == "" {
		config.SignInPath = "/signin"
	}
	return &AuthHandler{
		service:  service,
		resolver: resolver,
		config:   config,
	}
}

// meResponse は現在ユーザーのAPIレスポンス。パスワードハッシュは含めない。
type meResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// SignIn はサインインフォームを処理する。
// POST /actions/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var in auth.SignInInput
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeInvalidRequest(w)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeInvalidRequest(w)
			return
		}
		in = auth.SignInInput{
			Email:    r.PostForm.Get("email"),
			Password: r.PostForm.Get("password"),
		}
	}

	writeActionResult(w, h.service.SignIn(r.Context(), auth.ScopeFromContext(r.Context()), in))
}

// SignUp はサインアップフォームを処理する。
// POST /actions/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var in auth.SignUpInput
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeInvalidRequest(w)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeInvalidRequest(w)
			return
		}
		in = auth.SignUpInput{
			Email:           r.PostForm.Get("email"),
			Password:        r.PostForm.Get("password"),
			ConfirmPassword: r.PostForm.Get("confirmPassword"),
		}
	}

	writeActionResult(w, h.service.SignUp(r.Context(), auth.ScopeFromContext(r.Context()), in))
}

// SignOut はセッションを破棄し、サインインページへリダイレクトする。
// POST /actions/signout
// 失効に失敗した場合もリダイレクトは必ず行う。
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	defer http.Redirect(w, r, h.config.SignInPath, http.StatusSeeOther)

	result := h.service.SignOut(r.Context(), auth.ScopeFromContext(r.Context()))
	if !result.Success {
		slog.Warn("sign out did not complete", slog.String("message", result.Message))
	}
}

// SignOutUnverified はCSRF検証に失敗したサインアウト要求を処理する。
// セッションは失効させずにCookieだけを削除し、サインインページへリダイレクトする。
func (h *AuthHandler) SignOutUnverified(w http.ResponseWriter, r *http.Request) {
	h.service.ForgetSession(auth.ScopeFromContext(r.Context()))
	http.Redirect(w, r, h.config.SignInPath, http.StatusSeeOther)
}

// Me は現在のログインユーザー情報を返す。
// GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := h.resolver.CurrentUser(r.Context(), auth.ScopeFromContext(r.Context()))
	if user == nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}
