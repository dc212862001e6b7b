package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/hitoshi/issuetracker/internal/model"
)

// CSRFトークンのCookie名・ヘッダー名・フォームフィールド名。
// CookieはJavaScriptから読めるようHttpOnlyにしない。
const (
	csrfCookieName   = "csrf_token"
	csrfHeaderName   = "X-CSRF-Token"
	csrfFormField    = "csrf_token"
	csrfCookieMaxAge = 24 * 60 * 60
	csrfTokenBytes   = 32
)

var (
	errCSRFNoCookie = errors.New("csrf cookie is missing")
	errCSRFNoToken  = errors.New("csrf token was not submitted")
	errCSRFMismatch = errors.New("csrf token does not match cookie")
)

// CSRFConfig はCSRFミドルウェアの設定。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
}

// csrfGuard はDouble Submit Cookie方式のトークン発行と照合を行う。
type csrfGuard struct {
	cfg CSRFConfig
}

// NewCSRFMiddleware はDouble Submit CookieによるCSRF対策ミドルウェアを返す。
//
// GET/HEAD/OPTIONSは照合せずに通し、トークンCookieがなければ発行する。
// それ以外のメソッドでは、CookieのトークンとX-CSRF-Tokenヘッダー
// （なければcsrf_tokenフォームフィールド）が一致しない限り403を返す。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	return NewCSRFMiddlewareWithFallback(config, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteAPIError(w, model.NewCSRFFailedError())
	}))
}

// NewCSRFMiddlewareWithFallback はNewCSRFMiddlewareと同じ検証を行い、
// 検証に失敗したリクエストをrejectedに渡す。rejectedの後にnextは呼ばれない。
func NewCSRFMiddlewareWithFallback(config CSRFConfig, rejected http.Handler) func(next http.Handler) http.Handler {
	g := csrfGuard{cfg: config}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if _, err := g.tokenFor(w, r); err != nil {
					slog.Error("failed to issue CSRF token", slog.String("error", err.Error()))
				}
			default:
				if err := g.verify(r); err != nil {
					slog.Warn("CSRF validation failed",
						slog.String("reason", err.Error()),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)
					rejected.ServeHTTP(w, r)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewCSRFTokenHandler は GET /api/csrf-token のハンドラーを返す。
// レスポンスは {"token": "..."}。
func NewCSRFTokenHandler(config CSRFConfig) http.Handler {
	g := csrfGuard{cfg: config}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := g.tokenFor(w, r)
		if err != nil {
			slog.Error("failed to issue CSRF token", slog.String("error", err.Error()))
			WriteInternalServerError(w)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		json.NewEncoder(w).Encode(struct {
			Token string `json:"token"`
		}{Token: token})
	})
}

// tokenFor はリクエストのCookieにあるトークンを返す。
// なければ新しく生成してSet-Cookieする。
func (g csrfGuard) tokenFor(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(csrfCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	token, err := generateCSRFToken()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   g.cfg.CookieDomain,
		MaxAge:   csrfCookieMaxAge,
		Secure:   g.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func (g csrfGuard) verify(r *http.Request) error {
	c, err := r.Cookie(csrfCookieName)
	if err != nil || c.Value == "" {
		return errCSRFNoCookie
	}

	submitted := r.Header.Get(csrfHeaderName)
	if submitted == "" {
		submitted = formToken(r)
	}
	if submitted == "" {
		return errCSRFNoToken
	}

	if subtle.ConstantTimeCompare([]byte(c.Value), []byte(submitted)) != 1 {
		return errCSRFMismatch
	}
	return nil
}

// formToken はフォーム送信の場合のみボディからトークンを読む。
// JSONボディは後続のハンドラーが読むため触らない。
func formToken(r *http.Request) string {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/x-www-form-urlencoded" && mediaType != "multipart/form-data" {
		return ""
	}
	return r.PostFormValue(csrfFormField)
}

func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
