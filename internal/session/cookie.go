package session

import (
	"net/http"
	"time"

	"github.com/hitoshi/issuetracker/internal/model"
)

// CookieName はセッションIDを保持するCookie名。
const CookieName = "session_id"

// CookieTransport はセッションIDをHTTP Only Cookieで受け渡す。
type CookieTransport struct {
	Domain string
	Secure bool
	// MaxAge はCookieの有効期間。セッションの有効期間と揃える。
	MaxAge time.Duration
}

// Read はリクエストのCookieからセッションIDを取得する。ない場合は空文字列を返す。
func (t CookieTransport) Read(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Set はセッションIDをCookieに設定する。
func (t CookieTransport) Set(w http.ResponseWriter, sess *model.Session) {
	maxAge := int(t.MaxAge / time.Second)
	if maxAge <= 0 {
		maxAge = int(time.Until(sess.ExpiresAt) / time.Second)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		Domain:   t.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear はセッションCookieを削除する。
func (t CookieTransport) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   t.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
