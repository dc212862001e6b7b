package middleware

import (
	"net/http"
	"strconv"
)

// CORSConfig はCORSミドルウェアの設定。
type CORSConfig struct {
	AllowedOrigin    string
	AllowedMethods   string
	AllowedHeaders   string
	AllowCredentials bool
	MaxAge           int // プリフライト結果のキャッシュ秒数。0なら送らない
}

// NewCORSMiddleware は指定されたオリジンに対するCORSミドルウェアを返す。
// ワイルドカード(*)のオリジンではcredentialsを許可しない。
// OPTIONSプリフライトリクエストには204で応答する。
func NewCORSMiddleware(config CORSConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", config.AllowedOrigin)
			h.Set("Access-Control-Allow-Methods", config.AllowedMethods)
			h.Set("Access-Control-Allow-Headers", config.AllowedHeaders)
			if config.AllowCredentials && config.AllowedOrigin != "*" {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if config.AllowedOrigin != "*" {
				h.Add("Vary", "Origin")
			}
			if config.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
			}

			// OPTIONSプリフライトリクエストには204で応答
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
