package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/crypto/bcrypt"
)

// EnvProduction は本番環境を表すAPP_ENVの値。
const EnvProduction = "production"

// signInPathPattern はリダイレクト先を同一オリジン内のパスに限定する。
var signInPathPattern = regexp.MustCompile(`^/([^/\\]|$)`)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort string
	BaseURL    string
	AppEnv     string

	// Session / Auth
	SessionMaxAge          time.Duration
	SessionCleanupInterval time.Duration
	BcryptCost             int
	SignInPath             string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// Issue
	IssueCacheTTL time.Duration

	// CORS（読み取りAPI /issue）
	APICORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合、または値が範囲外の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.AppEnv = getEnvString("APP_ENV", "development")
	cfg.SessionMaxAge = time.Duration(getEnvInt("SESSION_MAX_AGE", 604800)) * time.Second
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", bcrypt.DefaultCost)
	cfg.SignInPath = getEnvString("SIGN_IN_PATH", "/signin")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://") || cfg.AppEnv == EnvProduction
	cfg.IssueCacheTTL = getEnvDuration("ISSUE_CACHE_TTL", 5*time.Minute)
	cfg.APICORSAllowedOrigin = getEnvString("API_CORS_ALLOWED_ORIGIN", "*")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate は値の範囲を検証する。
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SessionMaxAge, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.SessionCleanupInterval, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.BcryptCost, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
		validation.Field(&c.IssueCacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.SignInPath, validation.Required, validation.Match(signInPathPattern)),
	)
}

// IsProduction は本番環境かどうかを返す。
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
