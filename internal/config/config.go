package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 署名シークレットのみ例外で、ローテーションを即時反映するために
// トークン発行・検証側が環境変数を毎回読み直す。
type Config struct {
	// Database
	DatabaseURL string

	// Auth token
	AuthTokenSecret  string
	AuthTokenTTL     time.Duration
	LegacyCookieAuth bool

	// Google Sheets
	SheetsCredentialsFile string

	// Directory
	DirectoryCacheTTL             time.Duration
	DirectoryRefreshInterval      time.Duration
	DirectoryRefreshMaxConcurrent int

	// Audit
	AuditRetentionDays int

	// Rate Limit（毎分のリクエスト数）
	RateLimitGeneral int
	RateLimitLogin   int

	// Webhook
	WebhookTimeout time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// AuthTokenSecretEnv はトークン署名シークレットの環境変数名。
// ローテーション対応のため、Codecはこの変数を呼び出しのたびに読み直す。
const AuthTokenSecretEnv = "AUTH_TOKEN_SECRET"

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AuthTokenSecret = os.Getenv(AuthTokenSecretEnv)
	if cfg.AuthTokenSecret == "" {
		missing = append(missing, AuthTokenSecretEnv)
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if len(cfg.AuthTokenSecret) < 32 {
		return nil, fmt.Errorf("%s must be at least 32 characters", AuthTokenSecretEnv)
	}

	// Optional fields with defaults
	cfg.AuthTokenTTL = getEnvDuration("AUTH_TOKEN_TTL", 24*time.Hour)
	cfg.LegacyCookieAuth = getEnvBool("LEGACY_COOKIE_AUTH", false)
	cfg.SheetsCredentialsFile = getEnvString("SHEETS_CREDENTIALS_FILE", "")
	cfg.DirectoryCacheTTL = getEnvDuration("DIRECTORY_CACHE_TTL", time.Minute)
	cfg.DirectoryRefreshInterval = getEnvDuration("DIRECTORY_REFRESH_INTERVAL", time.Minute)
	cfg.DirectoryRefreshMaxConcurrent = getEnvInt("DIRECTORY_REFRESH_MAX_CONCURRENT", 3)
	cfg.AuditRetentionDays = getEnvInt("AUDIT_RETENTION_DAYS", 365)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.WebhookTimeout = getEnvDuration("WEBHOOK_TIMEOUT", 5*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
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

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
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
