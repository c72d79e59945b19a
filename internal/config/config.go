package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrConfig marks a missing or invalid required setting.
var ErrConfig = errors.New("config error")

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Classifier (OpenRouter, OpenAI-compatible)
	OpenRouterAPIKey  string
	OpenRouterAPIURL  string
	ModerationModel   string
	OpenRouterReferer string
	AITimeout         time.Duration

	// Moderation pipeline
	ModerationVariant string
	EvidenceLimit     int
	ReconcileInterval time.Duration

	// Optional integrations
	JWTSecret string
	RedisAddr string
	NATSURL   string

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "postgres"),
		DBSSLMode:  getEnv("DB_SSLMODE", "require"),

		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterAPIURL:  getEnv("OPENROUTER_API_URL", "https://openrouter.ai/api/v1/chat/completions"),
		ModerationModel:   getEnv("MODERATION_MODEL", "google/gemini-2.0-flash-001"),
		OpenRouterReferer: getEnv("MODERATION_REFERER", "https://lovable.dev"),
		AITimeout:         parseDuration(getEnv("AI_TIMEOUT", "20s"), 20*time.Second),

		ModerationVariant: getEnv("MODERATION_VARIANT", "richer"),
		EvidenceLimit:     parseInt(getEnv("EVIDENCE_LIMIT", "5"), 5),
		ReconcileInterval: parseDuration(getEnv("RECONCILE_INTERVAL", "5m"), 5*time.Minute),

		JWTSecret: getEnv("JWT_SECRET", ""),
		RedisAddr: getEnv("REDIS_ADDR", ""),
		NATSURL:   getEnv("NATS_URL", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.OpenRouterAPIKey == "" {
		return errors.Join(ErrConfig, errors.New("OPENROUTER_API_KEY is not configured"))
	}
	if c.DBPassword == "" {
		return errors.Join(ErrConfig, errors.New("DB_PASSWORD is not configured"))
	}
	if c.ModerationVariant != "simple" && c.ModerationVariant != "richer" {
		return errors.Join(ErrConfig, errors.New("MODERATION_VARIANT must be simple or richer"))
	}
	if c.EvidenceLimit < 1 {
		return errors.Join(ErrConfig, errors.New("EVIDENCE_LIMIT must be positive"))
	}
	return nil
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
