package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT issued by the account service
	JWTSecret string

	// Admin
	AdminEmails    string
	AdminUserIDs   string
	AdminTokenHash string

	// Server
	Port        string
	CORSOrigins string
	AppEnv      string
	SentryDSN   string

	// Moderation
	TargetStepTimeout time.Duration
	ClaimLease        time.Duration
	ReconcileInterval time.Duration
	SuspendDuration   time.Duration
	LookupConcurrency int
	LogRetentionDays  int
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "novel_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AdminEmails:    getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs:   getEnv("ADMIN_USER_IDS", ""),
		AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		AppEnv:      getEnv("APP_ENV", "development"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),

		TargetStepTimeout: parseDuration(getEnv("TARGET_STEP_TIMEOUT", "5s"), 5*time.Second),
		ClaimLease:        parseDuration(getEnv("CLAIM_LEASE", "2m"), 2*time.Minute),
		ReconcileInterval: parseDuration(getEnv("RECONCILE_INTERVAL", "1m"), time.Minute),
		SuspendDuration:   parseDuration(getEnv("SUSPEND_DURATION", "168h"), 168*time.Hour),
		LookupConcurrency: parseInt(getEnv("LOOKUP_CONCURRENCY", "8"), 8),
		LogRetentionDays:  parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
	}
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
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
