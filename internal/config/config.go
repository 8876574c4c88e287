package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/templui/fitsync/internal/db"
)

const (
	RemoteHTTP = "http"
	RemoteS3   = "s3"
	RemoteNone = "none"
)

type Config struct {
	// Application
	AppEnv   string
	Timezone string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret string // Optional: verify access token signatures locally when set

	// Sync
	SyncRemote        string // "http", "s3" or "none"
	SyncURL           string
	SyncTimeout       time.Duration
	SyncPushInterval  time.Duration
	SyncPushThreshold int
	SyncPushRetries   int
	SyncRetryDelay    time.Duration
	SyncPollInterval  time.Duration
	SyncBatchSize     int
	SyncRetention     time.Duration // how long pushed changes are kept locally

	// Observability (optional)
	SentryDSN   string
	MetricsAddr string

	// Storage (S3-compatible, only used by the s3 remote)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string // Optional: for S3-compatible services (MinIO, R2, etc.)
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppEnv:   envString("APP_ENV", "development"),
		Timezone: envString("TIMEZONE", "Local"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", db.SQLiteDSN("./data/fitsync.db")),

		// Security
		JWTSecret: envString("JWT_SECRET", ""),

		// Sync
		SyncRemote:        envString("SYNC_REMOTE", RemoteHTTP),
		SyncURL:           envString("SYNC_URL", ""),
		SyncTimeout:       envDuration("SYNC_TIMEOUT", 30*time.Second),
		SyncPushInterval:  envDuration("SYNC_PUSH_INTERVAL", 15*time.Minute),
		SyncPushThreshold: envInt("SYNC_PUSH_THRESHOLD", 20),
		SyncPushRetries:   envInt("SYNC_PUSH_RETRIES", 3),
		SyncRetryDelay:    envDuration("SYNC_PUSH_RETRY_DELAY", 2*time.Second),
		SyncPollInterval:  envDuration("SYNC_POLL_INTERVAL", time.Minute),
		SyncBatchSize:     envInt("SYNC_BATCH_SIZE", 500),
		SyncRetention:     envDuration("SYNC_RETENTION", 30*24*time.Hour),

		// Observability
		SentryDSN:   envString("SENTRY_DSN", ""),
		MetricsAddr: envString("METRICS_ADDR", ""),

		// Storage
		S3Region:    envString("S3_REGION", ""),
		S3Bucket:    envString("S3_BUCKET", ""),
		S3AccessKey: envString("S3_ACCESS_KEY", ""),
		S3SecretKey: envString("S3_SECRET_KEY", ""),
		S3Endpoint:  envString("S3_ENDPOINT", ""),
	}

	if cfg.SyncRemote == RemoteS3 {
		cfg.S3Region = envRequired("S3_REGION")
		cfg.S3Bucket = envRequired("S3_BUCKET")
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures a sync remote is configured for production builds.
// Development allows running without a remote for local testing.
func validateProduction(cfg *Config) {
	if cfg.SyncRemote == RemoteNone {
		slog.Error("production deployment requires a sync remote",
			"hint", "set SYNC_REMOTE=http or SYNC_REMOTE=s3")
		os.Exit(1)
	}
	if cfg.SyncRemote == RemoteHTTP && cfg.SyncURL == "" {
		slog.Error("production deployment requires SYNC_URL",
			"hint", "set APP_ENV=development to run without a remote")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location resolves TIMEZONE. Unknown names fall back to the process local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("config invalid timezone, using local", "timezone", c.Timezone, "error", err)
		return time.Local
	}
	return loc
}

// Sanitized returns a copy of the config without credentials.
// Safe to print from the CLI status command.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppEnv:            c.AppEnv,
		Timezone:          c.Timezone,
		DBDriver:          c.DBDriver,
		SyncRemote:        c.SyncRemote,
		SyncURL:           c.SyncURL,
		SyncTimeout:       c.SyncTimeout,
		SyncPushInterval:  c.SyncPushInterval,
		SyncPushThreshold: c.SyncPushThreshold,
		SyncPushRetries:   c.SyncPushRetries,
		SyncRetryDelay:    c.SyncRetryDelay,
		SyncPollInterval:  c.SyncPollInterval,
		SyncBatchSize:     c.SyncBatchSize,
		SyncRetention:     c.SyncRetention,
		MetricsAddr:       c.MetricsAddr,
		S3Region:          c.S3Region,
		S3Bucket:          c.S3Bucket,
		S3Endpoint:        c.S3Endpoint,
	}
}

// MetricsEnabled reports whether the serve command should expose /metrics.
func (c *Config) MetricsEnabled() bool {
	return c.MetricsAddr != "" && envBool("METRICS_ENABLED", true)
}
