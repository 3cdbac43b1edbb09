package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

type Config struct {
	// Server
	Port        string
	CORSOrigins []string

	// MongoDB
	MongoURI        string
	MongoDB         string
	MongoCollection string
	DBTimeout       time.Duration

	// Redis listing cache; an empty address disables it
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ListingCacheTTL time.Duration

	// Uploads
	UploadBackend    string
	UploadDir        string
	UploadMaxBytes   int64
	GCSBucket        string
	GCSPrefix        string
	GCSCredentials   string
	PlaceholderImage string

	// Orphan upload sweep; an empty schedule disables it
	OrphanSweepSchedule string
	OrphanGrace         time.Duration

	// Logging and error tracking; an empty DSN disables sentry
	LogLevel  string
	LogFormat string
	SentryDSN string
	AppEnv    string
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Println("Warning: error loading .env file:", err)
	}

	return &Config{
		Port:        getEnv("PORT", "3000"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),

		MongoURI:        getEnv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:         getEnv("MONGODB_DB", "reportsystem"),
		MongoCollection: getEnv("MONGODB_COLLECTION", "reports"),
		DBTimeout:       parseDuration(getEnv("DB_TIMEOUT", "10s"), 10*time.Second),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         int(parseInt64(getEnv("REDIS_DB", "0"), 0)),
		ListingCacheTTL: parseDuration(getEnv("LISTING_CACHE_TTL", "30s"), 30*time.Second),

		UploadBackend:    strings.ToLower(getEnv("UPLOAD_BACKEND", BackendLocal)),
		UploadDir:        getEnv("UPLOAD_DIR", "data/uploads"),
		UploadMaxBytes:   parseInt64(getEnv("UPLOAD_MAX_BYTES", "10485760"), 10<<20),
		GCSBucket:        getEnv("GCS_BUCKET", ""),
		GCSPrefix:        getEnv("GCS_PREFIX", "reports/"),
		GCSCredentials:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		PlaceholderImage: getEnv("PLACEHOLDER_IMAGE", "/static/default.svg"),

		OrphanSweepSchedule: lookupEnv("ORPHAN_SWEEP_SCHEDULE", "@daily"),
		OrphanGrace:         parseDuration(getEnv("ORPHAN_GRACE", "1h"), time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		SentryDSN: getEnv("SENTRY_DSN", ""),
		AppEnv:    getEnv("APP_ENV", "development"),
	}
}

func (c *Config) Validate() error {
	switch c.UploadBackend {
	case BackendLocal:
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR must not be empty")
		}
	case BackendGCS:
		if c.GCSBucket == "" {
			return errors.New("GCS_BUCKET is required when UPLOAD_BACKEND=gcs")
		}
	default:
		return fmt.Errorf("unknown UPLOAD_BACKEND %q", c.UploadBackend)
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.UploadMaxBytes)
	}
	if c.RedisAddr != "" && c.ListingCacheTTL <= 0 {
		return fmt.Errorf("LISTING_CACHE_TTL must be positive, got %s", c.ListingCacheTTL)
	}
	if c.OrphanSweepSchedule != "" {
		if _, err := cron.ParseStandard(c.OrphanSweepSchedule); err != nil {
			return fmt.Errorf("invalid ORPHAN_SWEEP_SCHEDULE: %w", err)
		}
	}
	return nil
}

// AllowAllOrigins is true when CORS_ORIGINS is "*" or empty.
func (c *Config) AllowAllOrigins() bool {
	return len(c.CORSOrigins) == 0 || (len(c.CORSOrigins) == 1 && c.CORSOrigins[0] == "*")
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// lookupEnv is getEnv but keeps an explicitly empty value.
func lookupEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt64(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
