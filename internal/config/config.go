package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	LogLevel string

	// Worker pool
	WorkerCount          int
	MaxQueueSize         int
	MaxConcurrentPublish int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Parsing
	InferContentType bool

	// Inventory; empty disables it
	InventoryDB string

	// Pathstore connection; empty URL disables publishing
	PathstoreURL    string
	PathstoreAPIKey string
}

// Load reads the configuration from the environment, after loading a .env
// file from the working directory if there is one.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("METS_API_KEY"),

		LogLevel: strings.ToLower(envOr("LOG_LEVEL", "info")),

		WorkerCount:          envInt("WORKER_COUNT", 4),
		MaxQueueSize:         envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentPublish: envInt("MAX_CONCURRENT_PUBLISH", 10),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		InferContentType: envBool("INFER_CONTENT_TYPE", false),

		InventoryDB: os.Getenv("INVENTORY_DB"),

		PathstoreURL:    strings.TrimRight(os.Getenv("PATHSTORE_URL"), "/"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentPublish <= 0 {
		cfg.MaxConcurrentPublish = 10
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("METS_API_KEY is required")
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return errors.New("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	return nil
}

// Level maps LOG_LEVEL onto a slog level. Unknown names mean info.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns the JSON logger used by the server.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.Level()}))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
