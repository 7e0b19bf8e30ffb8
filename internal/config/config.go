package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Store backends selectable with RLCONFIG_STORE.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

type Config struct {
	Store         string        // RLCONFIG_STORE (default "postgres")
	DatabaseURL   string        // RLCONFIG_DATABASE_URL (required for postgres and mongo)
	MongoDatabase string        // RLCONFIG_MONGO_DATABASE (default "runelite")
	HTTPAddr      string        // RLCONFIG_HTTP_ADDR (default ":8080")
	NATSURL       string        // RLCONFIG_NATS_URL (optional, empty = no events)
	SessionsFile  string        // RLCONFIG_SESSIONS_FILE (optional YAML session table)
	StoreTimeout  time.Duration // RLCONFIG_STORE_TIMEOUT (default 5s)

	LogFormat string     // RLCONFIG_LOG_FORMAT ("text" or "json")
	LogLevel  slog.Level // RLCONFIG_LOG_LEVEL (default "info")

	// Backup settings
	BackupInterval   time.Duration // RLCONFIG_BACKUP_INTERVAL (default 0 = disabled)
	BackupS3Bucket   string        // RLCONFIG_BACKUP_S3_BUCKET (enables S3 when set)
	BackupS3Endpoint string        // RLCONFIG_BACKUP_S3_ENDPOINT (custom endpoint for MinIO)
	BackupS3Region   string        // RLCONFIG_BACKUP_S3_REGION (default "us-east-1")
	BackupS3Key      string        // RLCONFIG_BACKUP_S3_KEY (default "rlconfig/backup.jsonl")
	BackupGitRepo    string        // RLCONFIG_BACKUP_GIT_REPO (enables git when set; path to clone)
	BackupGitFile    string        // RLCONFIG_BACKUP_GIT_FILE (default "config.jsonl")
	BackupGitBranch  string        // RLCONFIG_BACKUP_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		Store:            strings.ToLower(envOrDefault("RLCONFIG_STORE", StorePostgres)),
		DatabaseURL:      os.Getenv("RLCONFIG_DATABASE_URL"),
		MongoDatabase:    envOrDefault("RLCONFIG_MONGO_DATABASE", "runelite"),
		HTTPAddr:         envOrDefault("RLCONFIG_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("RLCONFIG_NATS_URL"),
		SessionsFile:     os.Getenv("RLCONFIG_SESSIONS_FILE"),
		LogFormat:        strings.ToLower(envOrDefault("RLCONFIG_LOG_FORMAT", "text")),
		BackupS3Bucket:   os.Getenv("RLCONFIG_BACKUP_S3_BUCKET"),
		BackupS3Endpoint: os.Getenv("RLCONFIG_BACKUP_S3_ENDPOINT"),
		BackupS3Region:   envOrDefault("RLCONFIG_BACKUP_S3_REGION", "us-east-1"),
		BackupS3Key:      envOrDefault("RLCONFIG_BACKUP_S3_KEY", "rlconfig/backup.jsonl"),
		BackupGitRepo:    os.Getenv("RLCONFIG_BACKUP_GIT_REPO"),
		BackupGitFile:    envOrDefault("RLCONFIG_BACKUP_GIT_FILE", "config.jsonl"),
		BackupGitBranch:  envOrDefault("RLCONFIG_BACKUP_GIT_BRANCH", "main"),
	}

	switch c.Store {
	case StorePostgres, StoreMongo:
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("RLCONFIG_DATABASE_URL is required for store %q", c.Store)
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("RLCONFIG_STORE: unknown store %q", c.Store)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return nil, fmt.Errorf("RLCONFIG_LOG_FORMAT: unknown format %q", c.LogFormat)
	}
	if err := c.LogLevel.UnmarshalText([]byte(envOrDefault("RLCONFIG_LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("RLCONFIG_LOG_LEVEL: %w", err)
	}

	var err error
	if c.StoreTimeout, err = durationEnv("RLCONFIG_STORE_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if c.BackupInterval, err = durationEnv("RLCONFIG_BACKUP_INTERVAL", "0"); err != nil {
		return nil, err
	}
	return c, nil
}

// Logger builds the process logger described by c.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func durationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", key, d)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
