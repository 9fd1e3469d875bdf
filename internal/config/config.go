package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Corpus snapshot location
	StorageBackend string // "local", "azure" or "http"
	CorpusPath     string // blob name / file path / URL path of the post snapshot
	SymptomPath    string // optional symptom-week snapshot, empty disables it
	TopicDataDir   string // directory/prefix holding per-topic CSV extracts

	// Azure Storage configuration ("azure" backend)
	StorageAccount   string
	StorageContainer string

	// HTTP snapshot configuration ("http" backend)
	SnapshotBaseURL string

	// Aggregation tuning
	PositiveThreshold float64 // compound at or above is "positive"
	NegativeThreshold float64 // compound at or below is "negative"
	RollingWindowDays int
	TopicLimit        int

	// Digest configuration
	DigestSchedule    string // "daily", "weekly" or "off"
	TimeZone          string
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		CorpusPath:     getEnv("CORPUS_PATH", "data/posts.csv"),
		SymptomPath:    getEnv("SYMPTOM_PATH", ""),
		TopicDataDir:   getEnv("TOPIC_DATA_DIR", "comb_data"),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "snapshots"),

		SnapshotBaseURL: getEnv("SNAPSHOT_BASE_URL", ""),

		PositiveThreshold: getFloatEnv("POSITIVE_THRESHOLD", 0.1),
		NegativeThreshold: getFloatEnv("NEGATIVE_THRESHOLD", -0.1),
		RollingWindowDays: getIntEnv("ROLLING_WINDOW_DAYS", 7),
		TopicLimit:        getIntEnv("TOPIC_LIMIT", 20),

		DigestSchedule:    getEnv("DIGEST_SCHEDULE", "off"),
		TimeZone:          getEnv("TIMEZONE", "UTC"),
		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case "local":
	case "azure":
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when STORAGE_BACKEND is 'azure'")
		}
	case "http":
		if c.SnapshotBaseURL == "" {
			return fmt.Errorf("SNAPSHOT_BASE_URL is required when STORAGE_BACKEND is 'http'")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be 'local', 'azure' or 'http'")
	}

	if c.CorpusPath == "" {
		return fmt.Errorf("CORPUS_PATH must not be empty")
	}

	if c.DigestSchedule != "daily" && c.DigestSchedule != "weekly" && c.DigestSchedule != "off" {
		return fmt.Errorf("DIGEST_SCHEDULE must be 'daily', 'weekly' or 'off'")
	}

	if c.DigestSchedule != "off" {
		if c.TeamsWebhookURL == "" && c.NotificationEmail == "" {
			return fmt.Errorf("at least one notification method must be configured when digests are enabled (TEAMS_WEBHOOK_URL or NOTIFICATION_EMAIL)")
		}
		if c.NotificationEmail != "" {
			if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
				return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
			}
		}
	}

	if c.PositiveThreshold < c.NegativeThreshold {
		return fmt.Errorf("POSITIVE_THRESHOLD must not be below NEGATIVE_THRESHOLD")
	}

	if c.RollingWindowDays < 1 {
		return fmt.Errorf("ROLLING_WINDOW_DAYS must be at least 1")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
