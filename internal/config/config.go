package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/applytrack/internal/model"
)

// Config is the root configuration for applytrack.
type Config struct {
	Database     string
	Ingest       IngestConfig
	Inbox        InboxConfig
	Notification NotificationConfig
	Server       ServerConfig
}

// IngestConfig controls how parsed emails become application records.
type IngestConfig struct {
	UnknownCompany    string       // sentinel for a missing company
	UnknownRole       string       // sentinel for a missing role
	DefaultLocation   string       // used when no location is found
	DefaultStatus     model.Status // used when the parsed status is not recognized
	AllowPlaceholders bool         // store sentinels instead of rejecting incomplete emails
}

// InboxConfig controls the directory watcher.
type InboxConfig struct {
	Dir                    string
	PollingInterval        time.Duration
	Retention              time.Duration // how long processed email IDs are remembered
	SubjectKeywords        []string
	SubjectExcludeKeywords []string
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string         // "log" or "slack"
	WebhookURL string         // required if type is "slack"
	Statuses   []model.Status // only announce transitions into these; empty = all
	MaxRetries int
	RetryDelay time.Duration
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr         string
	RateLimit    float64 // requests per second per client; 0 disables limiting
	Burst        int
	MaxBodyBytes int64
	CORSOrigins  []string // empty disables CORS headers
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Database     string                `yaml:"database"`
	Ingest       rawIngestConfig       `yaml:"ingest"`
	Inbox        rawInboxConfig        `yaml:"inbox"`
	Notification rawNotificationConfig `yaml:"notification"`
	Server       rawServerConfig       `yaml:"server"`
}

type rawIngestConfig struct {
	UnknownCompany    string `yaml:"unknown_company"`
	UnknownRole       string `yaml:"unknown_role"`
	DefaultLocation   string `yaml:"default_location"`
	DefaultStatus     string `yaml:"default_status"`
	AllowPlaceholders bool   `yaml:"allow_placeholders"`
}

type rawInboxConfig struct {
	Dir                    string   `yaml:"dir"`
	PollingInterval        string   `yaml:"polling_interval"`
	Retention              string   `yaml:"retention"`
	SubjectKeywords        []string `yaml:"subject_keywords"`
	SubjectExcludeKeywords []string `yaml:"subject_exclude_keywords"`
}

type rawNotificationConfig struct {
	Type       string   `yaml:"type"`
	WebhookURL string   `yaml:"webhook_url"`
	Statuses   []string `yaml:"statuses"`
	MaxRetries *int     `yaml:"max_retries"`
	RetryDelay string   `yaml:"retry_delay"`
}

type rawServerConfig struct {
	Addr         string   `yaml:"addr"`
	RateLimit    *float64 `yaml:"rate_limit"`
	Burst        int      `yaml:"burst"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
	CORSOrigins  []string `yaml:"cors_origins"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Database: "applications.db",
		Ingest: IngestConfig{
			UnknownCompany: "Unknown Company",
			UnknownRole:    "Unknown Role",
			DefaultStatus:  model.StatusApplied,
		},
		Inbox: InboxConfig{
			Dir:             "inbox",
			PollingInterval: 5 * time.Minute,
			Retention:       30 * 24 * time.Hour,
			SubjectKeywords: []string{"application", "interview", "offer", "update", "status", "position", "role"},
		},
		Notification: NotificationConfig{
			Type:       "log",
			MaxRetries: 2,
			RetryDelay: 2 * time.Second,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			RateLimit:    5,
			Burst:        20,
			MaxBodyBytes: 1 << 20,
		},
	}
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// Fields left out of the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if err := apply(cfg, raw); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func apply(cfg *Config, raw rawConfig) error {
	if raw.Database != "" {
		cfg.Database = raw.Database
	}

	if raw.Ingest.UnknownCompany != "" {
		cfg.Ingest.UnknownCompany = raw.Ingest.UnknownCompany
	}
	if raw.Ingest.UnknownRole != "" {
		cfg.Ingest.UnknownRole = raw.Ingest.UnknownRole
	}
	cfg.Ingest.DefaultLocation = raw.Ingest.DefaultLocation
	cfg.Ingest.AllowPlaceholders = raw.Ingest.AllowPlaceholders
	if raw.Ingest.DefaultStatus != "" {
		st, ok := model.ParseStatus(raw.Ingest.DefaultStatus)
		if !ok {
			return fmt.Errorf("parse ingest.default_status: unknown status %q", raw.Ingest.DefaultStatus)
		}
		cfg.Ingest.DefaultStatus = st
	}

	if raw.Inbox.Dir != "" {
		cfg.Inbox.Dir = raw.Inbox.Dir
	}
	if err := parseDuration("inbox.polling_interval", raw.Inbox.PollingInterval, &cfg.Inbox.PollingInterval); err != nil {
		return err
	}
	if err := parseDuration("inbox.retention", raw.Inbox.Retention, &cfg.Inbox.Retention); err != nil {
		return err
	}
	if raw.Inbox.SubjectKeywords != nil {
		cfg.Inbox.SubjectKeywords = raw.Inbox.SubjectKeywords
	}
	cfg.Inbox.SubjectExcludeKeywords = raw.Inbox.SubjectExcludeKeywords

	if raw.Notification.Type != "" {
		cfg.Notification.Type = raw.Notification.Type
	}
	cfg.Notification.WebhookURL = raw.Notification.WebhookURL
	for _, s := range raw.Notification.Statuses {
		st, ok := model.ParseStatus(s)
		if !ok {
			return fmt.Errorf("parse notification.statuses: unknown status %q", s)
		}
		cfg.Notification.Statuses = append(cfg.Notification.Statuses, st)
	}
	if raw.Notification.MaxRetries != nil {
		cfg.Notification.MaxRetries = *raw.Notification.MaxRetries
	}
	if err := parseDuration("notification.retry_delay", raw.Notification.RetryDelay, &cfg.Notification.RetryDelay); err != nil {
		return err
	}

	if raw.Server.Addr != "" {
		cfg.Server.Addr = raw.Server.Addr
	}
	if raw.Server.RateLimit != nil {
		cfg.Server.RateLimit = *raw.Server.RateLimit
	}
	if raw.Server.Burst != 0 {
		cfg.Server.Burst = raw.Server.Burst
	}
	if raw.Server.MaxBodyBytes != 0 {
		cfg.Server.MaxBodyBytes = raw.Server.MaxBodyBytes
	}
	cfg.Server.CORSOrigins = raw.Server.CORSOrigins
	return nil
}

func parseDuration(field, raw string, dst *time.Duration) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	*dst = d
	return nil
}

func validate(cfg *Config) error {
	if cfg.Database == "" {
		return fmt.Errorf("database must not be empty")
	}
	if strings.TrimSpace(cfg.Ingest.UnknownCompany) == "" || strings.TrimSpace(cfg.Ingest.UnknownRole) == "" {
		return fmt.Errorf("ingest.unknown_company and ingest.unknown_role must not be blank")
	}
	if cfg.Inbox.PollingInterval <= 0 {
		return fmt.Errorf("inbox.polling_interval must be positive, got %v", cfg.Inbox.PollingInterval)
	}
	if cfg.Inbox.Retention < time.Hour {
		return fmt.Errorf("inbox.retention must be at least 1h, got %v", cfg.Inbox.Retention)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}
	if cfg.Notification.MaxRetries < 0 {
		return fmt.Errorf("notification.max_retries must not be negative, got %d", cfg.Notification.MaxRetries)
	}

	if cfg.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %v", cfg.Server.RateLimit)
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.Burst < 1 {
		return fmt.Errorf("server.burst must be at least 1 when rate limiting is enabled")
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", cfg.Server.MaxBodyBytes)
	}

	return nil
}
