// Package config loads application configuration from a YAML file with
// environment variable overrides. A .env file in the working directory is
// loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/voxprep/voxprep/pkg/interview"
)

// Config is the full application configuration.
type Config struct {
	// Gateway is the voice agent gateway endpoint (http(s) or ws(s)).
	Gateway GatewayConfig `yaml:"gateway"`

	// Session holds the interview policy knobs.
	Session SessionConfig `yaml:"session"`

	// Store selects and configures progress persistence.
	Store StoreConfig `yaml:"store"`

	// Feedback configures assessment generation.
	Feedback FeedbackConfig `yaml:"feedback"`

	// Recovery configures the recovery service endpoint.
	Recovery RecoveryConfig `yaml:"recovery"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

type GatewayConfig struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
}

type SessionConfig struct {
	DurationSeconds       int `yaml:"duration_seconds"`
	WarningLeadSeconds    int `yaml:"warning_lead_seconds"`
	MaxRetries            int `yaml:"max_retries"`
	RetryBackoffSeconds   int `yaml:"retry_backoff_seconds"`
	AutosaveIntervalSecs  int `yaml:"autosave_interval_seconds"`
	RecoveryWindowMinutes int `yaml:"recovery_window_minutes"`
	DefaultTotalQuestions int `yaml:"default_total_questions"`
}

type StoreConfig struct {
	// Kind is "sqlite", "redis", or "memory".
	Kind string `yaml:"kind"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// RedisAddr is the host:port for the redis store.
	RedisAddr string `yaml:"redis_addr"`

	// RedisPassword authenticates the redis connection.
	RedisPassword string `yaml:"redis_password"`

	// RedisDB selects the redis database index.
	RedisDB int `yaml:"redis_db"`
}

type FeedbackConfig struct {
	// APIKey is the Gemini API key. Usually set via GEMINI_API_KEY.
	APIKey string `yaml:"api_key"`

	// Model overrides the generation model.
	Model string `yaml:"model"`

	// StorePath is the SQLite assessment database file.
	StorePath string `yaml:"store_path"`
}

type RecoveryConfig struct {
	// Listen is the recovery server bind address.
	Listen string `yaml:"listen"`

	// Endpoint is the recovery server URL used by session clients. Empty
	// means recover in-process.
	Endpoint string `yaml:"endpoint"`
}

type LogConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level"`

	// File is the log file path. Empty logs to stderr.
	File string `yaml:"file"`

	// MaxSizeMB caps the log file size before rotation.
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups caps the number of rotated files kept.
	MaxBackups int `yaml:"max_backups"`
}

// Load reads the config file (if path is non-empty) and applies environment
// overrides. Missing file with empty path yields pure defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Endpoint: "ws://localhost:8080/v1/call",
		},
		Session: SessionConfig{
			DurationSeconds:       600,
			WarningLeadSeconds:    120,
			MaxRetries:            2,
			RetryBackoffSeconds:   2,
			AutosaveIntervalSecs:  90,
			RecoveryWindowMinutes: 30,
			DefaultTotalQuestions: 10,
		},
		Store: StoreConfig{
			Kind: "sqlite",
			Path: "voxprep.db",
		},
		Feedback: FeedbackConfig{
			StorePath: "voxprep.db",
		},
		Recovery: RecoveryConfig{
			Listen: ":8090",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Gateway.Endpoint, "VOXPREP_GATEWAY_ENDPOINT")
	setString(&cfg.Gateway.Token, "VOXPREP_GATEWAY_TOKEN")
	setString(&cfg.Store.Kind, "VOXPREP_STORE_KIND")
	setString(&cfg.Store.Path, "VOXPREP_STORE_PATH")
	setString(&cfg.Store.RedisAddr, "VOXPREP_REDIS_ADDR")
	setString(&cfg.Store.RedisPassword, "VOXPREP_REDIS_PASSWORD")
	setInt(&cfg.Store.RedisDB, "VOXPREP_REDIS_DB")
	setString(&cfg.Feedback.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Feedback.Model, "VOXPREP_FEEDBACK_MODEL")
	setString(&cfg.Recovery.Listen, "VOXPREP_RECOVERY_LISTEN")
	setString(&cfg.Recovery.Endpoint, "VOXPREP_RECOVERY_ENDPOINT")
	setString(&cfg.Log.Level, "VOXPREP_LOG_LEVEL")
	setString(&cfg.Log.File, "VOXPREP_LOG_FILE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Session.DurationSeconds <= 0 {
		return fmt.Errorf("session.duration_seconds must be positive")
	}
	if cfg.Session.WarningLeadSeconds <= 0 || cfg.Session.WarningLeadSeconds >= cfg.Session.DurationSeconds {
		return fmt.Errorf("session.warning_lead_seconds must be positive and less than duration_seconds")
	}
	if cfg.Session.MaxRetries < 0 {
		return fmt.Errorf("session.max_retries must not be negative")
	}
	switch cfg.Store.Kind {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("store.kind must be sqlite, redis, or memory (got %q)", cfg.Store.Kind)
	}
	if cfg.Store.Kind == "sqlite" && cfg.Store.Path == "" {
		return fmt.Errorf("store.path is required for the sqlite store")
	}
	if cfg.Store.Kind == "redis" && cfg.Store.RedisAddr == "" {
		return fmt.Errorf("store.redis_addr is required for the redis store")
	}
	return nil
}

// SessionConfig converts the serialized policy values into the session's
// runtime Config. Zero fields fall back to the session defaults.
func (c *Config) SessionConfig() interview.Config {
	sc := interview.DefaultConfig()
	if c.Session.DurationSeconds > 0 {
		sc.Duration = time.Duration(c.Session.DurationSeconds) * time.Second
	}
	if c.Session.WarningLeadSeconds > 0 {
		sc.WarningLead = time.Duration(c.Session.WarningLeadSeconds) * time.Second
	}
	sc.MaxRetries = c.Session.MaxRetries
	if c.Session.RetryBackoffSeconds > 0 {
		sc.RetryBackoff = time.Duration(c.Session.RetryBackoffSeconds) * time.Second
	}
	if c.Session.AutosaveIntervalSecs > 0 {
		sc.AutosaveInterval = time.Duration(c.Session.AutosaveIntervalSecs) * time.Second
	}
	if c.Session.RecoveryWindowMinutes > 0 {
		sc.RecoveryWindow = time.Duration(c.Session.RecoveryWindowMinutes) * time.Minute
	}
	if c.Session.DefaultTotalQuestions > 0 {
		sc.DefaultTotalQuestions = c.Session.DefaultTotalQuestions
	}
	return sc
}
