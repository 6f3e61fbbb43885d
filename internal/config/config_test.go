package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Session.DurationSeconds != 600 || cfg.Session.WarningLeadSeconds != 120 {
		t.Errorf("Unexpected session defaults: %+v", cfg.Session)
	}
	if cfg.Store.Kind != "sqlite" || cfg.Store.Path == "" {
		t.Errorf("Unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
gateway:
  endpoint: wss://gw.example.com/v1/call
session:
  duration_seconds: 900
  warning_lead_seconds: 180
store:
  kind: memory
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Gateway.Endpoint != "wss://gw.example.com/v1/call" {
		t.Errorf("Endpoint = %q", cfg.Gateway.Endpoint)
	}
	if cfg.Session.DurationSeconds != 900 || cfg.Session.WarningLeadSeconds != 180 {
		t.Errorf("Unexpected session config: %+v", cfg.Session)
	}
	if cfg.Store.Kind != "memory" {
		t.Errorf("Store kind = %q", cfg.Store.Kind)
	}
	// Untouched sections keep their defaults.
	if cfg.Session.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want default 2", cfg.Session.MaxRetries)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VOXPREP_GATEWAY_ENDPOINT", "ws://override:9999/v1/call")
	t.Setenv("VOXPREP_STORE_KIND", "redis")
	t.Setenv("VOXPREP_REDIS_ADDR", "localhost:6379")
	t.Setenv("VOXPREP_REDIS_DB", "3")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Gateway.Endpoint != "ws://override:9999/v1/call" {
		t.Errorf("Endpoint = %q", cfg.Gateway.Endpoint)
	}
	if cfg.Store.Kind != "redis" || cfg.Store.RedisAddr != "localhost:6379" || cfg.Store.RedisDB != 3 {
		t.Errorf("Unexpected store config: %+v", cfg.Store)
	}
	if cfg.Feedback.APIKey != "test-key" {
		t.Errorf("APIKey = %q", cfg.Feedback.APIKey)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"zero duration", "session:\n  duration_seconds: 0\n"},
		{"warning past budget", "session:\n  duration_seconds: 60\n  warning_lead_seconds: 120\n"},
		{"bad store kind", "store:\n  kind: etcd\n"},
		{"redis without addr", "store:\n  kind: redis\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestSessionConfigConversion(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	sc := cfg.SessionConfig()
	if sc.Duration != 10*time.Minute {
		t.Errorf("Duration = %v", sc.Duration)
	}
	if sc.WarningLead != 2*time.Minute {
		t.Errorf("WarningLead = %v", sc.WarningLead)
	}
	if sc.RecoveryWindow != 30*time.Minute {
		t.Errorf("RecoveryWindow = %v", sc.RecoveryWindow)
	}
	// Runtime-only knobs come from the session defaults.
	if sc.CountdownTick != time.Second {
		t.Errorf("CountdownTick = %v", sc.CountdownTick)
	}
}
