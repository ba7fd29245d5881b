package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskflow.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.API.ListenAddr != ":8000" {
		t.Errorf("Unexpected listen addr %q", cfg.API.ListenAddr)
	}
	if !cfg.Worker.Enabled || cfg.Worker.Concurrency != 4 {
		t.Errorf("Unexpected worker defaults %+v", cfg.Worker)
	}
	if cfg.Worker.PollInterval.Std() != 5*time.Second {
		t.Errorf("Unexpected poll interval %v", cfg.Worker.PollInterval.Std())
	}
	if cfg.Worker.SimFailureRate != 0.05 {
		t.Errorf("Unexpected failure rate %v", cfg.Worker.SimFailureRate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config failed validation: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[api]
listen_addr = ":9000"
api_key = "sekrit"
rate_limit = 120
rate_window = "30s"

[database]
url = "postgres://localhost/taskflow"
max_conns = 10

[worker]
enabled = false
concurrency = 8
poll_interval = "250ms"
sim_failure_rate = 0.5
sim_time_scale = 0.1

[events]
nats_url = "nats://localhost:4222"

[logging]
level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.ListenAddr != ":9000" || cfg.API.APIKey != "sekrit" {
		t.Errorf("Unexpected api config %+v", cfg.API)
	}
	if cfg.API.RateLimit != 120 || cfg.API.RateWindow.Std() != 30*time.Second {
		t.Errorf("Unexpected rate config %+v", cfg.API)
	}
	if cfg.Database.URL != "postgres://localhost/taskflow" || cfg.Database.MaxConns != 10 {
		t.Errorf("Unexpected database config %+v", cfg.Database)
	}
	if cfg.Worker.Enabled || cfg.Worker.Concurrency != 8 {
		t.Errorf("Unexpected worker config %+v", cfg.Worker)
	}
	if cfg.Worker.PollInterval.Std() != 250*time.Millisecond {
		t.Errorf("Unexpected poll interval %v", cfg.Worker.PollInterval.Std())
	}
	if cfg.Events.NATSURL != "nats://localhost:4222" {
		t.Errorf("Unexpected events config %+v", cfg.Events)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[api]
listen_addr = ":7000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.ListenAddr != ":7000" {
		t.Errorf("Expected override, got %q", cfg.API.ListenAddr)
	}
	if cfg.Worker.Concurrency != 4 || cfg.Worker.PollInterval.Std() != 5*time.Second {
		t.Errorf("Expected worker defaults, got %+v", cfg.Worker)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[api]
listne_addr = ":9000"
`)

	if _, err := Load(path); err == nil {
		t.Error("Expected error for misspelled key")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
[worker]
poll_interval = "five seconds"
`)

	if _, err := Load(path); err == nil {
		t.Error("Expected error for unparseable duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen addr", func(c *Config) { c.API.ListenAddr = "" }},
		{"negative rate limit", func(c *Config) { c.API.RateLimit = -1 }},
		{"rate limit without window", func(c *Config) { c.API.RateLimit = 10; c.API.RateWindow = 0 }},
		{"negative max conns", func(c *Config) { c.Database.MaxConns = -1 }},
		{"zero concurrency", func(c *Config) { c.Worker.Concurrency = 0 }},
		{"zero poll interval", func(c *Config) { c.Worker.PollInterval = 0 }},
		{"failure rate above one", func(c *Config) { c.Worker.SimFailureRate = 1.5 }},
		{"negative time scale", func(c *Config) { c.Worker.SimTimeScale = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
