package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration parses TOML strings like "5s" into a time.Duration.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for toml.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the daemon configuration.
type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Worker   WorkerConfig   `toml:"worker"`
	Events   EventsConfig   `toml:"events"`
	Logging  LoggingConfig  `toml:"logging"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	// ListenAddr is the bind address, e.g. ":8000".
	ListenAddr string `toml:"listen_addr"`

	// APIKey enables X-API-Key auth when non-empty.
	APIKey string `toml:"api_key"`

	// RateLimit is the per-client request budget per RateWindow.
	// Zero disables rate limiting.
	RateLimit int `toml:"rate_limit"`

	// RateWindow is the refill period for the request budget.
	RateWindow Duration `toml:"rate_window"`
}

// DatabaseConfig selects the task store backend.
type DatabaseConfig struct {
	// URL is a Postgres connection string. Empty selects the
	// in-memory store.
	URL string `toml:"url"`

	// MaxConns caps the connection pool size.
	MaxConns int `toml:"max_conns"`
}

// WorkerConfig configures the dispatcher and its simulated executor.
type WorkerConfig struct {
	Enabled      bool     `toml:"enabled"`
	Concurrency  int      `toml:"concurrency"`
	PollInterval Duration `toml:"poll_interval"`

	// SimFailureRate is the simulated executor's failure probability.
	SimFailureRate float64 `toml:"sim_failure_rate"`

	// SimTimeScale multiplies simulated processing times.
	SimTimeScale float64 `toml:"sim_time_scale"`
}

// EventsConfig selects the event stream backend.
type EventsConfig struct {
	// NATSURL enables the NATS stream when non-empty. Empty selects
	// the in-process stream.
	NATSURL string `toml:"nats_url"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		API: APIConfig{
			ListenAddr: ":8000",
			RateWindow: Duration(time.Minute),
		},
		Worker: WorkerConfig{
			Enabled:        true,
			Concurrency:    4,
			PollInterval:   Duration(5 * time.Second),
			SimFailureRate: 0.05,
			SimTimeScale:   1.0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML file over the defaults. Unset keys keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	if c.API.ListenAddr == "" {
		return fmt.Errorf("api.listen_addr must not be empty")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}
	if c.API.RateLimit > 0 && c.API.RateWindow <= 0 {
		return fmt.Errorf("api.rate_window must be positive when rate limiting is on")
	}
	if c.Database.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must not be negative")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be positive")
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker.poll_interval must be positive")
	}
	if c.Worker.SimFailureRate < 0 || c.Worker.SimFailureRate > 1 {
		return fmt.Errorf("worker.sim_failure_rate must be in [0, 1]")
	}
	if c.Worker.SimTimeScale < 0 {
		return fmt.Errorf("worker.sim_time_scale must not be negative")
	}
	return nil
}
