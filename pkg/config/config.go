package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/halcyonlabs/go-privmeter/pkg/engine"
)

// Config holds all PrivMeter configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Scoring ScoringConfig `yaml:"scoring"`
	VPN     VPNConfig     `yaml:"vpn"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the REST API server.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// StorageConfig selects and configures the history backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite
	Path   string `yaml:"path"`

	// Keep, when positive, prunes the history down to that many records
	// at startup.
	Keep int `yaml:"keep"`
}

// ScoringConfig configures the aggregation engine.
type ScoringConfig struct {
	Weights     engine.Weights `yaml:"weights"`
	TrendWindow int            `yaml:"trend_window"`

	// SampleInterval is a Go duration string ("5m", "30s"). Empty or "0"
	// disables background sampling.
	SampleInterval string `yaml:"sample_interval"`
}

// VPNConfig configures VPN-side extras.
type VPNConfig struct {
	ExitCheck ExitCheckConfig `yaml:"exit_check"`
}

// ExitCheckConfig points at local MaxMind databases used to verify the
// tunnel exit country. Leave CityDB empty to disable the check; ASNDB is
// optional on top of it.
type ExitCheckConfig struct {
	CityDB string `yaml:"city_db"`
	ASNDB  string `yaml:"asn_db"`
}

// LoggingConfig configures the service logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ValidDrivers lists the supported history backends.
var ValidDrivers = []string{"memory", "sqlite"}

// DefaultConfig returns the built-in defaults: SQLite history next to the
// binary, standard weights, background sampling disabled.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			TrustedProxies: []string{"127.0.0.1"},
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "privmeter.db",
		},
		Scoring: ScoringConfig{
			Weights:     engine.DefaultWeights(),
			TrendWindow: engine.DefaultTrendWindow,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides and validates the result. A missing file is not
// an error; the defaults plus overrides are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("PRIVMETER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("PRIVMETER_DB"); path != "" {
		c.Storage.Driver = "sqlite"
		c.Storage.Path = path
	}
	if level := os.Getenv("PRIVMETER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetSampleInterval returns the background sampling interval as a
// duration; zero means sampling is disabled.
func (c *Config) GetSampleInterval() time.Duration {
	if c.Scoring.SampleInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Scoring.SampleInterval)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks for values the service cannot run with.
func (c *Config) Validate() error {
	if err := c.Scoring.Weights.Validate(); err != nil {
		return err
	}
	if c.Scoring.TrendWindow < 1 {
		return fmt.Errorf("scoring.trend_window must be at least 1, got %d", c.Scoring.TrendWindow)
	}
	if c.Scoring.SampleInterval != "" {
		d, err := time.ParseDuration(c.Scoring.SampleInterval)
		if err != nil {
			return fmt.Errorf("invalid scoring.sample_interval: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("scoring.sample_interval must not be negative, got %s", c.Scoring.SampleInterval)
		}
	}

	validDriver := false
	for _, d := range ValidDrivers {
		if c.Storage.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid storage.driver: %s (valid: %v)", c.Storage.Driver, ValidDrivers)
	}
	if c.Storage.Driver == "sqlite" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required with the sqlite driver")
	}
	if c.Storage.Keep < 0 {
		return fmt.Errorf("storage.keep must not be negative, got %d", c.Storage.Keep)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}
	return nil
}
