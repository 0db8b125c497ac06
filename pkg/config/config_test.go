package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/go-privmeter/pkg/engine"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "privmeter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, engine.DefaultWeights(), cfg.Scoring.Weights)
	assert.Equal(t, engine.DefaultTrendWindow, cfg.Scoring.TrendWindow)
	assert.Zero(t, cfg.GetSampleInterval())
}

func TestLoadAppliesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
storage:
  driver: memory
scoring:
  weights:
    vpn: 0.4
    location: 0.3
    network: 0.2
    caller: 0.1
  trend_window: 5
  sample_interval: 30s
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, engine.Weights{VPN: 0.4, Location: 0.3, Network: 0.2, Caller: 0.1}, cfg.Scoring.Weights)
	assert.Equal(t, 5, cfg.Scoring.TrendWindow)
	assert.Equal(t, 30*time.Second, cfg.GetSampleInterval())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9100\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, engine.DefaultWeights(), cfg.Scoring.Weights)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "storage:\n  driver: memory\n")

	t.Setenv("PRIVMETER_ADDR", ":7070")
	t.Setenv("PRIVMETER_DB", filepath.Join(t.TempDir(), "override.db"))
	t.Setenv("PRIVMETER_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Storage.Driver, "PRIVMETER_DB forces the sqlite driver")
	assert.Equal(t, os.Getenv("PRIVMETER_DB"), cfg.Storage.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsInvalidWeights(t *testing.T) {
	path := writeConfig(t, `
scoring:
  weights:
    vpn: 0.3
    location: 0.3
    network: 0.2
    caller: 0.1
`)

	_, err := Load(path)
	require.ErrorIs(t, err, engine.ErrInvalidWeights)
}

func TestLoadRejectsBadSampleInterval(t *testing.T) {
	path := writeConfig(t, "scoring:\n  sample_interval: soon\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample_interval")
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Storage.Path = "" }},
		{"negative keep", func(c *Config) { c.Storage.Keep = -1 }},
		{"zero trend window", func(c *Config) { c.Scoring.TrendWindow = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Addr = ":6060"
	cfg.Scoring.SampleInterval = "2m"

	path := filepath.Join(t.TempDir(), "nested", "privmeter.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6060", loaded.Server.Addr)
	assert.Equal(t, 2*time.Minute, loaded.GetSampleInterval())
}
