package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 50, cfg.Collect.MaxScrollAttempts)
	assert.Equal(t, time.Second, cfg.Collect.SettleDelay)
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Fetch.RateLimitCooldown)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "./downloads", cfg.Output.BaseDirectory)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	content := `
collect:
  max_scroll_attempts: 20
  settle_delay: 500ms
fetch:
  max_attempts: 5
  rate_limit_cooldown: 30s
output:
  base_directory: /tmp/pics
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 20, cfg.Collect.MaxScrollAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Collect.SettleDelay)
	assert.Equal(t, 5, cfg.Fetch.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Fetch.RateLimitCooldown)
	assert.Equal(t, "/tmp/pics", cfg.Output.BaseDirectory)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched fields keep their defaults
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "an explicitly named config file must exist")
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collect: [broken"), 0644))

	err := DefaultConfig().LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("XGRAB_OUTPUT_DIR", "/tmp/envpics")
	t.Setenv("XGRAB_REQUESTS_PER_MINUTE", "30")
	t.Setenv("XGRAB_LOG_LEVEL", "warn")
	t.Setenv("XGRAB_HEADLESS", "false")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "/tmp/envpics", cfg.Output.BaseDirectory)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Browser.Headless)
}

func TestApplyFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.applyFlags(map[string]interface{}{
		"output":       "/tmp/flagpics",
		"rate-limit":   10,
		"max-attempts": 7,
		"log-level":    "error",
		"headless":     false,
	})

	assert.Equal(t, "/tmp/flagpics", cfg.Output.BaseDirectory)
	assert.Equal(t, 10, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 7, cfg.Fetch.MaxAttempts)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.False(t, cfg.Browser.Headless)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("XGRAB_OUTPUT_DIR", "/tmp/envpics")

	cfg, err := Load("", map[string]interface{}{"output": "/tmp/flagpics"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/flagpics", cfg.Output.BaseDirectory)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero scroll attempts", func(c *Config) { c.Collect.MaxScrollAttempts = 0 }},
		{"negative settle delay", func(c *Config) { c.Collect.SettleDelay = -time.Second }},
		{"zero fetch attempts", func(c *Config) { c.Fetch.MaxAttempts = 0 }},
		{"zero fetch timeout", func(c *Config) { c.Fetch.Timeout = 0 }},
		{"zero rate limit", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }},
		{"empty output directory", func(c *Config) { c.Output.BaseDirectory = "" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "chatty" }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDataDirOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.DataDirectory = "/tmp/xgrab-data"

	dir, err := cfg.DataDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xgrab-data", dir)
}
