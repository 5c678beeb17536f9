package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for xgrab
type Config struct {
	// Collection settings (scroll loop)
	Collect CollectConfig `yaml:"collect" json:"collect"`

	// Fetch settings (binary downloads)
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Headless browser settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CollectConfig holds scroll-scrape settings
type CollectConfig struct {
	MaxScrollAttempts int           `yaml:"max_scroll_attempts" json:"max_scroll_attempts"`
	SettleDelay       time.Duration `yaml:"settle_delay" json:"settle_delay"`
}

// FetchConfig holds download-specific settings
type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	MaxAttempts       int           `yaml:"max_attempts" json:"max_attempts"`
	RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown" json:"rate_limit_cooldown"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
}

// RateLimitConfig holds outbound request pacing settings
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// OutputConfig holds archive output settings
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	DataDirectory string `yaml:"data_directory" json:"data_directory"`
}

// BrowserConfig holds headless browser settings
type BrowserConfig struct {
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	Headless          bool          `yaml:"headless" json:"headless"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Collect: CollectConfig{
			MaxScrollAttempts: 50,
			SettleDelay:       time.Second,
		},
		Fetch: FetchConfig{
			Timeout:           30 * time.Second,
			MaxAttempts:       3,
			RateLimitCooldown: 60 * time.Second,
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Output: OutputConfig{
			BaseDirectory: "./downloads",
			DataDirectory: "",
		},
		Browser: BrowserConfig{
			NavigationTimeout: 45 * time.Second,
			Headless:          true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load builds the effective configuration: defaults, then config file,
// then environment, then command-line flags.
func Load(path string, flags map[string]interface{}) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	cfg.applyFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file. An empty path falls
// back to the default locations; a missing default file is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// findConfigFile checks default config file locations
func (c *Config) findConfigFile() string {
	candidates := []string{".xgrab.yaml", ".xgrab.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".xgrab.yaml"),
			filepath.Join(home, ".config", "xgrab", "config.yaml"),
		)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadFromEnv loads configuration overrides from environment variables.
// A .env file in the working directory is honored when present.
func (c *Config) LoadFromEnv() error {
	_ = godotenv.Load()

	if dir := os.Getenv("XGRAB_OUTPUT_DIR"); dir != "" {
		c.Output.BaseDirectory = dir
	}
	if dir := os.Getenv("XGRAB_DATA_DIR"); dir != "" {
		c.Output.DataDirectory = dir
	}
	if rpm := os.Getenv("XGRAB_REQUESTS_PER_MINUTE"); rpm != "" {
		if val, err := strconv.Atoi(rpm); err == nil && val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if ua := os.Getenv("XGRAB_USER_AGENT"); ua != "" {
		c.Fetch.UserAgent = ua
	}
	if level := os.Getenv("XGRAB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if headless := os.Getenv("XGRAB_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) != "false"
	}
	return nil
}

// applyFlags merges command-line flag overrides
func (c *Config) applyFlags(flags map[string]interface{}) {
	for key, value := range flags {
		switch key {
		case "output":
			if v, ok := value.(string); ok && v != "" {
				c.Output.BaseDirectory = v
			}
		case "data-dir":
			if v, ok := value.(string); ok && v != "" {
				c.Output.DataDirectory = v
			}
		case "rate-limit":
			if v, ok := value.(int); ok && v > 0 {
				c.RateLimit.RequestsPerMinute = v
			}
		case "max-attempts":
			if v, ok := value.(int); ok && v > 0 {
				c.Fetch.MaxAttempts = v
			}
		case "timeout":
			if v, ok := value.(time.Duration); ok && v > 0 {
				c.Fetch.Timeout = v
			}
		case "log-level":
			if v, ok := value.(string); ok && v != "" {
				c.Logging.Level = v
			}
		case "headless":
			if v, ok := value.(bool); ok {
				c.Browser.Headless = v
			}
		}
	}
}

// DataDir resolves the durable per-profile data directory used for the
// dedup cache and the pending-run handoff record.
func (c *Config) DataDir() (string, error) {
	if c.Output.DataDirectory != "" {
		return c.Output.DataDirectory, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(base, "xgrab"), nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Collect.MaxScrollAttempts <= 0 {
		return errors.New("collect.max_scroll_attempts must be positive")
	}
	if c.Collect.SettleDelay < 0 {
		return errors.New("collect.settle_delay must not be negative")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return errors.New("fetch.max_attempts must be positive")
	}
	if c.Fetch.Timeout <= 0 {
		return errors.New("fetch.timeout must be positive")
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return errors.New("rate_limit.requests_per_minute must be positive")
	}
	if c.Output.BaseDirectory == "" {
		return errors.New("output.base_directory must not be empty")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("unknown log level: %s", c.Logging.Level)
	}
	return nil
}
