// Package config loads idlewatch configuration from file and
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Focus policies controlling which focus events count as activity.
const (
	// FocusPolicyBoth counts both focus-in and focus-out events.
	FocusPolicyBoth = "both"
	// FocusPolicyOut counts only focus-out events.
	FocusPolicyOut = "out"
)

// Config holds all configuration for idlewatch
type Config struct {
	// Countdown settings
	Timeout      time.Duration `yaml:"timeout" env:"IDLEWATCH_TIMEOUT"`
	PromptBefore time.Duration `yaml:"prompt_before" env:"IDLEWATCH_PROMPT_BEFORE"`

	// Behavior flags
	StartOnLaunch bool `yaml:"start_on_launch"`
	StartPaused   bool `yaml:"start_paused" env:"IDLEWATCH_START_PAUSED"`
	Quiet         bool `yaml:"quiet" env:"IDLEWATCH_QUIET"`
	Debug         bool `yaml:"debug" env:"IDLEWATCH_DEBUG"`

	// Which session signals count as user activity
	ActivitySources ActivitySources `yaml:"activity_sources"`

	// Notification settings
	NtfyTopic  string `yaml:"ntfy_topic" env:"IDLEWATCH_TOPIC"`
	NtfyServer string `yaml:"ntfy_server" env:"IDLEWATCH_SERVER"`

	// Rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Wrapped command settings
	Command     string   `yaml:"command" env:"IDLEWATCH_COMMAND"`
	DefaultArgs []string `yaml:"default_args"`
}

// ActivitySources configures which external signal kinds reset the
// idle countdown. Each source can be toggled independently.
type ActivitySources struct {
	// Input counts user keystrokes forwarded to the wrapped command.
	Input bool `yaml:"input"`
	// Output counts output produced by the wrapped command.
	Output bool `yaml:"output"`
	// Focus counts terminal focus events, filtered by FocusPolicy.
	Focus       bool   `yaml:"focus"`
	FocusPolicy string `yaml:"focus_policy"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Window      time.Duration `yaml:"window"`
	MaxMessages int           `yaml:"max_messages"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:       2 * time.Minute,
		PromptBefore:  30 * time.Second,
		StartOnLaunch: true,
		ActivitySources: ActivitySources{
			Input:       true,
			Output:      false,
			Focus:       true,
			FocusPolicy: FocusPolicyBoth,
		},
		NtfyServer: "https://ntfy.sh",
		RateLimit: RateLimitConfig{
			Window:      1 * time.Minute,
			MaxMessages: 5,
		},
	}
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from config file
	configPath := getConfigPath()
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// getConfigPath returns the config file path
func getConfigPath() string {
	// Check for explicit config path
	if path := os.Getenv("IDLEWATCH_CONFIG"); path != "" {
		return path
	}

	// Check XDG config directory
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "idlewatch", "config.yaml")
	}

	// Fall back to home directory
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "idlewatch", "config.yaml")
	}

	return ""
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - The config file path comes from trusted sources (env var or standard locations)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	if timeout := os.Getenv("IDLEWATCH_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid IDLEWATCH_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}

	if lead := os.Getenv("IDLEWATCH_PROMPT_BEFORE"); lead != "" {
		d, err := time.ParseDuration(lead)
		if err != nil {
			return fmt.Errorf("invalid IDLEWATCH_PROMPT_BEFORE: %w", err)
		}
		cfg.PromptBefore = d
	}

	if topic := os.Getenv("IDLEWATCH_TOPIC"); topic != "" {
		cfg.NtfyTopic = topic
	}

	if server := os.Getenv("IDLEWATCH_SERVER"); server != "" {
		cfg.NtfyServer = server
	}

	if command := os.Getenv("IDLEWATCH_COMMAND"); command != "" {
		cfg.Command = command
	}

	for _, flag := range []struct {
		env  string
		dest *bool
	}{
		{"IDLEWATCH_QUIET", &cfg.Quiet},
		{"IDLEWATCH_DEBUG", &cfg.Debug},
		{"IDLEWATCH_START_PAUSED", &cfg.StartPaused},
	} {
		value := os.Getenv(flag.env)
		if value == "" {
			continue
		}
		switch value {
		case "true", "1", "yes":
			*flag.dest = true
		case "false", "0", "no":
			*flag.dest = false
		default:
			return fmt.Errorf("invalid %s value: %q (use true/false)", flag.env, value)
		}
	}

	return nil
}

// Validate checks the configuration for consistency. Callers that
// mutate a loaded config, such as flag overrides, should re-validate.
func (cfg *Config) Validate() error {
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if cfg.PromptBefore < 0 {
		return fmt.Errorf("prompt_before must be non-negative")
	}

	if cfg.PromptBefore >= cfg.Timeout {
		return fmt.Errorf("prompt_before must be less than timeout")
	}

	if p := cfg.ActivitySources.FocusPolicy; p != FocusPolicyBoth && p != FocusPolicyOut {
		return fmt.Errorf("activity_sources.focus_policy must be %q or %q, got %q",
			FocusPolicyBoth, FocusPolicyOut, p)
	}

	if cfg.RateLimit.MaxMessages < 0 {
		return fmt.Errorf("rate_limit.max_messages must be non-negative")
	}

	if cfg.RateLimit.Window < 0 {
		return fmt.Errorf("rate_limit.window must be non-negative")
	}

	return nil
}
