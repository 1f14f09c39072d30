// Package config provides the five-level configuration hierarchy behind field
// resolution (global defaults, publisher, group, item, caller overrides) and
// the engine's own settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete metacast settings file.
type Config struct {
	Completion CompletionConfig `yaml:"completion"`
	Hierarchy  HierarchyConfig  `yaml:"hierarchy"`
	Batch      BatchConfig      `yaml:"batch"`
	Log        LogConfig        `yaml:"log"`
}

// CompletionConfig configures the external completion collaborator.
type CompletionConfig struct {
	// Endpoint is the completion service URL.
	Endpoint string `yaml:"endpoint"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout"`
	// MaxAttempts bounds retries per completion call.
	MaxAttempts int `yaml:"max_attempts"`
	// BackoffBase is the initial retry backoff.
	BackoffBase time.Duration `yaml:"backoff_base"`
}

// HierarchyConfig configures the configuration hierarchy location.
type HierarchyConfig struct {
	// Root is the config hierarchy root directory (auto-detected if empty).
	Root string `yaml:"root"`
	// Watch enables fsnotify-based reload on file changes.
	Watch bool `yaml:"watch"`
}

// BatchConfig configures batch resolution.
type BatchConfig struct {
	// Workers is the number of items resolved concurrently.
	Workers int `yaml:"workers"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the slog level name: debug, info, warn, or error.
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Completion: CompletionConfig{
			Endpoint:    "http://localhost:8742/v1/complete",
			Timeout:     30 * time.Second,
			MaxAttempts: 3,
			BackoffBase: 2 * time.Second,
		},
		Hierarchy: HierarchyConfig{
			Root:  "", // Auto-detect
			Watch: false,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Completion.Endpoint == "" {
		return fmt.Errorf("completion.endpoint is required")
	}
	if c.Completion.MaxAttempts < 1 {
		return fmt.Errorf("completion.max_attempts must be at least 1")
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error")
	}
	return nil
}

// LoadFromFile loads settings from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves settings to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Completion.Endpoint != "" {
		c.Completion.Endpoint = other.Completion.Endpoint
	}
	if other.Completion.Timeout != 0 {
		c.Completion.Timeout = other.Completion.Timeout
	}
	if other.Completion.MaxAttempts != 0 {
		c.Completion.MaxAttempts = other.Completion.MaxAttempts
	}
	if other.Completion.BackoffBase != 0 {
		c.Completion.BackoffBase = other.Completion.BackoffBase
	}

	if other.Hierarchy.Root != "" {
		c.Hierarchy.Root = other.Hierarchy.Root
	}
	if other.Hierarchy.Watch {
		c.Hierarchy.Watch = true
	}

	if other.Batch.Workers != 0 {
		c.Batch.Workers = other.Batch.Workers
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
