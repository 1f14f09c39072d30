package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Completion.Endpoint == "" {
		t.Error("expected a default completion endpoint")
	}
	if cfg.Completion.MaxAttempts != 3 {
		t.Errorf("expected 3 completion attempts, got %d", cfg.Completion.MaxAttempts)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("expected 4 batch workers, got %d", cfg.Batch.Workers)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected info log level, got %s", cfg.Log.Level)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing completion endpoint",
			modify:  func(c *Config) { c.Completion.Endpoint = "" },
			wantErr: true,
		},
		{
			name:    "zero completion attempts",
			modify:  func(c *Config) { c.Completion.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "zero batch workers",
			modify:  func(c *Config) { c.Batch.Workers = 0 },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "metacast.yaml")

	cfg := DefaultConfig()
	cfg.Completion.Endpoint = "http://example.test/complete"
	cfg.Completion.Timeout = 10 * time.Second
	cfg.Batch.Workers = 8

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Completion.Endpoint != "http://example.test/complete" {
		t.Errorf("expected endpoint round-trip, got %s", loaded.Completion.Endpoint)
	}
	if loaded.Batch.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", loaded.Batch.Workers)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	other := &Config{}
	other.Completion.Endpoint = "http://override.test"
	other.Log.Level = "debug"

	base.Merge(other)

	if base.Completion.Endpoint != "http://override.test" {
		t.Errorf("expected merged endpoint, got %s", base.Completion.Endpoint)
	}
	if base.Log.Level != "debug" {
		t.Errorf("expected merged log level, got %s", base.Log.Level)
	}
	// Zero values in other must not clobber base
	if base.Batch.Workers != 4 {
		t.Errorf("expected base workers preserved, got %d", base.Batch.Workers)
	}
}
