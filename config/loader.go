package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level settings file.
	ProjectConfigFile = "metacast.yaml"
	// UserConfigDir is the directory for user-level settings.
	UserConfigDir = ".config/metacast"
	// UserConfigFile is the name of the user-level settings file.
	UserConfigFile = "config.yaml"
)

// Loader handles settings loading with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new settings loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads settings with layered precedence:
// 1. Default settings
// 2. User settings (~/.config/metacast/config.yaml)
// 3. Project settings (metacast.yaml in current or parent directories)
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfig, err := LoadFromFile(userConfigPath); err == nil {
		l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		config.Merge(userConfig)
	} else if !errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
	}

	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if projectConfig, err := LoadFromFile(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	// Auto-detect the hierarchy root if not set
	if config.Hierarchy.Root == "" {
		if root := l.findHierarchyRoot(); root != "" {
			config.Hierarchy.Root = root
			l.logger.Debug("Auto-detected hierarchy root", slog.String("path", root))
		} else if cwd, err := os.Getwd(); err == nil {
			config.Hierarchy.Root = filepath.Join(cwd, "config")
			l.logger.Debug("Using ./config as hierarchy root", slog.String("path", config.Hierarchy.Root))
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// EnsureUserConfig creates the user settings file with defaults if it doesn't
// exist.
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()

	if _, err := os.Stat(userConfigPath); err == nil {
		return nil // Already exists
	}

	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

// userConfigPath returns the path to the user settings file.
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for metacast.yaml in current and parent
// directories.
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// findHierarchyRoot walks up from the working directory looking for a config
// directory containing the global defaults file.
func (l *Loader) findHierarchyRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		candidate := filepath.Join(dir, "config", GlobalDefaultsFile)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Join(dir, "config")
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
