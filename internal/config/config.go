// Package config provides optional local configuration for rgbfix.
//
// The config file lives at ~/.config/rgbfix/config.json and is only needed
// for non-standard setups: overriding which preference files get scanned,
// or defaulting to dry-run. A missing file means defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the tool's persistent settings.
type Config struct {
	// PreferencePaths overrides the discovered candidate paths. Empty
	// means use the standard system and user locations.
	PreferencePaths []string `json:"preference_paths,omitempty"`

	// DryRun makes --dry-run the default for every invocation.
	DryRun bool `json:"dry_run"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{}
}

// Manager handles configuration loading and saving.
type Manager struct {
	configPath string
	config     *Config
}

// NewManager creates a manager rooted at the user's config directory.
func NewManager() (*Manager, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locating config directory: %w", err)
	}
	return NewManagerAt(filepath.Join(dir, "rgbfix", "config.json")), nil
}

// NewManagerAt creates a manager with an explicit config file path.
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// Load reads the configuration from disk. A missing file is not an error;
// defaults remain in effect.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}
	m.config = &config
	return nil
}

// Save writes the current configuration to disk.
func (m *Manager) Save() error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	return m.config
}
