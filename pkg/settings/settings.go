// Package settings manages persistent user preferences for the stonegate
// CLI — defaults that let an operator avoid retyping the same flags.
package settings

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultGraphPath is the canonical device graph location used when no
// override is configured.
const DefaultGraphPath = "shared/protocol/DeviceGraph.json"

// Settings holds persistent user preferences, stored as YAML under
// ~/.stonegate/config.yaml.
type Settings struct {
	// DefaultPort overrides the per-mode hardcoded default (9001/8080).
	DefaultPort int `yaml:"default_port,omitempty"`

	// GraphPath overrides the default device graph location.
	GraphPath string `yaml:"graph_path,omitempty"`

	// RedisAddr, when set, enables the optional status mirror (see
	// pkg/mirror) without requiring a CLI flag on every invocation.
	RedisAddr string `yaml:"redis_addr,omitempty"`

	// LogJSON switches the default log formatter to JSON.
	LogJSON bool `yaml:"log_json,omitempty"`

	// Verbose enables debug-level logging by default.
	Verbose bool `yaml:"verbose,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file.
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "stonegate_settings.yaml"
	}
	return filepath.Join(home, ".stonegate", "config.yaml")
}

// Load reads settings from the default location.
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. A missing file yields empty
// (zero-value) settings rather than an error.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes settings to the default location.
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path, creating parent directories
// as needed.
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetGraphPath returns the configured graph path with a fallback default.
func (s *Settings) GetGraphPath() string {
	if s.GraphPath != "" {
		return s.GraphPath
	}
	return DefaultGraphPath
}

// Clear resets all settings to their zero values.
func (s *Settings) Clear() {
	*s = Settings{}
}
