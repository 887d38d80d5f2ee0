package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName         = "orion"
	configFile      = "kiosk.yaml"
	preferencesFile = "preferences.yaml"
)

// fileMutex serialises writes from the UI loop and the CLI.
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
//   - Linux: $XDG_CONFIG_HOME/orion or $HOME/.config/orion
//   - macOS: $HOME/.config/orion
//   - Windows: %LOCALAPPDATA%\orion
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && runtime.GOOS != "darwin" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// PreferencesPath returns the preferences file that sits next to the
// configuration file at configPath.
func PreferencesPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), preferencesFile)
}

// Load reads the configuration at path. An empty path selects the default
// location. A missing file yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d (expected 1)", cfg.Version)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise break the navigation loop.
func (c *Config) Validate() error {
	switch c.Broker.Transport {
	case "mqtt", "nats", "none":
	default:
		return fmt.Errorf("broker.transport %q: must be mqtt, nats or none", c.Broker.Transport)
	}

	if c.UI.ActivePoll <= 0 || c.UI.StandbyPoll <= 0 {
		return fmt.Errorf("ui poll intervals must be positive")
	}
	if c.UI.StandbyTimeout <= 0 {
		return fmt.Errorf("ui.standby_timeout must be positive")
	}
	if len(c.UI.EnergyViews) == 0 {
		return fmt.Errorf("ui.energy_views must list at least one view")
	}
	for _, v := range c.UI.EnergyViews {
		switch v {
		case "text", "bar", "line", "24h", "7d":
		default:
			return fmt.Errorf("ui.energy_views: unknown view %q", v)
		}
	}

	switch c.Pairing.Mode {
	case "ap", "portal":
	default:
		return fmt.Errorf("pairing.mode %q: must be ap or portal", c.Pairing.Mode)
	}
	if c.Metrics.Interval <= 0 {
		return fmt.Errorf("metrics.interval must be positive")
	}

	return nil
}

// Save writes the configuration to path atomically.
func (c *Config) Save(path string) error {
	header := "# Orion kiosk configuration\n# Location: " + path + "\n\n"
	return writeYAML(path, header, c)
}

// LoadPreferences reads the preferences file. A missing file yields an
// empty Preferences.
func LoadPreferences(path string) (*Preferences, error) {
	prefs := &Preferences{}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	if err := yaml.Unmarshal(data, prefs); err != nil {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}
	return prefs, nil
}

// Save writes the preferences to path atomically.
func (p *Preferences) Save(path string) error {
	return writeYAML(path, "", p)
}

func writeYAML(path, header string, v any) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append([]byte(header), data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}

	return nil
}
