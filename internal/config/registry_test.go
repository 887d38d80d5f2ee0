package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "orion") {
		t.Errorf("GetConfigDir() = %v, should contain 'orion'", configDir)
	}

	if runtime.GOOS == "darwin" && !strings.Contains(configDir, ".config") {
		t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
	}
}

func TestGetConfigDirHonoursXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG only applies on linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if dir != "/tmp/xdg/orion" {
		t.Errorf("GetConfigDir() = %v, want /tmp/xdg/orion", dir)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.UI.StandbyTimeout != 60*time.Second {
		t.Errorf("StandbyTimeout = %v, want 60s", cfg.UI.StandbyTimeout)
	}
	if cfg.UI.GestureDebounce != 250*time.Millisecond {
		t.Errorf("GestureDebounce = %v, want 250ms", cfg.UI.GestureDebounce)
	}
	if cfg.Topics.Energy != "energy/metrics" {
		t.Errorf("Topics.Energy = %q", cfg.Topics.Energy)
	}
	if got := strings.Join(cfg.UI.EnergyViews, ","); got != "text,bar,line" {
		t.Errorf("EnergyViews = %v, want text,bar,line", got)
	}
	if cfg.Portal.AllowGestures {
		t.Error("Portal.AllowGestures should default to false")
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiosk.yaml")
	data := `version: 1
broker:
  transport: nats
  port: 4222
ui:
  standby_timeout: 2m
  energy_views: [text, 24h, 7d]
portal:
  allow_gestures: true
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Broker.Transport != "nats" || cfg.Broker.Port != 4222 {
		t.Errorf("Broker = %+v", cfg.Broker)
	}
	if cfg.Broker.Host != "localhost" {
		t.Errorf("Broker.Host = %q, want default localhost", cfg.Broker.Host)
	}
	if cfg.UI.StandbyTimeout != 2*time.Minute {
		t.Errorf("StandbyTimeout = %v, want 2m", cfg.UI.StandbyTimeout)
	}
	if cfg.UI.GestureDebounce != 250*time.Millisecond {
		t.Errorf("GestureDebounce = %v, want default", cfg.UI.GestureDebounce)
	}
	if len(cfg.UI.EnergyViews) != 3 || cfg.UI.EnergyViews[1] != "24h" {
		t.Errorf("EnergyViews = %v", cfg.UI.EnergyViews)
	}
	if !cfg.Portal.AllowGestures || cfg.Portal.Addr != ":3000" {
		t.Errorf("Portal = %+v, want allow_gestures on default addr", cfg.Portal)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad version", "version: 2\n"},
		{"bad transport", "version: 1\nbroker:\n  transport: kafka\n"},
		{"unknown view", "version: 1\nui:\n  energy_views: [pie]\n"},
		{"empty views", "version: 1\nui:\n  energy_views: []\n"},
		{"bad pairing mode", "version: 1\npairing:\n  mode: bluetooth\n"},
		{"not yaml", "version: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "kiosk.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() should have failed")
			}
		})
	}
}

func TestConfigSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kiosk.yaml")

	cfg := Default()
	cfg.Portal.Addr = ":8080"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after save")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Portal.Addr != ":8080" {
		t.Errorf("Portal.Addr = %q, want :8080", loaded.Portal.Addr)
	}
}

func TestPreferences(t *testing.T) {
	path := PreferencesPath(filepath.Join(t.TempDir(), "kiosk.yaml"))

	prefs, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("LoadPreferences() error = %v", err)
	}
	if prefs.Theme != "" {
		t.Errorf("Theme = %q, want empty", prefs.Theme)
	}

	prefs.Theme = "light"
	if err := prefs.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	again, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("LoadPreferences() error = %v", err)
	}
	if again.Theme != "light" {
		t.Errorf("Theme = %q, want light", again.Theme)
	}
}
