// Package config loads the kiosk configuration and persists on-device
// preferences.
//
// The configuration is a YAML file; every field has a default (see Default),
// so an absent file or a partial file is valid. Durations use Go syntax
// ("250ms", "60s").
//
// # File Location
//
//   - Linux: $XDG_CONFIG_HOME/orion/kiosk.yaml or $HOME/.config/orion/kiosk.yaml
//   - macOS: $HOME/.config/orion/kiosk.yaml
//   - Windows: %LOCALAPPDATA%\orion\kiosk.yaml
//
// The --config flag overrides the location. Preferences changed from the
// touchscreen (currently the theme) are stored in preferences.yaml next to
// the configuration file so the configuration itself stays hand-edited.
//
// # Usage Example
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	prefs, _ := config.LoadPreferences(config.PreferencesPath(path))
//
// Writes go to a temporary file that is renamed into place, so a power loss
// never leaves a truncated file behind.
package config
