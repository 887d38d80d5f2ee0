// Orion-kiosk drives the touch-screen energy monitor.
//
// It renders the menus on the round LCD, reads gestures from the touch
// controller, follows the energy meter's telemetry over MQTT or NATS and
// serves a small status portal on the local network.
//
// Usage:
//
//	orion-kiosk [command] [flags]
//
// Running without arguments starts the kiosk on the attached hardware.
// 'orion-kiosk simulate' runs the same UI in the terminal with a simulated
// meter. See 'orion-kiosk --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/orion-kiosk/internal/config"
	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "orion-kiosk",
	Short: "Orion energy monitor kiosk",
	Long: `Touch-screen kiosk for the Orion energy meter.

Shows live power, energy trends and device health on a 240x240 round LCD,
and handles WiFi setup and pairing with the meter.

If no command is specified, the kiosk starts on the attached hardware.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runKiosk,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file (default $XDG_CONFIG_HOME/orion/kiosk.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $"+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("orion-kiosk %s (commit: %s, %s, %s)\n", info.Version, info.Commit, info.GoVersion, info.Platform)
	},
}

// loadConfig reads the configuration selected by --config and returns it
// with the path it was read from.
func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}
