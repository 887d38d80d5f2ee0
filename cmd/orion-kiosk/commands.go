package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/config"
	"github.com/muurk/orion-kiosk/internal/display"
	"github.com/muurk/orion-kiosk/internal/energy"
	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/history"
	"github.com/muurk/orion-kiosk/internal/kiosk"
	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/render"
	"github.com/muurk/orion-kiosk/internal/simulator"
	"github.com/muurk/orion-kiosk/internal/sysinfo"
	"github.com/muurk/orion-kiosk/internal/touch"
	"github.com/muurk/orion-kiosk/internal/transport"
	"github.com/muurk/orion-kiosk/internal/ui"
	"github.com/muurk/orion-kiosk/internal/wifi"
)

// Command flags
var (
	feedInterval time.Duration
	withBroker   bool
	portalAddr   string
	allowInject  bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(networksCmd)
	rootCmd.AddCommand(historyCmd)

	networksCmd.AddCommand(networksConnectCmd)
	networksCmd.AddCommand(networksRemoveCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the kiosk on the attached hardware",
	Long: `Start the kiosk on the attached LCD and touch controller.

The display is driven over SPI and the touch controller over I2C using the
pins in the hardware section of the configuration. Telemetry is read from
the configured broker; set broker.host to "auto" to find it over mDNS.`,
	Example: `  # Start with the default configuration
  orion-kiosk run

  # Start with a specific configuration and debug logging
  orion-kiosk run --config /etc/orion/kiosk.yaml --log-level debug`,
	RunE: runKiosk,
}

func runKiosk(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	lcd, err := display.Open(cfg.Hardware)
	if err != nil {
		return fmt.Errorf("failed to open display: %w", err)
	}
	defer func() {
		if err := lcd.Close(); err != nil {
			logging.Warn("Closing display failed", zap.Error(err))
		}
	}()

	tp, err := touch.Open(cfg.Hardware)
	if err != nil {
		return fmt.Errorf("failed to open touch controller: %w", err)
	}
	defer func() {
		if err := tp.Close(); err != nil {
			logging.Warn("Closing touch controller failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := kiosk.New(cfg, tp,
		func(layout *render.Layout) render.Renderer { return render.NewFrameRenderer(layout, lcd) },
		kiosk.WithPreferences(config.PreferencesPath(path)),
		kiosk.WithTask("touch", tp.Run),
	)

	logging.Info("Starting kiosk", zap.String("config", path))
	return app.Run(ctx)
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the kiosk UI in the terminal",
	Long: `Run the kiosk UI in the terminal with a simulated energy meter.

Arrow keys (or h/j/k) swipe, enter taps, L long-presses and t taps the theme
toggle. On confirmation screens n and y tap the NO and YES buttons.
Telemetry comes from a simulated meter unless --broker is given.`,
	Example: `  # Simulated meter publishing every second
  orion-kiosk simulate

  # Use the configured broker instead of the simulated meter
  orion-kiosk simulate --broker

  # Serve the portal on another port
  orion-kiosk simulate --portal :3001

  # Drive the simulator from scripts through POST /api/gesture
  orion-kiosk simulate --portal 127.0.0.1:3001 --allow-gestures`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().DurationVar(&feedInterval, "feed-interval", time.Second, "Interval between simulated readings")
	simulateCmd.Flags().BoolVar(&withBroker, "broker", false, "Read telemetry from the configured broker")
	simulateCmd.Flags().StringVar(&portalAddr, "portal", "", "Portal listen address (default from configuration)")
	simulateCmd.Flags().BoolVar(&allowInject, "allow-gestures", false, "Accept gestures posted to the portal")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Portal.Advertise = false
	if portalAddr != "" {
		cfg.Portal.Addr = portalAddr
	}
	if allowInject {
		cfg.Portal.AllowGestures = true
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cell := &gesture.Cell{}
	var screen *simulator.Display
	var p *tea.Program

	opts := []kiosk.Option{
		kiosk.WithPreferences(config.PreferencesPath(path)),
		kiosk.WithShutdowner(shutdownFunc(func() { p.Quit() })),
	}
	if !withBroker {
		bus := transport.NewMemoryBus()
		defer func() { _ = bus.Close() }()
		opts = append(opts,
			kiosk.WithBus(bus),
			kiosk.WithTask("meter", func(ctx context.Context) error {
				return simulator.Feed(ctx, bus, cfg.Topics.Energy, feedInterval)
			}),
		)
	}

	app := kiosk.New(cfg, cell, func(layout *render.Layout) render.Renderer {
		screen = simulator.NewDisplay(layout)
		return screen
	}, opts...)

	p = tea.NewProgram(simulator.NewModel(cell), tea.WithAltScreen(), tea.WithContext(ctx))
	screen.Attach(p)

	done := make(chan error, 1)
	go func() {
		err := app.Run(ctx)
		p.Quit()
		done <- err
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-done
		return fmt.Errorf("simulator: %w", err)
	}
	cancel()
	return <-done
}

// shutdownFunc ends the simulation instead of powering off the host.
type shutdownFunc func()

func (f shutdownFunc) Shutdown(context.Context) error {
	f()
	return nil
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print the device health pages",
	Long: `Collect the device health metrics once and print them as they appear
on the Device screen.`,
	RunE: runMetrics,
}

func runMetrics(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintHeader("Device Metrics", "orion-kiosk metrics")

	svc := wifi.NewService(wifi.ExecRunner{}, cfg.Pairing)
	collector := sysinfo.NewCollector(cfg.Metrics, svc.ActiveSSID)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	m, err := collector.Collect(ctx)
	if err != nil {
		logging.Debug("Some metrics unavailable", zap.Error(err))
	}

	var details []ui.Detail
	for _, page := range m.Pages() {
		key, value, _ := strings.Cut(page, ": ")
		details = append(details, ui.Detail{Key: key, Value: value})
	}
	printer.PrintSuccess("Collected", details...)
	return nil
}

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List saved WiFi networks",
	Long: `List the WiFi connections saved in NetworkManager. The active network
is marked.`,
	RunE: runNetworks,
}

var networksConnectCmd = &cobra.Command{
	Use:   "connect NAME",
	Short: "Bring up a saved WiFi network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return networkAction(cmd, "Connect", args[0], (*wifi.Service).Connect)
	},
}

var networksRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Delete a saved WiFi network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return networkAction(cmd, "Remove", args[0], (*wifi.Service).Remove)
	},
}

func runNetworks(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())
	svc := wifi.NewService(wifi.ExecRunner{}, cfg.Pairing)

	list, err := svc.SavedNetworks(cmd.Context())
	if err != nil {
		printer.PrintError("Could not list networks", err,
			"Check that NetworkManager is running",
			"Run 'nmcli connection show' to see the raw output",
		)
		return err
	}

	printer.PrintHeader("Saved Networks", "orion-kiosk networks",
		ui.Detail{Key: "Interface", Value: cfg.Pairing.Interface},
	)
	if len(list) == 0 {
		printer.Println("  No saved networks found")
		return nil
	}
	printer.PrintList(list, svc.CurrentSSID(cmd.Context()))
	return nil
}

func networkAction(cmd *cobra.Command, verb, name string, action func(*wifi.Service, context.Context, string) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())
	svc := wifi.NewService(wifi.ExecRunner{}, cfg.Pairing)

	if err := action(svc, cmd.Context(), name); err != nil {
		printer.PrintError(verb+" failed", err, "Run 'orion-kiosk networks' to see the saved names")
		return err
	}
	printer.PrintSuccess(verb+" succeeded", ui.Detail{Key: "Network", Value: name})
	return nil
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the 24h and 7d energy statistics",
	Long: `Restore the energy history from the database (or, failing that, the
data log) and print the statistics shown on the trend views.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout())

	var opts []history.Option
	if cfg.Storage.DBPath != "" {
		if _, statErr := os.Stat(cfg.Storage.DBPath); statErr == nil {
			db, err := history.OpenSQLite(cfg.Storage.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open history database: %w", err)
			}
			defer db.Close()
			opts = append(opts, history.WithStore(db))
		}
	}

	now := time.Now()
	analyzer := history.NewAnalyzer(opts...)
	if err := analyzer.Load(cmd.Context(), cfg.Storage.LogFile, now); err != nil {
		printer.PrintError("History unavailable", err,
			"Check storage.log_file and storage.db_path in the configuration",
		)
		return err
	}

	printer.PrintHeader("Energy History", "orion-kiosk history",
		ui.Detail{Key: "Last data", Value: energy.Age(analyzer.LastData(), now)},
	)
	for _, w := range []history.Window{history.Day, history.Week} {
		st := analyzer.Stats(w)
		if st == nil {
			printer.PrintError(string(w), errors.New("no data"))
			continue
		}
		printer.PrintSuccess(string(w),
			ui.Detail{Key: "Average", Value: fmt.Sprintf("%.1f W", st.AvgPower)},
			ui.Detail{Key: "Peak", Value: fmt.Sprintf("%.1f W", st.MaxPower)},
			ui.Detail{Key: "Minimum", Value: fmt.Sprintf("%.1f W", st.MinPower)},
			ui.Detail{Key: "Energy", Value: fmt.Sprintf("%.2f kWh", st.TotalEnergy)},
			ui.Detail{Key: "Samples", Value: fmt.Sprintf("%d", st.Points)},
		)
	}
	return nil
}
