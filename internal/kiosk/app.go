package kiosk

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/orion-kiosk/internal/config"
	"github.com/muurk/orion-kiosk/internal/datalog"
	"github.com/muurk/orion-kiosk/internal/discovery"
	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/history"
	"github.com/muurk/orion-kiosk/internal/instrument"
	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/menu"
	"github.com/muurk/orion-kiosk/internal/nav"
	"github.com/muurk/orion-kiosk/internal/pairing"
	"github.com/muurk/orion-kiosk/internal/render"
	"github.com/muurk/orion-kiosk/internal/server"
	"github.com/muurk/orion-kiosk/internal/state"
	"github.com/muurk/orion-kiosk/internal/sysinfo"
	"github.com/muurk/orion-kiosk/internal/telemetry"
	"github.com/muurk/orion-kiosk/internal/transport"
	"github.com/muurk/orion-kiosk/internal/wifi"
)

// SplashText is shown before the first menu is drawn.
const SplashText = "Welcome\nTo\nOrion"

var (
	_ menu.Pairer   = (*pairing.Flow)(nil)
	_ menu.Networks = (*wifi.Service)(nil)
)

// RendererFactory builds the display renderer for a layout.
type RendererFactory func(layout *render.Layout) render.Renderer

// Task is an extra goroutine supervised with the kiosk's own.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// App is a fully wired kiosk.
type App struct {
	cfg       *config.Config
	prefsPath string

	store    *state.Store
	layout   *render.Layout
	renderer render.Renderer
	source   gesture.Source

	bus      transport.Bus
	ownsBus  bool
	runner   wifi.Runner
	reg      prometheus.Registerer
	tasks    []Task
	shutdown menu.Shutdowner
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures an App.
type Option func(*App)

// WithBus uses bus instead of connecting to the configured broker. The
// caller keeps ownership of bus.
func WithBus(bus transport.Bus) Option {
	return func(a *App) { a.bus = bus }
}

// WithRunner replaces the host command runner used for nmcli and shutdown.
func WithRunner(r wifi.Runner) Option {
	return func(a *App) { a.runner = r }
}

// WithRegisterer registers the kiosk metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(a *App) { a.reg = reg }
}

// WithTask supervises an extra goroutine.
func WithTask(name string, run func(ctx context.Context) error) Option {
	return func(a *App) { a.tasks = append(a.tasks, Task{Name: name, Run: run}) }
}

// WithShutdowner replaces the power-off action.
func WithShutdowner(s menu.Shutdowner) Option {
	return func(a *App) { a.shutdown = s }
}

// WithPreferences persists user choices at path.
func WithPreferences(path string) Option {
	return func(a *App) { a.prefsPath = path }
}

// New creates an App. source delivers gestures; when it also implements
// gesture.Pointer, taps are hit-tested, and when it implements
// server.Injector the portal can inject gestures into it.
func New(cfg *config.Config, source gesture.Source, newRenderer RendererFactory, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		source: source,
		runner: wifi.ExecRunner{},
		reg:    prometheus.DefaultRegisterer,
		now:    time.Now,
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.shutdown == nil {
		a.shutdown = NewCommandShutdown(a.runner)
	}

	a.store = state.New(a.now(), a.initialTheme())
	a.layout = render.NewLayout(cfg.UI.EnergyViews, cfg.Portal.URL)
	a.renderer = newRenderer(a.layout)
	return a
}

// Store returns the shared state.
func (a *App) Store() *state.Store { return a.store }

// Renderer returns the display renderer.
func (a *App) Renderer() render.Renderer { return a.renderer }

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.splash(ctx); err != nil {
		return nil
	}

	bus, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if a.ownsBus {
			if err := bus.Close(); err != nil {
				logging.Warn("Closing broker connection failed", zap.Error(err))
			}
		}
	}()

	inst := instrument.New(a.reg)
	instrument.WatchStore(a.reg, a.store)

	analyzer, closeHistory := a.openHistory(ctx)
	defer closeHistory()

	ingestOpts := []telemetry.Option{
		telemetry.WithAnalyzer(analyzer),
		telemetry.WithScanFile(a.cfg.Storage.ScanFile),
		telemetry.WithObserver(inst),
	}
	if dl, err := datalog.New(a.cfg.Storage.LogFile); err != nil {
		logging.Warn("Data log disabled", zap.Error(err))
	} else {
		ingestOpts = append(ingestOpts, telemetry.WithDataLog(dl))
	}
	ingest := telemetry.NewIngest(a.store, a.cfg.Topics, ingestOpts...)
	if err := ingest.Subscribe(bus); err != nil {
		return fmt.Errorf("subscribe telemetry: %w", err)
	}

	wifiSvc := wifi.NewService(a.runner, a.cfg.Pairing)
	a.layout.CurrentSSID = func() string { return wifiSvc.CurrentSSID(ctx) }
	pointer, _ := a.source.(gesture.Pointer)

	menus := menu.NewSet(menu.Deps{
		Store:       a.store,
		Renderer:    a.renderer,
		Layout:      a.layout,
		Pointer:     pointer,
		Networks:    wifiSvc,
		Pairer:      pairing.NewFlow(wifiSvc, nil, a.cfg.Pairing),
		Shutdown:    a.shutdown,
		PairingMode: a.cfg.Pairing.Mode,
		OnTheme:     a.saveTheme,
	})
	engine := nav.New(navConfig(a.cfg.UI), a.store, a.source, menus, a.renderer, nav.WithObserver(inst))

	refresher := sysinfo.NewRefresher(
		sysinfo.NewCollector(a.cfg.Metrics, wifiSvc.ActiveSSID),
		a.store,
		a.cfg.Metrics.Interval,
	)
	heartbeat := telemetry.NewHeartbeat(bus, a.store, a.cfg.Topics.Status, a.cfg.Broker.Heartbeat)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(gctx) })
	g.Go(func() error { return refresher.Run(gctx) })
	g.Go(func() error { return heartbeat.Run(gctx) })

	if a.cfg.Portal.Enabled {
		a.startPortal(gctx, g)
	}
	for _, t := range a.tasks {
		g.Go(func() error {
			if err := t.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", t.Name, err)
			}
			return nil
		})
	}

	logging.Info("Kiosk running",
		zap.String("transport", a.cfg.Broker.Transport),
		zap.Bool("portal", a.cfg.Portal.Enabled),
		zap.Int("tasks", len(a.tasks)),
	)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) splash(ctx context.Context) error {
	if a.cfg.UI.Splash <= 0 {
		return nil
	}
	if err := a.renderer.Message(a.store.Snapshot().Theme, SplashText); err != nil {
		logging.Warn("Splash render failed", zap.Error(err))
	}
	return a.sleep(ctx, a.cfg.UI.Splash)
}

// connect returns the injected bus or dials the configured broker,
// resolving it over mDNS when its host is "auto".
func (a *App) connect(ctx context.Context) (transport.Bus, error) {
	if a.bus != nil {
		return a.bus, nil
	}

	broker := a.cfg.Broker
	if broker.Host == "auto" {
		svc, err := discovery.FindBroker(ctx, broker.Transport, broker.Timeout)
		if err != nil {
			return nil, fmt.Errorf("resolve broker: %w", err)
		}
		broker.Host, broker.Port = svc.IP, svc.Port
	}

	bus, err := transport.New(broker)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	a.ownsBus = true
	return bus, nil
}

func (a *App) openHistory(ctx context.Context) (*history.Analyzer, func()) {
	var opts []history.Option
	closeFn := func() {}

	if path := a.cfg.Storage.DBPath; path != "" {
		db, err := history.OpenSQLite(path)
		if err != nil {
			logging.Warn("History database unavailable", zap.String("path", path), zap.Error(err))
		} else {
			opts = append(opts, history.WithStore(db))
			closeFn = func() {
				if err := db.Close(); err != nil {
					logging.Warn("Closing history database failed", zap.Error(err))
				}
			}
		}
	}

	analyzer := history.NewAnalyzer(opts...)
	if err := analyzer.Load(ctx, a.cfg.Storage.LogFile, a.now()); err != nil {
		logging.Warn("History not restored", zap.Error(err))
	}
	return analyzer, closeFn
}

// newPortal builds the portal. Gestures are injected only when the
// configuration opts in and the gesture source can take them.
func (a *App) newPortal() *server.Server {
	var opts []server.Option
	if a.cfg.Portal.AllowGestures {
		if inj, ok := a.source.(server.Injector); ok {
			opts = append(opts, server.WithInjector(inj))
			logging.Warn("Portal gesture injection enabled", zap.String("addr", a.cfg.Portal.Addr))
		}
	}
	if frames, ok := a.renderer.(server.Frames); ok {
		opts = append(opts, server.WithFrames(frames))
	}
	return server.New(a.cfg.Portal, a.store, opts...)
}

func (a *App) startPortal(ctx context.Context, g *errgroup.Group) {
	srv := a.newPortal()
	g.Go(func() error {
		if err := srv.Start(ctx); err != nil {
			logging.Error("Portal stopped", zap.Error(err))
		}
		return nil
	})

	if !a.cfg.Portal.Advertise {
		return
	}
	port, err := portOf(a.cfg.Portal.Addr)
	if err != nil {
		logging.Warn("mDNS advertisement disabled", zap.Error(err))
		return
	}
	g.Go(func() error {
		if err := discovery.Advertise(ctx, a.cfg.Portal.Instance, port, []string{"path=/"}); err != nil {
			// Not fatal: the portal stays reachable by address.
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		}
		return nil
	})
}

func (a *App) initialTheme() state.Theme {
	theme := state.ParseTheme(a.cfg.UI.Theme)
	if a.prefsPath == "" {
		return theme
	}
	prefs, err := config.LoadPreferences(a.prefsPath)
	if err != nil {
		logging.Warn("Preferences not loaded", zap.String("path", a.prefsPath), zap.Error(err))
		return theme
	}
	if prefs.Theme == "" {
		return theme
	}
	return state.ParseTheme(prefs.Theme)
}

func (a *App) saveTheme(t state.Theme) {
	if a.prefsPath == "" {
		return
	}
	prefs := &config.Preferences{Theme: string(t)}
	if err := prefs.Save(a.prefsPath); err != nil {
		logging.Warn("Saving preferences failed", zap.Error(err))
		return
	}
	logging.Debug("Theme saved", zap.String("theme", string(t)))
}

func navConfig(ui config.UI) nav.Config {
	return nav.Config{
		StandbyTimeout:  ui.StandbyTimeout,
		GestureDebounce: ui.GestureDebounce,
		RenderThrottle:  ui.RenderThrottle,
		ScrollSpeed:     ui.ScrollSpeed,
		ActivePoll:      ui.ActivePoll,
		StandbyPoll:     ui.StandbyPoll,
	}
}

func portOf(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid portal address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("invalid portal port %q", p)
	}
	return port, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
