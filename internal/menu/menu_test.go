package menu

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/muurk/orion-kiosk/internal/energy"
	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/render"
	"github.com/muurk/orion-kiosk/internal/state"
	"github.com/muurk/orion-kiosk/internal/wifi"
)

type fakeRenderer struct {
	renders  int
	messages []string
}

func (f *fakeRenderer) Render(state.Model) error { f.renders++; return nil }
func (f *fakeRenderer) Message(_ state.Theme, text string) error {
	f.messages = append(f.messages, text)
	return nil
}
func (f *fakeRenderer) Sleep() error { return nil }
func (f *fakeRenderer) Wake() error  { return nil }

func (f *fakeRenderer) lastMessage() string {
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

type fakePointer struct{ p image.Point }

func (f *fakePointer) Point() image.Point { return f.p }

type fakeNetworks struct {
	current    string
	saved      []string
	connectErr error
	removeErr  error
	connected  []string
	removed    []string
}

func (f *fakeNetworks) CurrentSSID(context.Context) string { return f.current }
func (f *fakeNetworks) SavedNetworks(context.Context) ([]string, error) {
	return f.saved, nil
}
func (f *fakeNetworks) Connect(_ context.Context, name string) error {
	f.connected = append(f.connected, name)
	return f.connectErr
}
func (f *fakeNetworks) Remove(_ context.Context, name string) error {
	f.removed = append(f.removed, name)
	return f.removeErr
}

type fakePairer struct {
	calls int
	msg   string
	err   error
}

func (f *fakePairer) Pair(_ context.Context, progress func(string)) (string, error) {
	f.calls++
	progress("Looking for\nEnergy Meter")
	return f.msg, f.err
}

type fakeShutdown struct {
	calls int
	err   error
}

func (f *fakeShutdown) Shutdown(context.Context) error {
	f.calls++
	return f.err
}

type fixture struct {
	store    *state.Store
	renderer *fakeRenderer
	pointer  *fakePointer
	networks *fakeNetworks
	pairer   *fakePairer
	shutdown *fakeShutdown
	deps     Deps
}

func newFixture() *fixture {
	f := &fixture{
		store:    state.New(time.Now(), state.ThemeDark),
		renderer: &fakeRenderer{},
		pointer:  &fakePointer{},
		networks: &fakeNetworks{},
		pairer:   &fakePairer{msg: "Pairing complete!"},
		shutdown: &fakeShutdown{},
	}
	f.deps = Deps{
		Store:    f.store,
		Renderer: f.renderer,
		Layout:   render.NewLayout([]string{render.ViewText, render.ViewBar}, "http://orion.local:3000"),
		Pointer:  f.pointer,
		Networks: f.networks,
		Pairer:   f.pairer,
		Shutdown: f.shutdown,
		Sleep:    func(time.Duration) {},
	}
	return f
}

func (f *fixture) set() *Set { return NewSet(f.deps) }

func (f *fixture) at(m state.Menu, setup func(*state.Model)) {
	f.store.Update(func(s *state.Model) {
		s.Menu = m
		if setup != nil {
			setup(s)
		}
	})
}

func center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

func TestMainMenu(t *testing.T) {
	tests := []struct {
		name     string
		selected int
		gesture  gesture.Code
		wantSel  int
		wantMenu state.Menu
		wantOK   bool
	}{
		{"down", 0, gesture.Down, 1, 0, false},
		{"up wraps", 0, gesture.Up, 3, 0, false},
		{"down wraps", 3, gesture.Down, 0, 0, false},
		{"tap energy", 0, gesture.Tap, 0, state.MenuEnergy, true},
		{"tap device", 1, gesture.Tap, 1, state.MenuDevice, true},
		{"tap wifi", 2, gesture.Tap, 2, state.MenuWiFi, true},
		{"tap shutdown", 3, gesture.Tap, 3, state.MenuConfirmShutdown, true},
		{"left ignored", 2, gesture.Left, 2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.at(state.MenuMain, func(m *state.Model) { m.SelectedOption = tt.selected })

			next, ok := f.set().Handle(context.Background(), state.MenuMain, tt.gesture)

			if ok != tt.wantOK || (ok && next != tt.wantMenu) {
				t.Errorf("Handle() = (%v, %v), want (%v, %v)", next, ok, tt.wantMenu, tt.wantOK)
			}
			if got := f.store.Snapshot().SelectedOption; got != tt.wantSel {
				t.Errorf("SelectedOption = %d, want %d", got, tt.wantSel)
			}
		})
	}
}

func TestMainMenuThemeToggle(t *testing.T) {
	f := newFixture()
	var persisted []state.Theme
	f.deps.OnTheme = func(th state.Theme) { persisted = append(persisted, th) }
	f.pointer.p = center(render.ThemeToggle())

	s := f.set()
	if _, ok := s.Handle(context.Background(), state.MenuMain, gesture.Tap); ok {
		t.Fatal("toggle tap should not navigate")
	}
	if got := f.store.Snapshot().Theme; got != state.ThemeLight {
		t.Errorf("Theme = %v, want light", got)
	}

	s.Handle(context.Background(), state.MenuMain, gesture.Tap)
	if got := f.store.Snapshot().Theme; got != state.ThemeDark {
		t.Errorf("Theme = %v, want dark", got)
	}
	if len(persisted) != 2 || persisted[0] != state.ThemeLight {
		t.Errorf("OnTheme calls = %v", persisted)
	}
	if f.renderer.renders != 2 {
		t.Errorf("renders = %d, want 2", f.renderer.renders)
	}
}

func TestWiFiMenuNavigation(t *testing.T) {
	f := newFixture()
	f.at(state.MenuWiFi, nil)
	s := f.set()

	s.Handle(context.Background(), state.MenuWiFi, gesture.Up)
	if got := f.store.Snapshot().WiFiSelected; got != len(render.WiFiOptions)-1 {
		t.Errorf("WiFiSelected = %d, want last", got)
	}

	next, ok := s.Handle(context.Background(), state.MenuWiFi, gesture.Left)
	if !ok || next != state.MenuMain {
		t.Errorf("LEFT = (%v, %v), want Main", next, ok)
	}
}

func TestWiFiPair(t *testing.T) {
	f := newFixture()
	f.at(state.MenuWiFi, func(m *state.Model) { m.WiFiSelected = wifiPair })

	next, ok := f.set().Handle(context.Background(), state.MenuWiFi, gesture.Tap)

	if ok {
		t.Errorf("pairing navigated to %v", next)
	}
	if f.pairer.calls != 1 {
		t.Errorf("Pair calls = %d, want 1", f.pairer.calls)
	}
	if f.renderer.messages[0] != "Pairing" {
		t.Errorf("first frame = %q, want Pairing", f.renderer.messages[0])
	}
	if got := f.renderer.lastMessage(); got != "Pairing complete!" {
		t.Errorf("last message = %q", got)
	}
	if f.renderer.renders != 1 {
		t.Errorf("menu redrawn %d times, want 1", f.renderer.renders)
	}
}

func TestWiFiPairFailureShowsReason(t *testing.T) {
	f := newFixture()
	f.pairer.msg = "Energy Meter not found"
	f.pairer.err = errors.New("ssid not visible")
	f.at(state.MenuWiFi, func(m *state.Model) { m.WiFiSelected = wifiPair })

	f.set().Handle(context.Background(), state.MenuWiFi, gesture.Tap)

	if got := f.renderer.lastMessage(); got != "Energy Meter not found" {
		t.Errorf("last message = %q", got)
	}
}

func TestWiFiChange(t *testing.T) {
	t.Run("access point", func(t *testing.T) {
		f := newFixture()
		f.at(state.MenuWiFi, func(m *state.Model) { m.WiFiSelected = wifiChange })

		f.set().Handle(context.Background(), state.MenuWiFi, gesture.Tap)

		if f.renderer.messages[0] != "Triggering\nAP mode..." {
			t.Errorf("first message = %q", f.renderer.messages[0])
		}
		if f.pairer.calls != 1 {
			t.Errorf("Pair calls = %d, want 1", f.pairer.calls)
		}
	})

	t.Run("portal", func(t *testing.T) {
		f := newFixture()
		f.deps.PairingMode = PairingPortal
		f.at(state.MenuWiFi, func(m *state.Model) { m.WiFiSelected = wifiChange })
		s := f.set()

		s.Handle(context.Background(), state.MenuWiFi, gesture.Tap)
		if !f.store.Snapshot().InQRMode {
			t.Fatal("portal mode should show the QR screen")
		}
		if f.pairer.calls != 0 {
			t.Error("portal mode must not run the pairing flow")
		}

		s.Handle(context.Background(), state.MenuWiFi, gesture.Down)
		if !f.store.Snapshot().InQRMode {
			t.Error("DOWN should be ignored on the QR screen")
		}

		next, ok := s.Handle(context.Background(), state.MenuWiFi, gesture.Left)
		if !ok || next != state.MenuWiFi || f.store.Snapshot().InQRMode {
			t.Errorf("LEFT = (%v, %v), qr = %v", next, ok, f.store.Snapshot().InQRMode)
		}
	})
}

func TestWiFiSavedNetworks(t *testing.T) {
	f := newFixture()
	f.networks.saved = []string{"Home", "Office", "Cabin"}
	f.at(state.MenuWiFi, func(m *state.Model) { m.WiFiSelected = wifiSaved })
	s := f.set()
	ctx := context.Background()

	s.Handle(ctx, state.MenuWiFi, gesture.Tap)
	s.Handle(ctx, state.MenuWiFi, gesture.Up)

	m := f.store.Snapshot()
	if !m.InSavedNetworks || m.SavedNetworksSelected != 2 {
		t.Fatalf("saved=%v sel=%d, want list with last row selected", m.InSavedNetworks, m.SavedNetworksSelected)
	}

	next, ok := s.Handle(ctx, state.MenuWiFi, gesture.Tap)
	if !ok || next != state.MenuConfirmNetwork {
		t.Fatalf("TAP = (%v, %v), want ConfirmNetwork", next, ok)
	}
	if got := f.store.Snapshot().NetworkToConnect; got != "Cabin" {
		t.Errorf("NetworkToConnect = %q, want Cabin", got)
	}
}

func TestWiFiSavedNetworksLeft(t *testing.T) {
	f := newFixture()
	f.at(state.MenuWiFi, func(m *state.Model) { m.EnterSavedNetworks([]string{"Home"}) })

	next, ok := f.set().Handle(context.Background(), state.MenuWiFi, gesture.Left)

	if !ok || next != state.MenuWiFi {
		t.Errorf("LEFT = (%v, %v), want WiFi", next, ok)
	}
	if m := f.store.Snapshot(); m.InSavedNetworks || m.SavedNetworks != nil {
		t.Errorf("list not cleared: %+v", m.SavedNetworks)
	}
}

func TestWiFiRemove(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		removeErr error
		want      string
		removed   int
	}{
		{"no connection", "", nil, "No active\nconnection", 0},
		{"removed", "Home", nil, "WiFi removed", 1},
		{"failure", "Home", errors.New("exit status 10"), "Failed to\nremove\nExit status 10", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.networks.current = tt.current
			f.networks.removeErr = tt.removeErr
			f.at(state.MenuWiFi, func(m *state.Model) { m.WiFiSelected = wifiRemove })

			f.set().Handle(context.Background(), state.MenuWiFi, gesture.Tap)

			if got := f.renderer.lastMessage(); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
			if len(f.networks.removed) != tt.removed {
				t.Errorf("Remove calls = %d, want %d", len(f.networks.removed), tt.removed)
			}
		})
	}
}

func TestEnergyMenu(t *testing.T) {
	f := newFixture()
	f.store.SetEnergy(energy.Reading{
		Voltage:    energy.Number(230.1),
		TotalPower: energy.Number(1520.5),
	})
	f.at(state.MenuEnergy, nil)
	s := f.set()
	ctx := context.Background()
	pages := len(f.store.Snapshot().EnergyMetrics)

	s.Handle(ctx, state.MenuEnergy, gesture.Up)
	if got := f.store.Snapshot().CurrentPage; got != pages-1 {
		t.Errorf("CurrentPage = %d, want %d", got, pages-1)
	}

	s.Handle(ctx, state.MenuEnergy, gesture.Tap)
	if got := f.store.Snapshot().EnergyView; got != 1 {
		t.Errorf("EnergyView = %d, want 1", got)
	}
	s.Handle(ctx, state.MenuEnergy, gesture.Tap)
	if got := f.store.Snapshot().EnergyView; got != 0 {
		t.Errorf("EnergyView = %d, want wrap to 0", got)
	}

	next, ok := s.Handle(ctx, state.MenuEnergy, gesture.Left)
	if !ok || next != state.MenuMain {
		t.Errorf("LEFT = (%v, %v), want Main", next, ok)
	}
}

func TestEnergyMenuWithoutMetrics(t *testing.T) {
	f := newFixture()
	f.at(state.MenuEnergy, nil)
	s := f.set()

	for _, g := range []gesture.Code{gesture.Up, gesture.Down, gesture.Tap} {
		if _, ok := s.Handle(context.Background(), state.MenuEnergy, g); ok {
			t.Errorf("%v navigated with no metrics", g)
		}
	}
	if m := f.store.Snapshot(); m.CurrentPage != 0 || m.EnergyView != 0 {
		t.Errorf("page=%d view=%d, want untouched", m.CurrentPage, m.EnergyView)
	}
	if f.renderer.renders != 0 {
		t.Errorf("renders = %d, want 0", f.renderer.renders)
	}
}

func TestDeviceMenu(t *testing.T) {
	f := newFixture()
	f.store.SetDevicePages([]string{"a", "b", "c"})
	f.at(state.MenuDevice, nil)
	s := f.set()
	ctx := context.Background()

	s.Handle(ctx, state.MenuDevice, gesture.Down)
	s.Handle(ctx, state.MenuDevice, gesture.Down)
	s.Handle(ctx, state.MenuDevice, gesture.Down)
	if got := f.store.Snapshot().CurrentPage; got != 0 {
		t.Errorf("CurrentPage = %d, want wrap to 0", got)
	}

	s.Handle(ctx, state.MenuDevice, gesture.Up)
	next, ok := s.Handle(ctx, state.MenuDevice, gesture.Left)
	if !ok || next != state.MenuMain {
		t.Errorf("LEFT = (%v, %v), want Main", next, ok)
	}
	if got := f.store.Snapshot().CurrentPage; got != 0 {
		t.Errorf("CurrentPage = %d after leaving, want 0", got)
	}
}

func TestDeviceMenuEmpty(t *testing.T) {
	f := newFixture()
	f.at(state.MenuDevice, nil)

	f.set().Handle(context.Background(), state.MenuDevice, gesture.Down)

	if got := f.store.Snapshot().CurrentPage; got != 0 {
		t.Errorf("CurrentPage = %d, want 0", got)
	}
	if f.renderer.renders != 0 {
		t.Errorf("renders = %d, want 0", f.renderer.renders)
	}
}

func TestShutdownConfirm(t *testing.T) {
	no, yes := render.ConfirmButtons(render.ShutdownButtonsY)

	tests := []struct {
		name     string
		point    image.Point
		err      error
		wantMenu state.Menu
		wantOK   bool
		calls    int
		message  string
	}{
		{"no", center(no), nil, state.MenuMain, true, 0, ""},
		{"no edge", no.Min, nil, state.MenuMain, true, 0, ""},
		{"yes", center(yes), nil, 0, false, 1, "Shutting down..."},
		{"yes fails", yes.Max, errors.New("sudo: permission denied"), state.MenuMain, true, 1, "Shutdown failed"},
		{"outside", image.Pt(120, 20), nil, 0, false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.shutdown.err = tt.err
			f.pointer.p = tt.point
			f.at(state.MenuConfirmShutdown, nil)

			next, ok := f.set().Handle(context.Background(), state.MenuConfirmShutdown, gesture.Tap)

			if ok != tt.wantOK || (ok && next != tt.wantMenu) {
				t.Errorf("Handle() = (%v, %v), want (%v, %v)", next, ok, tt.wantMenu, tt.wantOK)
			}
			if f.shutdown.calls != tt.calls {
				t.Errorf("Shutdown calls = %d, want %d", f.shutdown.calls, tt.calls)
			}
			if got := f.renderer.lastMessage(); got != tt.message {
				t.Errorf("message = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestShutdownConfirmIgnoresSwipes(t *testing.T) {
	f := newFixture()
	f.at(state.MenuConfirmShutdown, nil)
	s := f.set()

	for _, g := range []gesture.Code{gesture.Up, gesture.Down, gesture.Left} {
		if next, ok := s.Handle(context.Background(), state.MenuConfirmShutdown, g); ok {
			t.Errorf("%v navigated to %v", g, next)
		}
	}
}

func TestNetworkConfirm(t *testing.T) {
	no, yes := render.ConfirmButtons(render.NetworkButtonsY)

	tests := []struct {
		name       string
		gesture    gesture.Code
		point      image.Point
		connectErr error
		wantSaved  bool
		message    string
		connected  int
	}{
		{"no returns to list", gesture.Tap, center(no), nil, true, "", 0},
		{"long press returns to list", gesture.LongPress, image.Point{}, nil, true, "", 0},
		{"yes connects", gesture.Tap, center(yes), nil, false, "Connected", 1},
		{"yes fails", gesture.Tap, center(yes), errors.New("exit status 4"), false, "Failed\nExit status 4", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.networks.connectErr = tt.connectErr
			f.pointer.p = tt.point
			f.at(state.MenuConfirmNetwork, func(m *state.Model) {
				m.SavedNetworks = []string{"Home", "Office"}
				m.SavedNetworksSelected = 1
				m.NetworkToConnect = "Office"
			})

			next, ok := f.set().Handle(context.Background(), state.MenuConfirmNetwork, tt.gesture)

			if !ok || next != state.MenuWiFi {
				t.Errorf("Handle() = (%v, %v), want WiFi", next, ok)
			}
			m := f.store.Snapshot()
			if m.NetworkToConnect != "" {
				t.Errorf("NetworkToConnect = %q, want cleared", m.NetworkToConnect)
			}
			if m.InSavedNetworks != tt.wantSaved {
				t.Errorf("InSavedNetworks = %v, want %v", m.InSavedNetworks, tt.wantSaved)
			}
			if tt.wantSaved && m.SavedNetworksSelected != 1 {
				t.Errorf("cursor lost: %d", m.SavedNetworksSelected)
			}
			if got := f.renderer.lastMessage(); got != tt.message {
				t.Errorf("message = %q, want %q", got, tt.message)
			}
			if len(f.networks.connected) != tt.connected {
				t.Errorf("Connect calls = %d, want %d", len(f.networks.connected), tt.connected)
			}
		})
	}
}

func TestUnknownMenuGoesHome(t *testing.T) {
	f := newFixture()

	next, ok := f.set().Handle(context.Background(), state.Menu(99), gesture.Tap)

	if !ok || next != state.MenuMain {
		t.Errorf("Handle() = (%v, %v), want Main", next, ok)
	}
}

func TestFailureReason(t *testing.T) {
	secrets := &wifi.CommandError{
		Command:  "sudo nmcli connection up Office",
		ExitCode: 4,
		Stderr:   "Error: Connection activation failed: Secrets were required, but not provided.\nHint: use 'journalctl -xe'",
		Err:      errors.New("exit status 4"),
	}
	missing := &wifi.CommandError{
		Command:  "sudo nmcli connection delete Home",
		ExitCode: 10,
		Stderr:   "Error: unknown connection 'Home'.",
		Err:      errors.New("exit status 10"),
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"nmcli stderr", fmt.Errorf("connect Office: %w", secrets), "Secrets were required, but not provided"},
		{"nmcli stderr without clause", fmt.Errorf("delete Home: %w", missing), "Unknown connection 'Home'"},
		{"timeout", fmt.Errorf("connect Office: %w", &wifi.CommandError{Err: context.DeadlineExceeded}), "Timed out"},
		{"innermost error", fmt.Errorf("connect Office: %w", errors.New("exit status 4")), "Exit status 4"},
		{"long reason", errors.New(strings.Repeat("x", 60)), "X" + strings.Repeat("x", 36) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failureReason(tt.err); got != tt.want {
				t.Errorf("failureReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWiFiRemoveShowsCommandReason(t *testing.T) {
	f := newFixture()
	f.networks.current = "Home"
	f.networks.removeErr = fmt.Errorf("delete Home: %w", &wifi.CommandError{
		Command: "sudo nmcli connection delete Home",
		Stderr:  "Error: Insufficient privileges.",
		Err:     errors.New("exit status 4"),
	})
	f.at(state.MenuWiFi, func(m *state.Model) { m.WiFiSelected = wifiRemove })

	f.set().Handle(context.Background(), state.MenuWiFi, gesture.Tap)

	if got, want := f.renderer.lastMessage(), "Failed to\nremove\nInsufficient privileges"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}
