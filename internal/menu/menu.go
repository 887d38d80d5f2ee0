// Package menu implements the per-screen gesture handlers of the kiosk.
//
// Each menu is a Handler. A Handler mutates only the state its menu owns,
// redraws the screen for changes that stay within the menu, and returns a
// target menu when the gesture leaves it. Set dispatches to the handler of
// the active menu.
package menu

import (
	"context"
	"errors"
	"image"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/render"
	"github.com/muurk/orion-kiosk/internal/state"
	"github.com/muurk/orion-kiosk/internal/wifi"
)

// Handler reacts to a gesture on one menu. ok reports whether next is a
// menu to transition to.
type Handler interface {
	Handle(ctx context.Context, g gesture.Code) (next state.Menu, ok bool)
}

// Networks manages saved WiFi connections.
type Networks interface {
	CurrentSSID(ctx context.Context) string
	SavedNetworks(ctx context.Context) ([]string, error)
	Connect(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
}

// Pairer runs the energy-meter pairing flow. It blocks until the flow
// ends, reporting progress through progress. message is shown to the
// user whether or not err is nil.
type Pairer interface {
	Pair(ctx context.Context, progress func(string)) (message string, err error)
}

// Shutdowner powers the device off.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// DefaultMessageHold is used when Deps.MessageHold is unset.
const DefaultMessageHold = 2 * time.Second

// Pairing modes.
const (
	PairingAccessPoint = "ap"
	PairingPortal      = "portal"
)

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Store    *state.Store
	Renderer render.Renderer
	Layout   *render.Layout
	Pointer  gesture.Pointer

	Networks Networks
	Pairer   Pairer
	Shutdown Shutdowner

	// PairingMode selects what "Change WiFi" does.
	PairingMode string
	// OnTheme is called after the user toggles the theme. May be nil.
	OnTheme func(state.Theme)

	// MessageHold is how long result messages stay on screen.
	MessageHold time.Duration
	// Sleep pauses the calling goroutine. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Set holds one handler per menu.
type Set struct {
	main            *mainMenu
	wifi            *wifiMenu
	energy          *energyMenu
	device          *deviceMenu
	confirmShutdown *shutdownConfirm
	confirmNetwork  *networkConfirm
}

// NewSet builds the handlers.
func NewSet(d Deps) *Set {
	if d.Sleep == nil {
		d.Sleep = time.Sleep
	}
	if d.MessageHold <= 0 {
		d.MessageHold = DefaultMessageHold
	}
	if d.Layout == nil {
		d.Layout = render.NewLayout(nil, "")
	}
	if d.PairingMode == "" {
		d.PairingMode = PairingAccessPoint
	}

	b := &base{d}
	return &Set{
		main:            &mainMenu{b},
		wifi:            &wifiMenu{b},
		energy:          &energyMenu{b},
		device:          &deviceMenu{b},
		confirmShutdown: &shutdownConfirm{b},
		confirmNetwork:  &networkConfirm{b},
	}
}

// For returns the handler of menu m, or nil for an unknown menu.
func (s *Set) For(m state.Menu) Handler {
	switch m {
	case state.MenuMain:
		return s.main
	case state.MenuWiFi:
		return s.wifi
	case state.MenuEnergy:
		return s.energy
	case state.MenuDevice:
		return s.device
	case state.MenuConfirmShutdown:
		return s.confirmShutdown
	case state.MenuConfirmNetwork:
		return s.confirmNetwork
	}
	return nil
}

// Handle dispatches g to the handler of menu m.
func (s *Set) Handle(ctx context.Context, m state.Menu, g gesture.Code) (state.Menu, bool) {
	h := s.For(m)
	if h == nil {
		logging.Warn("No handler for menu", zap.Stringer("menu", m))
		return state.MenuMain, true
	}
	return h.Handle(ctx, g)
}

// base carries the shared helpers.
type base struct {
	Deps
}

func (b *base) redraw() {
	if err := b.Renderer.Render(b.Store.Snapshot()); err != nil {
		logging.Error("Render failed", zap.Error(err))
	}
}

func (b *base) message(text string) {
	theme := b.Store.Snapshot().Theme
	if err := b.Renderer.Message(theme, text); err != nil {
		logging.Error("Render message failed", zap.Error(err))
	}
}

// announce shows text and keeps it on screen for MessageHold.
func (b *base) announce(text string) {
	b.message(text)
	b.Sleep(b.MessageHold)
}

// loading animates label with trailing dots for d.
func (b *base) loading(label string, d time.Duration) {
	const frame = 500 * time.Millisecond
	for i := 0; time.Duration(i)*frame < d; i++ {
		b.message(label + strings.Repeat(".", i%4))
		b.Sleep(frame)
	}
}

// tapped reports whether the last touch landed in r.
func (b *base) tapped(r image.Rectangle) bool {
	if b.Pointer == nil {
		return false
	}
	return render.Hit(r, b.Pointer.Point())
}

func direction(g gesture.Code) int {
	if g == gesture.Up {
		return -1
	}
	return 1
}

var errNoNetwork = errors.New("no network selected")

// reasonWidth caps a failure reason to what fits in two display rows.
const reasonWidth = 40

// failureReason returns a short, human readable cause of err for the result
// screen. nmcli's stderr is preferred over the wrapped error chain.
func failureReason(err error) string {
	if err == nil {
		return ""
	}
	if wifi.IsTimeout(err) {
		return "Timed out"
	}

	text := ""
	var cerr *wifi.CommandError
	if errors.As(err, &cerr) && cerr.Stderr != "" {
		text, _, _ = strings.Cut(cerr.Stderr, "\n")
		text = strings.TrimPrefix(text, "Error: ")
		if i := strings.LastIndex(text, ": "); i >= 0 && i+2 < len(text) {
			text = text[i+2:]
		}
	} else {
		for inner := errors.Unwrap(err); inner != nil; inner = errors.Unwrap(inner) {
			err = inner
		}
		text = err.Error()
	}

	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "."))
	if r := []rune(text); len(r) > reasonWidth {
		text = string(r[:reasonWidth-3]) + "..."
	}
	r := []rune(text)
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// failure joins a headline and the reason for err.
func failure(headline string, err error) string {
	if r := failureReason(err); r != "" {
		return headline + "\n" + r
	}
	return headline
}
