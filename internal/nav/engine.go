// Package nav runs the kiosk's navigation loop.
//
// The Engine polls the gesture source, applies debounce, routes gestures to
// the active menu, animates scrolling names and manages the standby/wake
// cycle. It is the only writer of the standby flag and the idle timers.
// Handlers may block (the pairing flow does), which simply pauses the loop.
package nav

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/marquee"
	"github.com/muurk/orion-kiosk/internal/render"
	"github.com/muurk/orion-kiosk/internal/state"
)

// Config holds the loop timings.
type Config struct {
	StandbyTimeout  time.Duration
	GestureDebounce time.Duration
	RenderThrottle  time.Duration
	ScrollSpeed     time.Duration
	ActivePoll      time.Duration
	StandbyPoll     time.Duration
}

// DefaultConfig returns the timings the device ships with.
func DefaultConfig() Config {
	return Config{
		StandbyTimeout:  60 * time.Second,
		GestureDebounce: 250 * time.Millisecond,
		RenderThrottle:  20 * time.Millisecond,
		ScrollSpeed:     50 * time.Millisecond,
		ActivePoll:      40 * time.Millisecond,
		StandbyPoll:     80 * time.Millisecond,
	}
}

// Dispatcher routes a gesture to the handler of a menu.
type Dispatcher interface {
	Handle(ctx context.Context, m state.Menu, g gesture.Code) (state.Menu, bool)
}

// Observer receives loop events, typically for metrics.
type Observer interface {
	GestureAccepted(g gesture.Code)
	GestureDebounced(g gesture.Code)
	Transition(from, to state.Menu)
	Standby(entered bool)
	Fault(where string)
}

// Engine is the navigation loop.
type Engine struct {
	cfg      Config
	store    *state.Store
	source   gesture.Source
	menus    Dispatcher
	renderer render.Renderer

	now func() time.Time
	obs Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithObserver registers a loop observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.obs = o }
}

// New creates an engine.
func New(cfg Config, store *state.Store, source gesture.Source, menus Dispatcher, renderer render.Renderer, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		store:    store,
		source:   source,
		menus:    menus,
		renderer: renderer,
		now:      time.Now,
		obs:      nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run renders the current menu and loops until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.render()

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		d := e.Step(ctx, e.now())

		timer.Reset(d)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Step runs one loop iteration at now and returns how long to wait before
// the next one.
func (e *Engine) Step(ctx context.Context, now time.Time) time.Duration {
	g := e.take()

	if e.store.Standby() {
		if g != gesture.None {
			e.wake(now)
		}
		return e.cfg.StandbyPoll
	}

	if g == gesture.None {
		e.animate(now)
	}

	switch {
	case g == gesture.LongPress:
		e.home(now)
	case g != gesture.None:
		e.handle(ctx, g, now)
	}

	e.checkIdle(now)
	return e.cfg.ActivePoll
}

func (e *Engine) take() (g gesture.Code) {
	e.guard("gesture source", func() { g = e.source.Take() })
	return g
}

func (e *Engine) handle(ctx context.Context, g gesture.Code, now time.Time) {
	accepted := false
	var current state.Menu
	e.store.Update(func(m *state.Model) {
		if g == m.LastGesture && now.Sub(m.LastGestureTime) <= e.cfg.GestureDebounce {
			return
		}
		accepted = true
		current = m.Menu
		m.LastGesture = g
		m.LastGestureTime = now
		m.LastActivity = now
	})

	if !accepted {
		e.obs.GestureDebounced(g)
		return
	}

	e.obs.GestureAccepted(g)
	logging.LogGesture(g.String(), current.String())

	var next state.Menu
	var ok bool
	e.guard("menu "+current.String(), func() { next, ok = e.menus.Handle(ctx, current, g) })

	// a handler may have blocked for minutes; the user was present throughout
	after := e.now()
	e.store.Update(func(m *state.Model) {
		if after.After(m.LastActivity) {
			m.LastActivity = after
		}
	})

	if ok {
		e.transition(current, next)
	}
}

func (e *Engine) transition(from, to state.Menu) {
	if !to.Valid() {
		logging.Warn("Handler returned invalid menu", zap.Stringer("from", from), zap.Int("to", int(to)))
		to = state.MenuMain
	}

	e.store.Update(func(m *state.Model) { m.Menu = to })
	if from != to {
		logging.LogTransition(from.String(), to.String())
		e.obs.Transition(from, to)
	}
	e.render()
}

func (e *Engine) home(now time.Time) {
	var from state.Menu
	e.store.Update(func(m *state.Model) {
		from = m.Menu
		m.GoHome(now)
	})

	logging.Info("Long press - returning to main menu", zap.Stringer("from", from))
	e.obs.GestureAccepted(gesture.LongPress)
	if from != state.MenuMain {
		e.obs.Transition(from, state.MenuMain)
	}
	e.render()
}

// animate advances the marquee of the saved-networks list or the network
// confirmation screen.
func (e *Engine) animate(now time.Time) {
	changed := false
	e.store.Update(func(m *state.Model) {
		text, width, ok := m.MarqueeTarget()
		if !ok || now.Sub(m.LastAnimation) <= e.cfg.RenderThrottle {
			return
		}
		m.LastAnimation = now

		switch {
		case text != m.ScrollTarget:
			m.ScrollTarget = text
			m.ScrollOffset = 0
			m.LastScroll = now
			changed = true
		case !marquee.Scrolls(text, width):
			if m.ScrollOffset != 0 {
				m.ScrollOffset = 0
				changed = true
			}
		case now.Sub(m.LastScroll) > e.cfg.ScrollSpeed:
			m.ScrollOffset = marquee.Next(text, m.ScrollOffset)
			m.LastScroll = now
			changed = true
		}
	})

	if changed {
		e.render()
	}
}

func (e *Engine) checkIdle(now time.Time) {
	var idle time.Duration
	entered := false
	e.store.Update(func(m *state.Model) {
		if m.Standby {
			return
		}
		idle = now.Sub(m.LastActivity)
		if idle <= e.cfg.StandbyTimeout {
			return
		}
		m.Standby = true
		m.LastGesture = gesture.None
		entered = true
	})
	if !entered {
		return
	}

	logging.LogStandby(true, idle)
	e.obs.Standby(true)

	e.guard("display sleep", func() {
		if err := e.renderer.Sleep(); err != nil {
			logging.Error("Display sleep failed", zap.Error(err))
		}
	})
	if s, ok := e.source.(gesture.Sleeper); ok {
		e.guard("touch standby", func() {
			if err := s.Standby(); err != nil {
				logging.Warn("Touch standby failed", zap.Error(err))
			}
		})
	}
}

func (e *Engine) wake(now time.Time) {
	e.store.Update(func(m *state.Model) {
		m.Standby = false
		m.LastActivity = now
		m.LastGesture = gesture.None
		m.LastGestureTime = now
	})

	logging.LogStandby(false, 0)
	e.obs.Standby(false)

	if s, ok := e.source.(gesture.Sleeper); ok {
		e.guard("touch resume", func() {
			if err := s.Resume(); err != nil {
				logging.Warn("Touch resume failed", zap.Error(err))
			}
		})
	}
	e.guard("display wake", func() {
		if err := e.renderer.Wake(); err != nil {
			logging.Error("Display wake failed", zap.Error(err))
		}
	})
	e.render()
}

func (e *Engine) render() {
	e.guard("render", func() {
		if err := e.renderer.Render(e.store.Snapshot()); err != nil {
			logging.Error("Render failed", zap.Error(err))
			e.obs.Fault("render")
		}
	})
}

// guard runs fn and converts a panic into a logged fault.
func (e *Engine) guard(where string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Recovered panic in navigation loop",
				zap.String("where", where),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			e.obs.Fault(where)
		}
	}()
	fn()
}

type nopObserver struct{}

func (nopObserver) GestureAccepted(gesture.Code)      {}
func (nopObserver) GestureDebounced(gesture.Code)     {}
func (nopObserver) Transition(state.Menu, state.Menu) {}
func (nopObserver) Standby(bool)                      {}
func (nopObserver) Fault(string)                      {}
