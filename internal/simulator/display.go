package simulator

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/orion-kiosk/internal/render"
	"github.com/muurk/orion-kiosk/internal/state"
)

// frameMsg carries a composed screen to the program.
type frameMsg struct {
	screen render.Screen
}

// standbyMsg reports a display power change.
type standbyMsg bool

// Display implements render.Renderer on top of a Bubble Tea program.
type Display struct {
	layout *render.Layout

	mu   sync.Mutex
	send func(tea.Msg)
	last render.Screen
}

// NewDisplay creates a display composing screens with layout.
func NewDisplay(layout *render.Layout) *Display {
	return &Display{layout: layout}
}

// Attach routes frames to p. p.Send blocks until the program runs, so
// rendering must happen off the program's goroutine.
func (d *Display) Attach(p *tea.Program) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.send = p.Send
}

// Render implements render.Renderer.
func (d *Display) Render(m state.Model) error {
	d.push(frameMsg{screen: d.layout.Compose(m)})
	return nil
}

// Message implements render.Renderer.
func (d *Display) Message(theme state.Theme, text string) error {
	d.push(frameMsg{screen: d.layout.Message(theme, text)})
	return nil
}

// Sleep implements render.Renderer.
func (d *Display) Sleep() error {
	d.push(standbyMsg(true))
	return nil
}

// Wake implements render.Renderer.
func (d *Display) Wake() error {
	d.push(standbyMsg(false))
	return nil
}

// Last returns the most recent screen.
func (d *Display) Last() render.Screen {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *Display) push(msg tea.Msg) {
	d.mu.Lock()
	if f, ok := msg.(frameMsg); ok {
		d.last = f.screen
	}
	send := d.send
	d.mu.Unlock()

	if send != nil {
		send(msg)
	}
}
