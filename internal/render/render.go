// Package render turns the kiosk state into display frames.
//
// Layout composes a Screen, a device-independent description of what is
// shown, from a state snapshot. Rasterizer draws a Screen into a 240x240
// image, and FrameRenderer pushes those images to a Panel. The terminal
// simulator consumes the same Screens.
package render

import (
	"fmt"
	"image"
	"sync"

	"github.com/muurk/orion-kiosk/internal/state"
)

// Renderer draws the UI. Every method is synchronous; errors are reported
// to the caller but never stop the navigation loop.
type Renderer interface {
	// Render draws the menu described by m.
	Render(m state.Model) error
	// Message draws a full-screen text message.
	Message(theme state.Theme, text string) error
	// Sleep turns the display off.
	Sleep() error
	// Wake turns the display back on.
	Wake() error
}

// Panel is a physical or virtual display that accepts full frames.
type Panel interface {
	Show(img image.Image) error
	Sleep() error
	Wake() error
}

// FrameRenderer renders through a Rasterizer onto a Panel.
type FrameRenderer struct {
	layout *Layout
	raster *Rasterizer
	panel  Panel

	mu   sync.Mutex
	last *image.RGBA
}

// NewFrameRenderer creates a renderer for panel.
func NewFrameRenderer(layout *Layout, panel Panel) *FrameRenderer {
	return &FrameRenderer{
		layout: layout,
		raster: NewRasterizer(),
		panel:  panel,
	}
}

// Render implements Renderer.
func (r *FrameRenderer) Render(m state.Model) error {
	return r.show(r.layout.Compose(m))
}

// Message implements Renderer.
func (r *FrameRenderer) Message(theme state.Theme, text string) error {
	return r.show(r.layout.Message(theme, text))
}

// Sleep implements Renderer.
func (r *FrameRenderer) Sleep() error {
	if err := r.panel.Sleep(); err != nil {
		return fmt.Errorf("display sleep: %w", err)
	}
	return nil
}

// Wake implements Renderer.
func (r *FrameRenderer) Wake() error {
	if err := r.panel.Wake(); err != nil {
		return fmt.Errorf("display wake: %w", err)
	}
	return nil
}

// LastFrame returns the most recently shown frame, or nil.
func (r *FrameRenderer) LastFrame() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	return r.last
}

func (r *FrameRenderer) show(s Screen) error {
	img := r.raster.Draw(s)

	r.mu.Lock()
	r.last = img
	r.mu.Unlock()

	if err := r.panel.Show(img); err != nil {
		return fmt.Errorf("display frame: %w", err)
	}
	return nil
}
