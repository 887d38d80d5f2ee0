// Package gesture defines the touch gesture codes reported by the touch
// controller and the single-slot cell the interrupt handler writes them to.
package gesture

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
)

// Code is a gesture register value. The values match the controller's
// gesture ID register so hardware reads need no translation.
type Code uint8

const (
	None      Code = 0x00
	Up        Code = 0x01
	Down      Code = 0x02
	Left      Code = 0x04
	Tap       Code = 0x05
	LongPress Code = 0x0C
)

// String returns a human-readable gesture name.
func (c Code) String() string {
	switch c {
	case None:
		return "none"
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Tap:
		return "tap"
	case LongPress:
		return "long_press"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(c))
	}
}

// Known reports whether c is one of the gestures the UI reacts to.
func (c Code) Known() bool {
	switch c {
	case Up, Down, Left, Tap, LongPress:
		return true
	}
	return false
}

// Parse converts a gesture name as produced by String back into a Code.
func Parse(name string) (Code, error) {
	for _, c := range []Code{Up, Down, Left, Tap, LongPress, None} {
		if c.String() == name {
			return c, nil
		}
	}
	return None, fmt.Errorf("unknown gesture %q", name)
}

// Source is polled by the navigation loop once per tick. Take returns the
// pending gesture and clears it; None means nothing happened.
type Source interface {
	Take() Code
}

// Pointer reports the coordinates of the most recent touch.
type Pointer interface {
	Point() image.Point
}

// Sleeper is implemented by sources whose controller has its own low-power
// mode, entered and left together with display standby.
type Sleeper interface {
	Standby() error
	Resume() error
}

// Cell is a single-slot gesture register with overwrite semantics. An
// interrupt handler calls Store; the navigation loop calls Take. A gesture
// that arrives before the previous one was taken replaces it.
type Cell struct {
	code atomic.Uint32

	mu    sync.Mutex
	point image.Point
}

// Store records a gesture, replacing any pending one.
func (c *Cell) Store(code Code) {
	c.code.Store(uint32(code))
}

// StoreAt records a gesture along with its touch coordinates.
func (c *Cell) StoreAt(code Code, p image.Point) {
	c.mu.Lock()
	c.point = p
	c.mu.Unlock()
	c.Store(code)
}

// Take returns the pending gesture and clears the slot.
func (c *Cell) Take() Code {
	return Code(c.code.Swap(uint32(None)))
}

// Peek returns the pending gesture without clearing it.
func (c *Cell) Peek() Code {
	return Code(c.code.Load())
}

// Point returns the coordinates recorded by the last StoreAt.
func (c *Cell) Point() image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.point
}
