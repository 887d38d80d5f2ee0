// Package touch reads gestures from the CST816S capacitive touch
// controller.
//
// The controller raises its interrupt line whenever it has recognised a
// gesture. Controller.Run waits on that line, reads the gesture and touch
// point registers and stores the result in a gesture.Cell for the
// navigation loop to take.
package touch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"

	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/logging"
)

// DefaultAddr is the controller's I2C address.
const DefaultAddr = 0x15

// Registers.
const (
	regGestureID    = 0x01
	regChipID       = 0xA7
	regMotionMask   = 0xEC
	regAutoSleep    = 0xF9
	regIrqCtl       = 0xFA
	regDisAutoSleep = 0xFE
)

// IrqCtl values: report touches and gestures on the interrupt line.
const (
	irqMixed   = 0x71
	motionTaps = 0x01
)

// standbyAfter is the controller's own auto-sleep delay, in seconds.
const standbyAfter = 5

// Bus is an I2C device.
type Bus interface {
	Tx(w, r []byte) error
}

// Pin is an output line.
type Pin interface {
	Out(l gpio.Level) error
}

// Edge is the interrupt input.
type Edge interface {
	WaitForEdge(timeout time.Duration) bool
}

// Controller is a CST816S. It implements gesture.Source, gesture.Pointer
// and gesture.Sleeper.
type Controller struct {
	gesture.Cell

	dev   Bus
	rst   Pin
	irq   Edge
	sleep func(time.Duration)
}

// NewController creates a controller. rst may be nil.
func NewController(dev Bus, rst Pin, irq Edge) *Controller {
	return &Controller{dev: dev, rst: rst, irq: irq, sleep: time.Sleep}
}

// Init resets the controller and selects gesture plus point reporting.
func (c *Controller) Init() error {
	if c.rst != nil {
		for _, l := range []gpio.Level{gpio.Low, gpio.High} {
			if err := c.rst.Out(l); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			c.sleep(50 * time.Millisecond)
		}
	}

	id, err := c.read(regChipID, 1)
	if err != nil {
		return fmt.Errorf("read chip id: %w", err)
	}
	logging.Info("Touch controller ready", zap.String("chip_id", fmt.Sprintf("0x%02X", id[0])))

	return c.Resume()
}

// Standby lets the controller drop into its own low-power mode.
func (c *Controller) Standby() error {
	return errors.Join(
		c.write(regAutoSleep, standbyAfter),
		c.write(regDisAutoSleep, 0x00),
	)
}

// Resume keeps the controller awake and re-enables reporting.
func (c *Controller) Resume() error {
	return errors.Join(
		c.write(regDisAutoSleep, 0x01),
		c.write(regIrqCtl, irqMixed),
		c.write(regMotionMask, motionTaps),
	)
}

// Run waits for interrupts until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !c.irq.WaitForEdge(100 * time.Millisecond) {
			continue
		}
		if err := c.Poll(); err != nil {
			logging.Debug("Touch read failed", zap.Error(err))
		}
	}
}

// Poll reads the gesture and point registers once. Reads that report no
// gesture leave the cell untouched.
func (c *Controller) Poll() error {
	b, err := c.read(regGestureID, 6)
	if err != nil {
		return err
	}
	code := gesture.Code(b[0])
	if code == gesture.None {
		return nil
	}
	p := image.Pt(int(b[2]&0x0F)<<8|int(b[3]), int(b[4]&0x0F)<<8|int(b[5]))
	c.StoreAt(code, p)
	return nil
}

func (c *Controller) read(reg byte, n int) ([]byte, error) {
	r := make([]byte, n)
	if err := c.dev.Tx([]byte{reg}, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Controller) write(reg, v byte) error {
	return c.dev.Tx([]byte{reg, v}, nil)
}
