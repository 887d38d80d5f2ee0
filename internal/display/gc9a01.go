// Package display drives the round 240x240 GC9A01 LCD over SPI.
package display

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Panel geometry.
const (
	Width  = 240
	Height = 240
)

// Command bytes.
const (
	cmdSleepIn      = 0x10
	cmdSleepOut     = 0x11
	cmdInvertOn     = 0x21
	cmdDisplayOff   = 0x28
	cmdDisplayOn    = 0x29
	cmdColumnAddr   = 0x2A
	cmdRowAddr      = 0x2B
	cmdMemoryWrite  = 0x2C
	cmdTearingOn    = 0x35
	cmdMemoryAccess = 0x36
	cmdPixelFormat  = 0x3A
)

// maxTx is the largest single SPI transfer spidev accepts by default.
const maxTx = 4096

// Bus carries command and pixel bytes to the controller.
type Bus interface {
	Tx(w, r []byte) error
}

// Pin is an output line: data/command select, reset or backlight.
type Pin interface {
	Out(l gpio.Level) error
}

type step struct {
	cmd   byte
	data  []byte
	delay time.Duration
}

// initSequence is the vendor power-on sequence for the 1.28" module,
// ending with RGB565, tearing line on, sleep out and display on.
var initSequence = []step{
	{cmd: 0xEF},
	{cmd: 0xEB, data: []byte{0x14}},
	{cmd: 0xFE},
	{cmd: 0xEF},
	{cmd: 0xEB, data: []byte{0x14}},
	{cmd: 0x84, data: []byte{0x40}},
	{cmd: 0x85, data: []byte{0xFF}},
	{cmd: 0x86, data: []byte{0xFF}},
	{cmd: 0x87, data: []byte{0xFF}},
	{cmd: 0x88, data: []byte{0x0A}},
	{cmd: 0x89, data: []byte{0x21}},
	{cmd: 0x8A, data: []byte{0x00}},
	{cmd: 0x8B, data: []byte{0x80}},
	{cmd: 0x8C, data: []byte{0x01}},
	{cmd: 0x8D, data: []byte{0x01}},
	{cmd: 0x8E, data: []byte{0xFF}},
	{cmd: 0x8F, data: []byte{0xFF}},
	{cmd: 0xB6, data: []byte{0x00, 0x20}},
	{cmd: cmdMemoryAccess, data: []byte{0x08}},
	{cmd: cmdPixelFormat, data: []byte{0x05}},
	{cmd: 0x90, data: []byte{0x08, 0x08, 0x08, 0x08}},
	{cmd: 0xBD, data: []byte{0x06}},
	{cmd: 0xBC, data: []byte{0x00}},
	{cmd: 0xFF, data: []byte{0x60, 0x01, 0x04}},
	{cmd: 0xC3, data: []byte{0x13}},
	{cmd: 0xC4, data: []byte{0x13}},
	{cmd: 0xC9, data: []byte{0x22}},
	{cmd: 0xBE, data: []byte{0x11}},
	{cmd: 0xE1, data: []byte{0x10, 0x0E}},
	{cmd: 0xDF, data: []byte{0x21, 0x0C, 0x02}},
	{cmd: 0xF0, data: []byte{0x45, 0x09, 0x08, 0x08, 0x26, 0x2A}},
	{cmd: 0xF1, data: []byte{0x43, 0x70, 0x72, 0x36, 0x37, 0x6F}},
	{cmd: 0xF2, data: []byte{0x45, 0x09, 0x08, 0x08, 0x26, 0x2A}},
	{cmd: 0xF3, data: []byte{0x43, 0x70, 0x72, 0x36, 0x37, 0x6F}},
	{cmd: 0xED, data: []byte{0x1B, 0x0B}},
	{cmd: 0xAE, data: []byte{0x77}},
	{cmd: 0xCD, data: []byte{0x63}},
	{cmd: 0x70, data: []byte{0x07, 0x07, 0x04, 0x0E, 0x0F, 0x09, 0x07, 0x08, 0x03}},
	{cmd: 0xE8, data: []byte{0x34}},
	{cmd: 0x62, data: []byte{0x18, 0x0D, 0x71, 0xED, 0x70, 0x70, 0x18, 0x0F, 0x71, 0xEF, 0x70, 0x70}},
	{cmd: 0x63, data: []byte{0x18, 0x11, 0x71, 0xF1, 0x70, 0x70, 0x18, 0x13, 0x71, 0xF3, 0x70, 0x70}},
	{cmd: 0x64, data: []byte{0x28, 0x29, 0xF1, 0x01, 0xF1, 0x00, 0x07}},
	{cmd: 0x66, data: []byte{0x3C, 0x00, 0xCD, 0x67, 0x45, 0x45, 0x10, 0x00, 0x00, 0x00}},
	{cmd: 0x67, data: []byte{0x00, 0x3C, 0x00, 0x00, 0x00, 0x01, 0x54, 0x10, 0x32, 0x98}},
	{cmd: 0x74, data: []byte{0x10, 0x85, 0x80, 0x00, 0x00, 0x4E, 0x00}},
	{cmd: 0x98, data: []byte{0x3E, 0x07}},
	{cmd: cmdTearingOn, data: []byte{0x00}},
	{cmd: cmdInvertOn},
	{cmd: cmdSleepOut, delay: 120 * time.Millisecond},
	{cmd: cmdDisplayOn, delay: 20 * time.Millisecond},
}

// GC9A01 is the LCD controller. It implements render.Panel.
type GC9A01 struct {
	bus       Bus
	dc        Pin
	rst       Pin
	backlight Pin
	sleep     func(time.Duration)

	mu    sync.Mutex
	frame []byte
}

// New creates a driver. rst and backlight may be nil.
func New(bus Bus, dc, rst, backlight Pin) *GC9A01 {
	return &GC9A01{
		bus:       bus,
		dc:        dc,
		rst:       rst,
		backlight: backlight,
		sleep:     time.Sleep,
		frame:     make([]byte, Width*Height*2),
	}
}

// Init resets the controller and runs the power-on sequence.
func (d *GC9A01) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rst != nil {
		for _, l := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
			if err := d.rst.Out(l); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			d.sleep(10 * time.Millisecond)
		}
	}
	for _, s := range initSequence {
		if err := d.command(s.cmd, s.data...); err != nil {
			return fmt.Errorf("init 0x%02X: %w", s.cmd, err)
		}
		if s.delay > 0 {
			d.sleep(s.delay)
		}
	}
	return d.light(gpio.High)
}

// Show pushes a full frame. Images smaller than the panel are drawn at
// the origin; pixels outside the image are black.
func (d *GC9A01) Show(img image.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	EncodeRGB565(d.frame, img)
	if err := d.window(0, 0, Width-1, Height-1); err != nil {
		return err
	}
	if err := d.command(cmdMemoryWrite); err != nil {
		return err
	}
	return d.data(d.frame)
}

// Sleep blanks the panel and puts the controller into sleep mode.
func (d *GC9A01) Sleep() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := errors.Join(d.command(cmdDisplayOff), d.command(cmdSleepIn))
	return errors.Join(err, d.light(gpio.Low))
}

// Wake leaves sleep mode and turns the panel back on.
func (d *GC9A01) Wake() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.command(cmdSleepOut); err != nil {
		return err
	}
	d.sleep(120 * time.Millisecond)
	if err := d.command(cmdDisplayOn); err != nil {
		return err
	}
	return d.light(gpio.High)
}

func (d *GC9A01) light(l gpio.Level) error {
	if d.backlight == nil {
		return nil
	}
	return d.backlight.Out(l)
}

func (d *GC9A01) window(x0, y0, x1, y1 int) error {
	if err := d.command(cmdColumnAddr, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	return d.command(cmdRowAddr, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1))
}

func (d *GC9A01) command(cmd byte, args ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.bus.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	return d.data(args)
}

func (d *GC9A01) data(b []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(b) > 0 {
		n := min(len(b), maxTx)
		if err := d.bus.Tx(b[:n], nil); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// EncodeRGB565 writes img as big-endian RGB565 into dst, which must hold
// Width*Height*2 bytes.
func EncodeRGB565(dst []byte, img image.Image) {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect == image.Rect(0, 0, Width, Height) {
		for i, j := 0, 0; i < len(rgba.Pix); i, j = i+4, j+2 {
			v := RGB565(color.RGBA{R: rgba.Pix[i], G: rgba.Pix[i+1], B: rgba.Pix[i+2]})
			dst[j] = byte(v >> 8)
			dst[j+1] = byte(v)
		}
		return
	}

	b := img.Bounds()
	i := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			var c color.RGBA
			if p := image.Pt(b.Min.X+x, b.Min.Y+y); p.In(b) {
				c = color.RGBAModel.Convert(img.At(p.X, p.Y)).(color.RGBA)
			}
			v := RGB565(c)
			dst[i] = byte(v >> 8)
			dst[i+1] = byte(v)
			i += 2
		}
	}
}

// RGB565 packs c into 16 bits.
func RGB565(c color.RGBA) uint16 {
	return uint16(c.R&0xF8)<<8 | uint16(c.G&0xFC)<<3 | uint16(c.B>>3)
}
