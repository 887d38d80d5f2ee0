package display

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/muurk/orion-kiosk/internal/config"
)

// LCD is an initialised GC9A01 bound to its SPI port.
type LCD struct {
	*GC9A01
	port spi.PortCloser
}

// Open initialises the host drivers, connects the SPI port and runs the
// panel's power-on sequence.
func Open(hw config.Hardware) (*LCD, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	if hw.DCPin == "" {
		return nil, fmt.Errorf("no data/command pin configured")
	}
	dc, err := outPin(hw.DCPin)
	if err != nil {
		return nil, err
	}
	rst, err := outPin(hw.ResetPin)
	if err != nil {
		return nil, err
	}
	bl, err := outPin(hw.BacklightPin)
	if err != nil {
		return nil, err
	}

	port, err := spireg.Open(hw.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", hw.SPIPort, err)
	}
	conn, err := port.Connect(physic.Frequency(hw.SPISpeed)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("connect %s: %w", hw.SPIPort, err)
	}

	lcd := &LCD{GC9A01: New(conn, dc, rst, bl), port: port}
	if err := lcd.Init(); err != nil {
		_ = port.Close()
		return nil, err
	}
	return lcd, nil
}

// Close turns the panel off and releases the SPI port.
func (l *LCD) Close() error {
	_ = l.Sleep()
	return l.port.Close()
}

func outPin(name string) (gpio.PinOut, error) {
	if name == "" {
		return nil, nil
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %s not found", name)
	}
	return p, nil
}
