package touch

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/muurk/orion-kiosk/internal/config"
)

// Device is an initialised controller bound to its I2C bus.
type Device struct {
	*Controller
	bus i2c.BusCloser
}

// Open initialises the host drivers, configures the interrupt pin for
// falling edges and resets the controller.
func Open(hw config.Hardware) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	irq := gpioreg.ByName(hw.TouchIntPin)
	if irq == nil {
		return nil, fmt.Errorf("gpio %s not found", hw.TouchIntPin)
	}
	if err := irq.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configure %s: %w", hw.TouchIntPin, err)
	}

	var rst Pin
	if hw.TouchResetPin != "" {
		p := gpioreg.ByName(hw.TouchResetPin)
		if p == nil {
			return nil, fmt.Errorf("gpio %s not found", hw.TouchResetPin)
		}
		rst = p
	}

	bus, err := i2creg.Open(hw.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c %s: %w", hw.I2CBus, err)
	}
	addr := hw.TouchAddr
	if addr == 0 {
		addr = DefaultAddr
	}

	d := &Device{
		Controller: NewController(&i2c.Dev{Bus: bus, Addr: addr}, rst, irq),
		bus:        bus,
	}
	if err := d.Init(); err != nil {
		_ = bus.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the I2C bus.
func (d *Device) Close() error {
	return d.bus.Close()
}
