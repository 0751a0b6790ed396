package genericlinux

import (
	"context"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/ccrighton/mcp4xxx/components/board"
)

var _ = board.GPIOPin(&PeriphPin{})

// PeriphPin adapts a periph.io pin to board.GPIOPin.
type PeriphPin struct {
	pin gpio.PinIO
}

// OpenPeriphPin looks a pin up in the periph.io registry by name (e.g. "GPIO8") and drives it
// to the initial level.
func OpenPeriphPin(name string, initial bool) (*PeriphPin, error) {
	if err := initHost(); err != nil {
		return nil, errors.Wrap(err, "initializing periph host drivers")
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, errors.Errorf("no GPIO pin named %q", name)
	}
	return NewPeriphPin(pin, initial)
}

// NewPeriphPin wraps an existing periph.io pin and drives it to the initial level.
func NewPeriphPin(pin gpio.PinIO, initial bool) (*PeriphPin, error) {
	if err := pin.Out(gpio.Level(initial)); err != nil {
		return nil, errors.Wrapf(err, "configuring %s as output", pin.Name())
	}
	return &PeriphPin{pin: pin}, nil
}

// Set drives the pin.
func (p *PeriphPin) Set(ctx context.Context, high bool, extra map[string]interface{}) error {
	return errors.Wrapf(p.pin.Out(gpio.Level(high)), "setting %s", p.pin.Name())
}

// Get reads the pin level.
func (p *PeriphPin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	return p.pin.Read() == gpio.High, nil
}
