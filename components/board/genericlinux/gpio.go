//go:build linux

// Package genericlinux provides board primitives for Linux hosts: spidev ports through
// periph.io, and GPIO lines through either periph.io or the GPIO character device (by way of
// mkch's gpio package).
package genericlinux

import (
	"context"
	"sync"

	"github.com/mkch/gpio"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/ccrighton/mcp4xxx/components/board"
	"github.com/ccrighton/mcp4xxx/logging"
)

var _ = board.GPIOPin(&GPIOPin{})

// GPIOPin is an output line on a GPIO character device such as /dev/gpiochip0.
type GPIOPin struct {
	// These values should both be considered immutable.
	devicePath string
	offset     uint32
	initial    bool

	mu     sync.Mutex
	line   *gpio.Line
	logger logging.Logger
}

// NewGPIOPin returns a pin for the given chip line. The line is requested lazily on first use
// and starts at the initial level; chip select lines should start high.
func NewGPIOPin(devicePath string, offset uint32, initial bool, logger logging.Logger) *GPIOPin {
	return &GPIOPin{devicePath: devicePath, offset: offset, initial: initial, logger: logger}
}

// This is a private helper function that should only be called when the mutex is locked. It sets
// pin.line to a valid struct or returns an error.
func (pin *GPIOPin) openGpioFd() error {
	if pin.line != nil {
		return nil
	}

	chip, err := gpio.OpenChip(pin.devicePath)
	if err != nil {
		return errors.Wrapf(err, "opening %s", pin.devicePath)
	}
	defer utils.UncheckedErrorFunc(chip.Close)

	line, err := chip.OpenLine(pin.offset, boolToValue(pin.initial), gpio.Output, "mcp4xxx")
	if err != nil {
		return errors.Wrapf(err, "requesting line %d on %s", pin.offset, pin.devicePath)
	}
	pin.logger.Debugf("opened %s line %d", pin.devicePath, pin.offset)
	pin.line = line
	return nil
}

func boolToValue(high bool) byte {
	if high {
		return 1
	}
	return 0
}

// Set drives the line.
func (pin *GPIOPin) Set(ctx context.Context, isHigh bool, extra map[string]interface{}) error {
	pin.mu.Lock()
	defer pin.mu.Unlock()

	if err := pin.openGpioFd(); err != nil {
		return err
	}
	return pin.line.SetValue(boolToValue(isHigh))
}

// Get reads back the line.
func (pin *GPIOPin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	pin.mu.Lock()
	defer pin.mu.Unlock()

	if err := pin.openGpioFd(); err != nil {
		return false, err
	}

	value, err := pin.line.Value()
	if err != nil {
		return false, err
	}

	// We'd expect value to be either 0 or 1, but any non-zero value should be considered high.
	return value != 0, nil
}

// Close releases the line.
func (pin *GPIOPin) Close() error {
	pin.mu.Lock()
	defer pin.mu.Unlock()
	if pin.line == nil {
		return nil
	}
	err := pin.line.Close()
	pin.line = nil
	return err
}
