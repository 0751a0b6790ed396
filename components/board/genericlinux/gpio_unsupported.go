//go:build !linux

// Package genericlinux provides board primitives for Linux hosts: spidev ports through
// periph.io, and GPIO lines through either periph.io or the GPIO character device.
package genericlinux

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ccrighton/mcp4xxx/logging"
)

var errNoCharDev = errors.New("GPIO character devices are only supported on linux")

// GPIOPin is implemented in the Linux version. This stub keeps the package building elsewhere;
// every call fails.
type GPIOPin struct{}

// NewGPIOPin returns a pin that always fails on non-Linux hosts.
func NewGPIOPin(devicePath string, offset uint32, initial bool, logger logging.Logger) *GPIOPin {
	return &GPIOPin{}
}

// Set always fails.
func (pin *GPIOPin) Set(ctx context.Context, isHigh bool, extra map[string]interface{}) error {
	return errNoCharDev
}

// Get always fails.
func (pin *GPIOPin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	return false, errNoCharDev
}

// Close is a no-op.
func (pin *GPIOPin) Close() error {
	return nil
}
