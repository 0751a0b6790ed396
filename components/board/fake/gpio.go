package fake

import (
	"context"
	"sync"

	"github.com/ccrighton/mcp4xxx/components/board"
)

var _ = board.GPIOPin(&GPIOPin{})

// A GPIOPin reads back the same set values and counts level changes.
type GPIOPin struct {
	mu    sync.Mutex
	high  bool
	falls int
	rises int
}

// NewGPIOPin returns a pin at the given level.
func NewGPIOPin(high bool) *GPIOPin {
	return &GPIOPin{high: high}
}

// Set sets the pin to either low or high.
func (gp *GPIOPin) Set(ctx context.Context, high bool, extra map[string]interface{}) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	switch {
	case gp.high && !high:
		gp.falls++
	case !gp.high && high:
		gp.rises++
	}
	gp.high = high
	return nil
}

// Get gets the high/low state of the pin.
func (gp *GPIOPin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	return gp.high, nil
}

// High returns the current level without a context.
func (gp *GPIOPin) High() bool {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return gp.high
}

// Edges returns how many high to low and low to high transitions the pin has seen.
func (gp *GPIOPin) Edges() (falls, rises int) {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return gp.falls, gp.rises
}
