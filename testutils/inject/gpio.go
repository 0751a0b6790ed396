package inject

import (
	"context"

	"github.com/ccrighton/mcp4xxx/components/board"
)

// GPIOPin is an injected GPIO pin.
type GPIOPin struct {
	board.GPIOPin
	SetFunc func(ctx context.Context, high bool, extra map[string]interface{}) error
	GetFunc func(ctx context.Context, extra map[string]interface{}) (bool, error)
}

// Set calls the injected SetFunc or the real version.
func (gp *GPIOPin) Set(ctx context.Context, high bool, extra map[string]interface{}) error {
	if gp.SetFunc == nil {
		return gp.GPIOPin.Set(ctx, high, extra)
	}
	return gp.SetFunc(ctx, high, extra)
}

// Get calls the injected GetFunc or the real version.
func (gp *GPIOPin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	if gp.GetFunc == nil {
		return gp.GPIOPin.Get(ctx, extra)
	}
	return gp.GetFunc(ctx, extra)
}
