// Package digipot defines the API shared by digital potentiometer models.
package digipot

import "context"

// A DigitalPotentiometer is a resistor ladder whose wiper position is set over a bus.
type DigitalPotentiometer interface {
	// MaxValue returns the highest wiper position.
	MaxValue() int

	// Set moves the wiper. Values above MaxValue are clamped.
	Set(ctx context.Context, value int) error

	// Get returns the wiper position.
	Get(ctx context.Context) (int, error)

	// Increment and Decrement step the wiper by one, saturating at the ends of the range.
	Increment(ctx context.Context) error
	Decrement(ctx context.Context) error

	// Readings returns a snapshot of the device state keyed by name.
	Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error)

	// DoCommand runs model specific commands.
	DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error)

	Close(ctx context.Context) error
}

// TerminalController is implemented by models that can connect and disconnect the resistor
// terminals and wiper.
type TerminalController interface {
	SetTerminalAStatus(ctx context.Context, connected bool) error
	TerminalAStatus(ctx context.Context) (bool, error)
	SetTerminalBStatus(ctx context.Context, connected bool) error
	TerminalBStatus(ctx context.Context) (bool, error)
	SetWiperStatus(ctx context.Context, connected bool) error
	WiperStatus(ctx context.Context) (bool, error)
}

// Shutdowner is implemented by models with a shutdown mode.
type Shutdowner interface {
	SetShutdownStatus(ctx context.Context, shutdown bool) error
	ShutdownStatus(ctx context.Context) (bool, error)
	HardwareShutdownStatus(ctx context.Context) (bool, error)
}
