// Package mcp4xxx controls Microchip's MCP4XXX range of SPI digital potentiometers
// (MCP4131/4132/4141/4142/4151/4152/4161/4162 and their dual MCP42XX variants).
//
// Datasheet: http://ww1.microchip.com/downloads/en/DeviceDoc/22060b.pdf
//
// A driver instance controls one potentiometer. The two halves of a dual device share a chip
// select line; give each its own driver with the same transport and pin. A driver is not safe
// for concurrent use; callers sharing one across goroutines must serialize access.
package mcp4xxx

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/ccrighton/mcp4xxx/components/board"
	"github.com/ccrighton/mcp4xxx/components/digipot"
	"github.com/ccrighton/mcp4xxx/logging"
	"github.com/ccrighton/mcp4xxx/protocol"
)

var (
	_ = digipot.DigitalPotentiometer(&MCP4XXX{})
	_ = digipot.TerminalController(&MCP4XXX{})
	_ = digipot.Shutdowner(&MCP4XXX{})
)

// MCP4XXX is a driver for one potentiometer of an MCP4XXX device.
type MCP4XXX struct {
	settings   Settings
	conn       board.SPIConn
	cs         board.GPIOPin
	nesting    *atomic.Int32
	generation *atomic.Uint32 // bumped by Close; releases from older generations are ignored
	closers    []func() error
	logger     logging.Logger
}

// New returns a driver talking over conn with cs as the active-low chip select. The chip
// select is driven high (deselected) before New returns.
func New(
	ctx context.Context,
	conn board.SPIConn,
	cs board.GPIOPin,
	settings Settings,
	logger logging.Logger,
) (*MCP4XXX, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, errors.New("an SPI connection is required")
	}
	if cs == nil {
		return nil, errors.New("a chip select pin is required")
	}
	if err := cs.Set(ctx, true, nil); err != nil {
		return nil, errors.Wrap(err, "deasserting chip select")
	}

	m := &MCP4XXX{
		settings:   settings,
		conn:       conn,
		cs:         cs,
		nesting:    atomic.NewInt32(0),
		generation: atomic.NewUint32(0),
		logger:     logger,
	}
	logger.Debugf("created %s", m)
	return m, nil
}

func (m *MCP4XXX) String() string {
	return fmt.Sprintf("MCP4XXX(pot=%s, resolution=%s, wiper=%s)",
		m.settings.Pot, m.settings.Resolution, m.settings.Wiper)
}

// Settings returns the device configuration.
func (m *MCP4XXX) Settings() Settings {
	return m.settings
}

// MaxValue returns the highest wiper position. It does not touch the bus.
func (m *MCP4XXX) MaxValue() int {
	return m.settings.MaxValue()
}

// transfer sends one frame inside its own selection and returns what the device clocked back.
func (m *MCP4XXX) transfer(
	ctx context.Context,
	addr protocol.Address,
	cmd protocol.Command,
	tx []byte,
) (rx []byte, err error) {
	release, err := m.selectDevice(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, release())
	}()

	rx = make([]byte, len(tx))
	if err := m.conn.Exchange(ctx, tx, rx); err != nil {
		return nil, errors.Wrapf(err, "%s %s", cmd, addr)
	}
	m.logger.Debugw("transfer",
		"address", addr.String(),
		"command", cmd.String(),
		"tx", protocol.FormatFrame(tx),
		"rx", protocol.FormatFrame(rx))

	if m.settings.CheckCommandErrors {
		if err := protocol.CheckResponse(rx); err != nil {
			return nil, errors.Wrapf(err, "%s %s", cmd, addr)
		}
	}
	return rx, nil
}

func (m *MCP4XXX) command(ctx context.Context, addr protocol.Address, cmd protocol.Command) error {
	_, err := m.transfer(ctx, addr, cmd, protocol.BuildFrame(addr, cmd))
	return err
}

func (m *MCP4XXX) dataCommand(
	ctx context.Context,
	addr protocol.Address,
	cmd protocol.Command,
	data uint16,
) ([]byte, error) {
	return m.transfer(ctx, addr, cmd, protocol.BuildDataFrame(addr, cmd, data))
}

// Increment increases the wiper position by 1. The device holds its position at MaxValue.
func (m *MCP4XXX) Increment(ctx context.Context) error {
	return m.command(ctx, m.settings.Pot.wiperAddress(), protocol.CommandIncrement)
}

// Decrement decreases the wiper position by 1. The device holds its position at 0.
func (m *MCP4XXX) Decrement(ctx context.Context) error {
	return m.command(ctx, m.settings.Pot.wiperAddress(), protocol.CommandDecrement)
}

// Set moves the wiper to value, clamped to [0, MaxValue()].
func (m *MCP4XXX) Set(ctx context.Context, value int) error {
	clamped := lo.Clamp(value, 0, m.MaxValue())
	if clamped != value {
		m.logger.Debugf("clamping wiper value %d to %d", value, clamped)
	}
	_, err := m.dataCommand(ctx, m.settings.Pot.wiperAddress(), protocol.CommandWrite, uint16(clamped))
	return err
}

// Get returns the wiper position.
func (m *MCP4XXX) Get(ctx context.Context) (int, error) {
	rx, err := m.dataCommand(ctx, m.settings.Pot.wiperAddress(), protocol.CommandRead, protocol.DataMaskWord)
	if err != nil {
		return 0, err
	}
	v, err := protocol.DecodeWiper(rx)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// HardwareShutdownStatus reports the state of the SHDN pin through the STATUS register. It is
// independent of the software shutdown bit.
func (m *MCP4XXX) HardwareShutdownStatus(ctx context.Context) (bool, error) {
	rx, err := m.dataCommand(ctx, protocol.AddressStatus, protocol.CommandRead, protocol.DataMaskWord)
	if err != nil {
		return false, err
	}
	status, err := protocol.DecodeData(rx)
	if err != nil {
		return false, err
	}
	return status&protocol.StatusShutdownMask != 0, nil
}

// Close deasserts chip select and closes any transport opened by NewFromConfig.
func (m *MCP4XXX) Close(ctx context.Context) error {
	var errs []error
	m.generation.Inc()
	if n := m.nesting.Swap(0); n != 0 {
		m.logger.Warnf("closing with %d selections outstanding", n)
	}
	errs = append(errs, errors.Wrap(m.cs.Set(ctx, true, nil), "deasserting chip select"))
	for _, closer := range m.closers {
		errs = append(errs, closer())
	}
	m.closers = nil
	return multierr.Combine(errs...)
}
