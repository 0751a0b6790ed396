package mcp4xxx

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ccrighton/mcp4xxx/protocol"
)

// TCON returns the raw terminal control register shared by both pots.
func (m *MCP4XXX) TCON(ctx context.Context) (byte, error) {
	rx, err := m.dataCommand(ctx, protocol.AddressTCON, protocol.CommandRead, protocol.DataMaskWord)
	if err != nil {
		return 0, errors.Wrap(err, "reading TCON")
	}
	return protocol.DecodeData(rx)
}

// SetTCON overwrites the terminal control register, including the other pot's bits. The
// reserved ninth bit is always written as 1.
func (m *MCP4XXX) SetTCON(ctx context.Context, value byte) error {
	_, err := m.dataCommand(ctx, protocol.AddressTCON, protocol.CommandWrite, protocol.TCONReserved|uint16(value))
	return errors.Wrap(err, "writing TCON")
}

// setTCONBit updates a single bit of this pot's TCON nibble with a read-modify-write held
// under one selection.
func (m *MCP4XXX) setTCONBit(ctx context.Context, mask byte, value bool) (err error) {
	release, err := m.selectDevice(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, release())
	}()

	mask = m.settings.Pot.tconMask(mask)
	tcon, err := m.TCON(ctx)
	if err != nil {
		return err
	}
	if value {
		tcon |= mask
	} else {
		tcon &^= mask
	}
	return m.SetTCON(ctx, tcon)
}

func (m *MCP4XXX) tconBit(ctx context.Context, mask byte) (bool, error) {
	tcon, err := m.TCON(ctx)
	if err != nil {
		return false, err
	}
	return tcon&m.settings.Pot.tconMask(mask) != 0, nil
}

// SetTerminalAStatus connects or disconnects terminal A. Rheostat (MCP4XX2) devices have no
// terminal A; use SetTerminalBStatus there.
func (m *MCP4XXX) SetTerminalAStatus(ctx context.Context, connected bool) error {
	return m.setTCONBit(ctx, protocol.TCONTermAMask, connected)
}

// TerminalAStatus reports whether terminal A is connected.
func (m *MCP4XXX) TerminalAStatus(ctx context.Context) (bool, error) {
	return m.tconBit(ctx, protocol.TCONTermAMask)
}

// SetTerminalBStatus connects or disconnects terminal B.
func (m *MCP4XXX) SetTerminalBStatus(ctx context.Context, connected bool) error {
	return m.setTCONBit(ctx, protocol.TCONTermBMask, connected)
}

// TerminalBStatus reports whether terminal B is connected.
func (m *MCP4XXX) TerminalBStatus(ctx context.Context) (bool, error) {
	return m.tconBit(ctx, protocol.TCONTermBMask)
}

// SetWiperStatus connects or disconnects the wiper.
func (m *MCP4XXX) SetWiperStatus(ctx context.Context, connected bool) error {
	return m.setTCONBit(ctx, protocol.TCONWiperMask, connected)
}

// WiperStatus reports whether the wiper is connected.
func (m *MCP4XXX) WiperStatus(ctx context.Context) (bool, error) {
	return m.tconBit(ctx, protocol.TCONWiperMask)
}

// SetShutdownStatus puts the pot into or out of software shutdown. The stored TCON bit is an
// enable, so shutting down clears it.
func (m *MCP4XXX) SetShutdownStatus(ctx context.Context, shutdown bool) error {
	return m.setTCONBit(ctx, protocol.TCONShutdownMask, !shutdown)
}

// ShutdownStatus returns the software shutdown setting. The SHDN pin overrides it on devices
// that have one; see HardwareShutdownStatus.
func (m *MCP4XXX) ShutdownStatus(ctx context.Context) (bool, error) {
	enabled, err := m.tconBit(ctx, protocol.TCONShutdownMask)
	if err != nil {
		return false, err
	}
	return !enabled, nil
}
