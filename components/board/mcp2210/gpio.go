package mcp2210

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/ccrighton/mcp4xxx/components/board"
)

var _ = board.GPIOPin(&Pin{})

// Pin is one of the bridge's general purpose pins, configured as an output. The pin must be
// designated as GPIO in the bridge's chip settings.
type Pin struct {
	bridge *Bridge
	num    int
}

// Pin configures GPn as an output at the initial level and returns it.
func (b *Bridge) Pin(ctx context.Context, n int, initial bool) (*Pin, error) {
	if n < 0 || n >= NumGPIO {
		return nil, errors.Errorf("GP%d out of range [0, %d)", n, NumGPIO)
	}
	p := &Pin{bridge: b, num: n}
	if err := p.Set(ctx, initial, nil); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	dir, err := b.readWord(cmdGetGPIODirection)
	if err != nil {
		return nil, err
	}
	// A set direction bit means input.
	if err := b.writeWord(cmdSetGPIODirection, dir&^(1<<n)); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *Bridge) readWord(cmd byte) (uint16, error) {
	rsp, err := b.send(cmd, makeMsg())
	if err != nil {
		return 0, err
	}
	if rsp[1] != statusOK {
		return 0, errors.Errorf("Read([cmd=0x%02X]): status 0x%02X", cmd, rsp[1])
	}
	return binary.LittleEndian.Uint16(rsp[4:6]), nil
}

func (b *Bridge) writeWord(cmd byte, v uint16) error {
	msg := makeMsg()
	binary.LittleEndian.PutUint16(msg[4:6], v)
	rsp, err := b.send(cmd, msg)
	if err != nil {
		return err
	}
	if rsp[1] != statusOK {
		return errors.Errorf("Write([cmd=0x%02X]): status 0x%02X", cmd, rsp[1])
	}
	return nil
}

// Set drives the pin.
func (p *Pin) Set(ctx context.Context, high bool, extra map[string]interface{}) error {
	p.bridge.mu.Lock()
	defer p.bridge.mu.Unlock()

	v, err := p.bridge.readWord(cmdGetGPIOValue)
	if err != nil {
		return err
	}
	if high {
		v |= 1 << p.num
	} else {
		v &^= 1 << p.num
	}
	return p.bridge.writeWord(cmdSetGPIOValue, v)
}

// Get reads the pin level.
func (p *Pin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	p.bridge.mu.Lock()
	defer p.bridge.mu.Unlock()

	v, err := p.bridge.readWord(cmdGetGPIOValue)
	if err != nil {
		return false, err
	}
	return v&(1<<p.num) != 0, nil
}
