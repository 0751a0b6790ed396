// Package fake implements a simulated MCP4XXX chip and GPIO pin for tests.
package fake

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/ccrighton/mcp4xxx/components/board"
	"github.com/ccrighton/mcp4xxx/protocol"
)

var _ = board.SPIConn(&Potentiometer{})

// ErrNotSelected is returned by Exchange when the chip select pin is high.
var ErrNotSelected = errors.New("fake potentiometer: exchange while chip select is deasserted")

// Potentiometer simulates the register file of a dual MCP42X1 behind one chip select. Wiper
// writes saturate at the full scale value, increments and decrements saturate at the range
// ends, and the TCON and STATUS registers behave as the datasheet describes.
type Potentiometer struct {
	mu        sync.Mutex
	fullScale uint16
	wipers    [2]uint16
	tcon      byte
	status    byte
	cs        *GPIOPin
	frames    [][]byte
}

// NewPotentiometer returns a chip in its power-on state: wipers at mid scale and every TCON bit
// set. fullScale is the highest wiper value, 256 for 8-bit potentiometers. If cs is not nil,
// transfers fail unless it is driven low.
func NewPotentiometer(fullScale uint16, cs *GPIOPin) *Potentiometer {
	mid := (fullScale + 1) / 2
	return &Potentiometer{
		fullScale: fullScale,
		wipers:    [2]uint16{mid, mid},
		tcon:      0xFF,
		cs:        cs,
	}
}

// Exchange decodes one command frame and answers like the device would.
func (p *Potentiometer) Exchange(ctx context.Context, tx, rx []byte) error {
	if len(tx) != len(rx) {
		return errors.Errorf("fake potentiometer: tx and rx lengths differ (%d != %d)", len(tx), len(rx))
	}
	if len(tx) == 0 {
		return nil
	}
	if p.cs != nil && p.cs.High() {
		return ErrNotSelected
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, append([]byte(nil), tx...))

	addr, cmd, _, d8 := protocol.ParseControl(tx[0])
	if cmd.HasData() != (len(tx) >= 2) {
		rx[0] = 0xFF &^ protocol.CmdErrMask
		return nil
	}

	var out uint16
	ok := true
	switch {
	case addr == protocol.AddressPot0Wiper || addr == protocol.AddressPot1Wiper:
		w := &p.wipers[addr]
		switch cmd {
		case protocol.CommandWrite:
			*w = min(uint16(tx[1])|d8, p.fullScale)
			out = uint16(tx[1]) | d8
		case protocol.CommandRead:
			out = *w
		case protocol.CommandIncrement:
			if *w < p.fullScale {
				*w++
			}
		case protocol.CommandDecrement:
			if *w > 0 {
				*w--
			}
		}
	case addr == protocol.AddressTCON:
		switch cmd {
		case protocol.CommandWrite:
			p.tcon = tx[1]
			out = protocol.TCONReserved | uint16(tx[1])
		case protocol.CommandRead:
			out = protocol.TCONReserved | uint16(p.tcon)
		default:
			ok = false
		}
	case addr == protocol.AddressStatus:
		if cmd == protocol.CommandRead {
			out = uint16(p.status)
		} else {
			ok = false
		}
	default:
		ok = false
	}

	rx[0] = 0xFF &^ protocol.DataMask
	if !ok {
		rx[0] &^= protocol.CmdErrMask
	}
	if len(rx) >= 2 {
		rx[0] |= byte(out>>8) & protocol.DataMask
		rx[1] = byte(out)
	}
	return nil
}

// Wiper returns the raw wiper value for pot 0 or 1.
func (p *Potentiometer) Wiper(pot int) uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wipers[pot]
}

// TCON returns the raw terminal control register.
func (p *Potentiometer) TCON() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tcon
}

// SetTCON overwrites the terminal control register.
func (p *Potentiometer) SetTCON(v byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tcon = v
}

// SetHardwareShutdown simulates the SHDN pin.
func (p *Potentiometer) SetHardwareShutdown(shutdown bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if shutdown {
		p.status |= protocol.StatusShutdownMask
	} else {
		p.status &^= protocol.StatusShutdownMask
	}
}

// Frames returns a copy of every frame received so far.
func (p *Potentiometer) Frames() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.frames))
	copy(out, p.frames)
	return out
}
