package mcp4xxx

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ccrighton/mcp4xxx/protocol"
)

// Pot selects which potentiometer of a dual (MCP42XX) device to control. Single devices
// (MCP41XX) must use Pot0.
type Pot int

// Potentiometers.
const (
	Pot0 Pot = 0b00
	Pot1 Pot = 0b01
)

func (p Pot) String() string {
	switch p {
	case Pot0:
		return "POT_0"
	case Pot1:
		return "POT_1"
	}
	return fmt.Sprintf("Pot(%d)", int(p))
}

func (p Pot) wiperAddress() protocol.Address {
	if p == Pot1 {
		return protocol.AddressPot1Wiper
	}
	return protocol.AddressPot0Wiper
}

// tconMask moves a pot 0 TCON mask into this pot's nibble.
func (p Pot) tconMask(mask byte) byte {
	if p == Pot1 {
		return mask << protocol.TCONPot1Shift
	}
	return mask
}

// Resolution is the number of steps in the device's resistor ladder, expressed as its highest
// rheostat position.
type Resolution int

// Resolutions. Res7Bit is for MCP4X3X and MCP4X4X parts, Res8Bit for MCP4X5X and MCP4X6X.
const (
	Res7Bit Resolution = 127
	Res8Bit Resolution = 255
)

func (r Resolution) String() string {
	switch r {
	case Res7Bit:
		return "RES_7BIT"
	case Res8Bit:
		return "RES_8BIT"
	}
	return fmt.Sprintf("Resolution(%d)", int(r))
}

// WiperConfiguration says whether the part is a rheostat (MCP4XX2) or a potentiometer
// (MCP4XX1). Potentiometers have one extra position connecting the wiper straight to
// terminal A (full scale).
type WiperConfiguration int

// Wiper configurations.
const (
	Rheostat      WiperConfiguration = 0
	Potentiometer WiperConfiguration = 1
)

func (w WiperConfiguration) String() string {
	switch w {
	case Rheostat:
		return "RHEOSTAT"
	case Potentiometer:
		return "POTENTIOMETER"
	}
	return fmt.Sprintf("WiperConfiguration(%d)", int(w))
}

// Settings is the fixed device configuration of a driver instance.
type Settings struct {
	Pot        Pot
	Resolution Resolution
	Wiper      WiperConfiguration

	// CheckCommandErrors makes every transfer fail with protocol.ErrCommandError when the
	// device pulls the CMDERR bit low. It requires a transport that reads SDO.
	CheckCommandErrors bool
}

// DefaultSettings is an 8-bit potentiometer using pot 0.
func DefaultSettings() Settings {
	return Settings{Pot: Pot0, Resolution: Res8Bit, Wiper: Potentiometer}
}

// Validate rejects values outside the enumerations.
func (s Settings) Validate() error {
	if s.Pot != Pot0 && s.Pot != Pot1 {
		return errors.Errorf("invalid pot %d, must be 0 or 1", int(s.Pot))
	}
	if s.Resolution != Res7Bit && s.Resolution != Res8Bit {
		return errors.Errorf("invalid resolution %d, must be %d or %d", int(s.Resolution), Res7Bit, Res8Bit)
	}
	if s.Wiper != Rheostat && s.Wiper != Potentiometer {
		return errors.Errorf("invalid wiper configuration %d", int(s.Wiper))
	}
	return nil
}

// MaxValue is the highest wiper position. 7-bit parts reach 127 as rheostats and 128 as
// potentiometers; 8-bit parts reach 255 and 256.
func (s Settings) MaxValue() int {
	return int(s.Resolution) + int(s.Wiper)
}
