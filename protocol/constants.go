package protocol

import "fmt"

// Control byte field masks.
const (
	AddressMask  byte = 0b11110000
	CommandMask  byte = 0b00001100
	CmdErrMask   byte = 0b00000010
	DataMask     byte = 0b00000001
	DataMaskWord      = 0x01FF
)

// FullScale is the wiper value that connects the wiper directly to terminal A on
// potentiometer parts. It is the only in-range wiper value that needs the ninth data bit.
const FullScale = 0x0100

// TCON register bit masks for potentiometer 0. Potentiometer 1 uses the same masks shifted
// left by TCONPot1Shift.
const (
	TCONTermBMask    byte = 0b0001
	TCONWiperMask    byte = 0b0010
	TCONTermAMask    byte = 0b0100
	TCONShutdownMask byte = 0b1000

	TCONPot1Shift = 4
)

// TCONReserved is OR'd into every TCON write. Bit 8 of the register is reserved and reads as 1.
const TCONReserved = 0x0100

// StatusShutdownMask is the STATUS register bit reflecting the hardware SHDN pin.
const StatusShutdownMask byte = 0b10

// Address is a 4-bit memory address.
type Address byte

// Memory addresses.
const (
	AddressPot0Wiper Address = 0b0000
	AddressPot1Wiper Address = 0b0001
	AddressTCON      Address = 0b0100
	AddressStatus    Address = 0b0101
)

func (a Address) String() string {
	switch a {
	case AddressPot0Wiper:
		return "wiper0"
	case AddressPot1Wiper:
		return "wiper1"
	case AddressTCON:
		return "tcon"
	case AddressStatus:
		return "status"
	}
	return fmt.Sprintf("address(0x%X)", byte(a))
}

// Command is a 2-bit command code.
type Command byte

// Command codes.
const (
	CommandWrite     Command = 0b00
	CommandIncrement Command = 0b01
	CommandDecrement Command = 0b10
	CommandRead      Command = 0b11
)

func (c Command) String() string {
	switch c {
	case CommandWrite:
		return "write"
	case CommandIncrement:
		return "increment"
	case CommandDecrement:
		return "decrement"
	case CommandRead:
		return "read"
	}
	return fmt.Sprintf("command(0x%X)", byte(c))
}

// HasData reports whether frames for the command carry a data byte.
func (c Command) HasData() bool {
	return c == CommandWrite || c == CommandRead
}
