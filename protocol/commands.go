package protocol

import "strings"

// controlByte packs the address and command fields and sets the reserved bit.
func controlByte(addr Address, cmd Command) byte {
	return ((byte(addr) << 4) & AddressMask) | ((byte(cmd) << 2) & CommandMask) | CmdErrMask
}

// BuildFrame constructs a single byte command frame with no data, as used by the increment
// and decrement commands.
//
// Frame structure:
//
//	[A3 A2 A1 A0 C1 C0 1 0]
func BuildFrame(addr Address, cmd Command) []byte {
	return []byte{controlByte(addr, cmd)}
}

// BuildDataFrame constructs a two byte command frame carrying a 9-bit data value.
//
// Frame structure:
//
//	[A3 A2 A1 A0 C1 C0 1 D8][D7..D0]
//
// D8 is only set for the full-scale value 0x100 and the all-ones read mask 0x1FF.
func BuildDataFrame(addr Address, cmd Command, data uint16) []byte {
	frame := []byte{controlByte(addr, cmd), byte(data & DataMaskWord)}
	if data == FullScale || data == DataMaskWord {
		frame[0] |= DataMask
	}
	return frame
}

// ParseControl splits a control byte into its fields. ok reports the state of the CMDERR bit,
// and d8 holds data bit 8 in position.
func ParseControl(b byte) (addr Address, cmd Command, ok bool, d8 uint16) {
	addr = Address((b & AddressMask) >> 4)
	cmd = Command((b & CommandMask) >> 2)
	ok = b&CmdErrMask != 0
	d8 = uint16(b&DataMask) << 8
	return addr, cmd, ok, d8
}

// FormatFrame renders bytes as space separated binary octets for debug logs.
func FormatFrame(b []byte) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		for bit := 7; bit >= 0; bit-- {
			if v&(1<<bit) != 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String()
}
