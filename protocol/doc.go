// Package protocol implements the command framing used by the Microchip MCP4XXX family of
// SPI digital potentiometers (MCP41X1, MCP41X2, MCP42X1, MCP42X2).
//
// Every command starts with a control byte laid out MSB first as
//
//	A3 A2 A1 A0 C1 C0 R D8
//
// where A is the 4-bit memory address, C the 2-bit command code, R a reserved bit that is
// always transmitted as 1 (the device drives it low on a command error) and D8 the ninth data
// bit. Write and read commands carry an additional data byte with the low 8 data bits.
//
// Datasheet: http://ww1.microchip.com/downloads/en/DeviceDoc/22060b.pdf
//
// The functions in this package are pure. They never touch the bus.
package protocol
