// Package board defines the bus and pin primitives that device drivers in this module talk
// through. Implementations live in the subpackages: genericlinux for spidev and GPIO character
// devices, mcp2210 for USB attached SPI bridges and fake for a simulated potentiometer.
package board

import "context"

// SPIConn is a connection to a single device on an SPI bus.
type SPIConn interface {
	// Exchange performs one synchronous full duplex transfer. len(rx) must equal len(tx); the
	// byte received while tx[i] is clocked out is stored in rx[i]. Chip select is managed by
	// the caller, so Exchange may be called several times within one selection.
	Exchange(ctx context.Context, tx, rx []byte) error
}
