package genericlinux

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/ccrighton/mcp4xxx/components/board"
	"github.com/ccrighton/mcp4xxx/logging"
)

var _ = board.SPIConn(&SPIDevice{})

// DefaultBaudRate is used when a zero baud rate is requested. It matches the conservative
// clock used by the MCP4XXX reference setups.
const DefaultBaudRate = 250000

var (
	hostOnce sync.Once
	hostErr  error
)

// initHost loads the periph.io host drivers exactly once per process.
func initHost() error {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	return hostErr
}

// SPIDevice is an open spidev port bound to one chip select.
type SPIDevice struct {
	mu     sync.Mutex
	name   string
	port   spi.Port
	conn   spi.Conn
	closed bool
	logger logging.Logger
}

// OpenSPIDevice opens /dev/spidev<bus>.<chipSelect> through periph.io. The kernel toggles its
// own CE line per transfer; devices whose select is wired to a GPIO should drive that pin
// separately.
func OpenSPIDevice(bus, chipSelect string, baud uint, mode uint, logger logging.Logger) (*SPIDevice, error) {
	if err := initHost(); err != nil {
		return nil, errors.Wrap(err, "initializing periph host drivers")
	}
	name := fmt.Sprintf("SPI%s.%s", bus, chipSelect)
	port, err := spireg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", name)
	}
	dev, err := NewSPIDevice(name, port, baud, mode, logger)
	if err != nil {
		return nil, multierr.Combine(err, port.Close())
	}
	return dev, nil
}

// NewSPIDevice connects to an already opened periph.io port.
func NewSPIDevice(name string, port spi.Port, baud uint, mode uint, logger logging.Logger) (*SPIDevice, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	conn, err := port.Connect(physic.Hertz*physic.Frequency(baud), spi.Mode(mode), 8)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", name)
	}
	logger.Debugf("connected to %s at %d Hz mode %d", name, baud, mode)
	return &SPIDevice{name: name, port: port, conn: conn, logger: logger}, nil
}

// Exchange clocks tx out and fills rx with the bytes read back.
func (d *SPIDevice) Exchange(ctx context.Context, tx, rx []byte) error {
	if len(tx) != len(rx) {
		return errors.Errorf("%s: tx and rx lengths differ (%d != %d)", d.name, len(tx), len(rx))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.Errorf("can't use Exchange() on closed %s", d.name)
	}
	return errors.Wrapf(d.conn.Tx(tx, rx), "transfer on %s", d.name)
}

// Close releases the port. It is safe to call more than once.
func (d *SPIDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if closer, ok := d.port.(spi.PortCloser); ok {
		return closer.Close()
	}
	return nil
}
