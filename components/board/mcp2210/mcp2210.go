// Package mcp2210 drives the Microchip MCP2210 USB to SPI protocol converter, so that SPI
// devices can be reached from hosts without a native SPI controller. The converter is a USB
// HID-class device; every command and response is a 64 byte report.
//
// Datasheet: http://ww1.microchip.com/downloads/en/DeviceDoc/22288A.pdf
//
// USB HID support provided by: https://github.com/karalabe/hid
package mcp2210

import (
	"context"
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	usb "github.com/karalabe/hid"
	"github.com/pkg/errors"

	"github.com/ccrighton/mcp4xxx/components/board"
	"github.com/ccrighton/mcp4xxx/logging"
)

// VID and PID are the USB identifiers of the MCP2210.
const (
	VID = 0x04D8
	PID = 0x00DE
)

// MsgSz is the size in bytes of every command and response report.
const MsgSz = 64

// MaxTransfer is the largest payload a single transfer command can carry.
const MaxTransfer = 60

// NumGPIO is the number of general purpose pins (GP0-GP8).
const NumGPIO = 9

// DefaultBaudRate is used when a zero bit rate is requested.
const DefaultBaudRate = 250000

const (
	cmdSetGPIOValue     byte = 0x30
	cmdGetGPIOValue     byte = 0x31
	cmdSetGPIODirection byte = 0x32
	cmdGetGPIODirection byte = 0x33
	cmdSetSPISettings   byte = 0x40
	cmdTransferSPI      byte = 0x42
)

// Response status codes.
const (
	statusOK         byte = 0x00
	statusBusNotFree byte = 0xF7
	statusInProgress byte = 0xF8
)

// SPI engine states reported by the transfer command.
const (
	engineFinished    byte = 0x10
	engineStarted     byte = 0x20
	engineDataPending byte = 0x30
)

// maxBusyRetries bounds how often a transfer is resubmitted while the engine reports busy, with
// busyBackoff between attempts.
const (
	maxBusyRetries = 100
	busyBackoff    = time.Millisecond
)

func makeMsg() []byte { return make([]byte, MsgSz) }

var _ = board.SPIConn(&Bridge{})

// Bridge is an open MCP2210. Exchange and the GPIO pins share the same HID endpoint, so every
// report round trip holds the bridge mutex.
type Bridge struct {
	mu       sync.Mutex
	dev      io.ReadWriteCloser
	baud     uint32
	mode     byte
	frameLen int
	clk      clock.Clock
	logger   logging.Logger
}

// AttachedDevices returns descriptors for every connected MCP2210.
func AttachedDevices() []usb.DeviceInfo {
	return usb.Enumerate(VID, PID)
}

// Open claims the MCP2210 at index idx of AttachedDevices.
func Open(idx int, baud uint32, mode byte, logger logging.Logger) (*Bridge, error) {
	info := AttachedDevices()
	if idx < 0 || idx >= len(info) {
		return nil, errors.Errorf("device index %d out of range [0, %d)", idx, len(info))
	}
	dev, err := info[idx].Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening MCP2210 %s", info[idx].Path)
	}
	logger.Debugf("opened MCP2210 %s serial %q", info[idx].Path, info[idx].Serial)
	return NewBridge(dev, baud, mode, logger), nil
}

// NewBridge wraps an already opened HID endpoint.
func NewBridge(dev io.ReadWriteCloser, baud uint32, mode byte, logger logging.Logger) *Bridge {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	return &Bridge{dev: dev, baud: baud, mode: mode, clk: clock.New(), logger: logger}
}

// send writes one command report and reads its response. The first response byte must echo
// the command.
func (b *Bridge) send(cmd byte, msg []byte) ([]byte, error) {
	msg[0] = cmd
	if _, err := b.dev.Write(msg); err != nil {
		return nil, errors.Wrapf(err, "Write([cmd=0x%02X])", cmd)
	}
	rsp := makeMsg()
	recv, err := b.dev.Read(rsp)
	if err != nil {
		return nil, errors.Wrapf(err, "Read([cmd=0x%02X])", cmd)
	}
	if recv < MsgSz {
		return rsp, errors.Errorf("Read([cmd=0x%02X]): short read (%d of %d bytes)", cmd, recv, MsgSz)
	}
	if rsp[0] != cmd {
		return rsp, errors.Errorf("Read([cmd=0x%02X]): unexpected response 0x%02X", cmd, rsp[0])
	}
	return rsp, nil
}

// configureTransfer programs the transfer length. The bridge's own chip select outputs are
// left untouched (idle and active values equal) because chip select is driven as a GPIO.
func (b *Bridge) configureTransfer(n int) error {
	if n == b.frameLen {
		return nil
	}
	msg := makeMsg()
	binary.LittleEndian.PutUint32(msg[4:8], b.baud)
	binary.LittleEndian.PutUint16(msg[8:10], 0x01FF)
	binary.LittleEndian.PutUint16(msg[10:12], 0x01FF)
	binary.LittleEndian.PutUint16(msg[18:20], uint16(n))
	msg[20] = b.mode
	rsp, err := b.send(cmdSetSPISettings, msg)
	if err != nil {
		return err
	}
	if rsp[1] != statusOK {
		return errors.Errorf("setting SPI transfer settings: status 0x%02X", rsp[1])
	}
	b.frameLen = n
	return nil
}

// Exchange runs one SPI transaction of len(tx) bytes.
func (b *Bridge) Exchange(ctx context.Context, tx, rx []byte) error {
	if len(tx) != len(rx) {
		return errors.Errorf("tx and rx lengths differ (%d != %d)", len(tx), len(rx))
	}
	if len(tx) == 0 || len(tx) > MaxTransfer {
		return errors.Errorf("transfer length %d out of range [1, %d]", len(tx), MaxTransfer)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.configureTransfer(len(tx)); err != nil {
		return err
	}

	got := make([]byte, 0, len(rx))
	payload := tx
	for busy := 0; ; {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := makeMsg()
		msg[1] = byte(len(payload))
		copy(msg[4:], payload)
		rsp, err := b.send(cmdTransferSPI, msg)
		if err != nil {
			return err
		}

		switch rsp[1] {
		case statusOK:
		case statusInProgress:
			busy++
			if busy > maxBusyRetries {
				return errors.New("SPI engine stayed busy")
			}
			b.logger.Debugw("SPI engine busy, retrying", "attempt", busy)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-b.clk.After(busyBackoff):
			}
			continue
		case statusBusNotFree:
			return errors.New("SPI bus owned by an external master")
		default:
			return errors.Errorf("transfer failed: status 0x%02X", rsp[1])
		}

		payload = nil
		n := int(rsp[2])
		if n > MaxTransfer {
			return errors.Errorf("transfer response claims %d bytes", n)
		}
		got = append(got, rsp[4:4+n]...)
		if rsp[3] == engineFinished {
			break
		}
	}

	if len(got) != len(rx) {
		return errors.Errorf("received %d bytes, expected %d", len(got), len(rx))
	}
	copy(rx, got)
	return nil
}

// Close releases the HID endpoint.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dev.Close()
}
