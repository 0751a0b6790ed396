package mcp4xxx

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/ccrighton/mcp4xxx/components/board/fake"
	"github.com/ccrighton/mcp4xxx/logging"
	"github.com/ccrighton/mcp4xxx/protocol"
	"github.com/ccrighton/mcp4xxx/testutils/inject"
)

func newTestDriver(t *testing.T, settings Settings) (*MCP4XXX, *fake.Potentiometer, *fake.GPIOPin) {
	t.Helper()
	pin := fake.NewGPIOPin(true)
	fullScale := uint16(256)
	if settings.Resolution == Res7Bit {
		fullScale = 128
	}
	chip := fake.NewPotentiometer(fullScale, pin)
	m, err := New(context.Background(), chip, pin, settings, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return m, chip, pin
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	t.Run("drives chip select high", func(t *testing.T) {
		pin := fake.NewGPIOPin(false)
		_, err := New(ctx, fake.NewPotentiometer(256, pin), pin, DefaultSettings(), logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pin.High(), test.ShouldBeTrue)
	})

	t.Run("missing parts", func(t *testing.T) {
		pin := fake.NewGPIOPin(true)
		_, err := New(ctx, nil, pin, DefaultSettings(), logger)
		test.That(t, err, test.ShouldNotBeNil)
		_, err = New(ctx, fake.NewPotentiometer(256, pin), nil, DefaultSettings(), logger)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("bad settings", func(t *testing.T) {
		pin := fake.NewGPIOPin(true)
		settings := DefaultSettings()
		settings.Pot = 2
		_, err := New(ctx, fake.NewPotentiometer(256, pin), pin, settings, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "invalid pot 2")
	})

	t.Run("chip select failure", func(t *testing.T) {
		pin := &inject.GPIOPin{
			SetFunc: func(ctx context.Context, high bool, extra map[string]interface{}) error {
				return errors.New("no pin")
			},
		}
		_, err := New(ctx, fake.NewPotentiometer(256, nil), pin, DefaultSettings(), logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "no pin")
	})
}

func TestSettings(t *testing.T) {
	for _, tc := range []struct {
		resolution Resolution
		wiper      WiperConfiguration
		max        int
	}{
		{Res7Bit, Rheostat, 127},
		{Res7Bit, Potentiometer, 128},
		{Res8Bit, Rheostat, 255},
		{Res8Bit, Potentiometer, 256},
	} {
		settings := Settings{Pot: Pot1, Resolution: tc.resolution, Wiper: tc.wiper}
		test.That(t, settings.Validate(), test.ShouldBeNil)
		test.That(t, settings.MaxValue(), test.ShouldEqual, tc.max)
	}

	test.That(t, DefaultSettings().MaxValue(), test.ShouldEqual, 256)
	test.That(t, Settings{Pot: Pot0, Resolution: 100, Wiper: Rheostat}.Validate(), test.ShouldNotBeNil)
	test.That(t, Settings{Pot: Pot0, Resolution: Res8Bit, Wiper: 3}.Validate(), test.ShouldNotBeNil)

	m, _, _ := newTestDriver(t, Settings{Pot: Pot1, Resolution: Res7Bit, Wiper: Rheostat})
	test.That(t, m.String(), test.ShouldEqual, "MCP4XXX(pot=POT_1, resolution=RES_7BIT, wiper=RHEOSTAT)")
	test.That(t, m.MaxValue(), test.ShouldEqual, 127)
}

func TestSetGet(t *testing.T) {
	ctx := context.Background()

	t.Run("pot0", func(t *testing.T) {
		m, chip, _ := newTestDriver(t, DefaultSettings())

		test.That(t, m.Set(ctx, 100), test.ShouldBeNil)
		v, err := m.Get(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, v, test.ShouldEqual, 100)
		test.That(t, chip.Wiper(0), test.ShouldEqual, 100)
		test.That(t, chip.Wiper(1), test.ShouldEqual, 128)

		test.That(t, m.Set(ctx, 1000), test.ShouldBeNil)
		v, err = m.Get(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, v, test.ShouldEqual, 256)

		test.That(t, m.Set(ctx, -5), test.ShouldBeNil)
		v, err = m.Get(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, v, test.ShouldEqual, 0)
	})

	t.Run("pot1 frames", func(t *testing.T) {
		m, chip, _ := newTestDriver(t, Settings{Pot: Pot1, Resolution: Res8Bit, Wiper: Potentiometer})

		test.That(t, m.Set(ctx, 256), test.ShouldBeNil)
		test.That(t, m.Increment(ctx), test.ShouldBeNil)
		frames := chip.Frames()
		test.That(t, frames, test.ShouldHaveLength, 2)
		test.That(t, frames[0], test.ShouldResemble, []byte{0x13, 0x00})
		test.That(t, frames[1], test.ShouldResemble, []byte{0x16})
		test.That(t, chip.Wiper(1), test.ShouldEqual, 256)
		test.That(t, chip.Wiper(0), test.ShouldEqual, 128)
	})

	t.Run("7-bit rheostat clamps to 127", func(t *testing.T) {
		m, chip, _ := newTestDriver(t, Settings{Pot: Pot0, Resolution: Res7Bit, Wiper: Rheostat})
		test.That(t, m.Set(ctx, 128), test.ShouldBeNil)
		test.That(t, chip.Wiper(0), test.ShouldEqual, 127)
	})
}

func TestIncrementDecrement(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestDriver(t, DefaultSettings())

	test.That(t, m.Set(ctx, 0), test.ShouldBeNil)
	test.That(t, m.Decrement(ctx), test.ShouldBeNil)
	v, err := m.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 0)

	test.That(t, m.Increment(ctx), test.ShouldBeNil)
	test.That(t, m.Increment(ctx), test.ShouldBeNil)
	v, err = m.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 2)

	test.That(t, m.Set(ctx, m.MaxValue()), test.ShouldBeNil)
	test.That(t, m.Increment(ctx), test.ShouldBeNil)
	v, err = m.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, m.MaxValue())

	test.That(t, m.Decrement(ctx), test.ShouldBeNil)
	v, err = m.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, m.MaxValue()-1)
}

func TestHardwareShutdown(t *testing.T) {
	ctx := context.Background()
	m, chip, _ := newTestDriver(t, DefaultSettings())

	shutdown, err := m.HardwareShutdownStatus(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, shutdown, test.ShouldBeFalse)

	chip.SetHardwareShutdown(true)
	shutdown, err = m.HardwareShutdownStatus(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, shutdown, test.ShouldBeTrue)

	// The software setting is independent of the pin.
	software, err := m.ShutdownStatus(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, software, test.ShouldBeFalse)
}

func TestCommandErrors(t *testing.T) {
	ctx := context.Background()
	pin := fake.NewGPIOPin(true)
	conn := &inject.SPIConn{
		ExchangeFunc: func(ctx context.Context, tx, rx []byte) error {
			for i := range rx {
				rx[i] = 0
			}
			return nil
		},
	}

	m, err := New(ctx, conn, pin, DefaultSettings(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Increment(ctx), test.ShouldBeNil)

	settings := DefaultSettings()
	settings.CheckCommandErrors = true
	m, err = New(ctx, conn, pin, settings, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	err = m.Increment(ctx)
	test.That(t, errors.Is(err, protocol.ErrCommandError), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "increment wiper0")
	test.That(t, pin.High(), test.ShouldBeTrue)
}

func TestCanceledContext(t *testing.T) {
	m, chip, pin := newTestDriver(t, DefaultSettings())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Set(ctx, 10)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, chip.Frames(), test.ShouldBeEmpty)
	falls, _ := pin.Edges()
	test.That(t, falls, test.ShouldEqual, 0)

	err = m.SetWiperStatus(ctx, false)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	_, err = m.Readings(ctx, nil)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	_, err = m.DoCommand(ctx, map[string]interface{}{"get": true})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, chip.Frames(), test.ShouldBeEmpty)
	falls, rises := pin.Edges()
	test.That(t, falls, test.ShouldEqual, 0)
	test.That(t, rises, test.ShouldEqual, 0)
	test.That(t, m.nesting.Load(), test.ShouldEqual, 0)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	logger, logs := logging.NewObservedTestLogger(t)
	pin := fake.NewGPIOPin(true)
	m, err := New(ctx, fake.NewPotentiometer(256, pin), pin, DefaultSettings(), logger)
	test.That(t, err, test.ShouldBeNil)

	var closed int
	m.closers = []func() error{
		func() error {
			closed++
			return nil
		},
		func() error {
			closed++
			return errors.New("close failed")
		},
	}

	_, err = m.selectDevice(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pin.High(), test.ShouldBeFalse)

	err = m.Close(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "close failed")
	test.That(t, closed, test.ShouldEqual, 2)
	test.That(t, pin.High(), test.ShouldBeTrue)
	test.That(t, m.nesting.Load(), test.ShouldEqual, 0)
	test.That(t, logs.FilterMessageSnippet("selections outstanding").Len(), test.ShouldEqual, 1)

	test.That(t, m.Close(ctx), test.ShouldBeNil)
	test.That(t, closed, test.ShouldEqual, 2)
}

func TestReleaseAfterClose(t *testing.T) {
	ctx := context.Background()
	m, chip, pin := newTestDriver(t, DefaultSettings())

	release, err := m.selectDevice(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Close(ctx), test.ShouldBeNil)
	test.That(t, pin.High(), test.ShouldBeTrue)

	test.That(t, release(), test.ShouldBeNil)
	test.That(t, m.nesting.Load(), test.ShouldEqual, 0)
	test.That(t, pin.High(), test.ShouldBeTrue)

	test.That(t, m.Set(ctx, 10), test.ShouldBeNil)
	test.That(t, chip.Wiper(0), test.ShouldEqual, 10)
	test.That(t, m.nesting.Load(), test.ShouldEqual, 0)
	test.That(t, pin.High(), test.ShouldBeTrue)
	falls, rises := pin.Edges()
	test.That(t, falls, test.ShouldEqual, 2)
	test.That(t, rises, test.ShouldEqual, 2)
}

func TestReleaseAfterCloseInsideSelection(t *testing.T) {
	ctx := context.Background()
	m, chip, pin := newTestDriver(t, DefaultSettings())

	outer, err := m.selectDevice(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Close(ctx), test.ShouldBeNil)

	// A selection taken after Close works normally while the stale one is still outstanding.
	test.That(t, m.Set(ctx, 20), test.ShouldBeNil)
	test.That(t, chip.Wiper(0), test.ShouldEqual, 20)
	test.That(t, pin.High(), test.ShouldBeTrue)

	test.That(t, outer(), test.ShouldBeNil)
	test.That(t, m.nesting.Load(), test.ShouldEqual, 0)
	v, err := m.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 20)
}
