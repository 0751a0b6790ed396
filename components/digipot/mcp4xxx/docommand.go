package mcp4xxx

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"go.uber.org/multierr"

	"github.com/ccrighton/mcp4xxx/protocol"
)

// DoCommand keys, applied in this order so that reads observe earlier writes in the same call.
const (
	commandSet              = "set"
	commandIncrement        = "increment"
	commandDecrement        = "decrement"
	commandTerminalA        = "terminal_a"
	commandTerminalB        = "terminal_b"
	commandWiper            = "wiper"
	commandShutdown         = "shutdown"
	commandGet              = "get"
	commandHardwareShutdown = "hardware_shutdown"

	argGet = "get"
)

var commandOrder = []string{
	commandSet,
	commandIncrement,
	commandDecrement,
	commandTerminalA,
	commandTerminalB,
	commandWiper,
	commandShutdown,
	commandGet,
	commandHardwareShutdown,
}

type flagAccessor struct {
	get func(context.Context) (bool, error)
	set func(context.Context, bool) error
}

func (m *MCP4XXX) flags() map[string]flagAccessor {
	return map[string]flagAccessor{
		commandTerminalA: {m.TerminalAStatus, m.SetTerminalAStatus},
		commandTerminalB: {m.TerminalBStatus, m.SetTerminalBStatus},
		commandWiper:     {m.WiperStatus, m.SetWiperStatus},
		commandShutdown:  {m.ShutdownStatus, m.SetShutdownStatus},
	}
}

// DoCommand runs the commands named by the keys of cmd under a single selection of the device.
//
//	set:               wiper position (number); replies with the clamped value written
//	increment:         step count (number, or true for 1)
//	decrement:         step count (number, or true for 1)
//	terminal_a, terminal_b, wiper, shutdown:
//	                   bool to write, or "get" to read
//	get:               replies with the wiper position
//	hardware_shutdown: replies with the SHDN pin state
func (m *MCP4XXX) DoCommand(ctx context.Context, cmd map[string]interface{}) (resp map[string]interface{}, err error) {
	if unknown := lo.Without(lo.Keys(cmd), commandOrder...); len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, errors.Errorf("unknown command(s) %q", unknown)
	}

	release, err := m.selectDevice(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, release())
	}()

	flags := m.flags()
	resp = map[string]interface{}{}
	for _, key := range commandOrder {
		arg, ok := cmd[key]
		if !ok {
			continue
		}
		var result interface{}
		switch key {
		case commandSet:
			result, err = m.doSet(ctx, arg)
		case commandIncrement:
			result, err = m.doStep(ctx, arg, m.Increment)
		case commandDecrement:
			result, err = m.doStep(ctx, arg, m.Decrement)
		case commandGet:
			result, err = m.Get(ctx)
		case commandHardwareShutdown:
			result, err = m.HardwareShutdownStatus(ctx)
		default:
			result, err = doFlag(ctx, arg, flags[key])
		}
		if err != nil {
			return nil, errors.Wrap(err, key)
		}
		resp[key] = result
	}
	return resp, nil
}

// toInt converts a command argument to an int. Strings are read as decimal, so "010" is 10.
func toInt(arg interface{}) (int, error) {
	if s, ok := arg.(string); ok {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, errors.Errorf("%q is not a decimal integer", s)
		}
		return v, nil
	}
	return cast.ToIntE(arg)
}

func (m *MCP4XXX) doSet(ctx context.Context, arg interface{}) (int, error) {
	value, err := toInt(arg)
	if err != nil {
		return 0, err
	}
	if err := m.Set(ctx, value); err != nil {
		return 0, err
	}
	return lo.Clamp(value, 0, m.MaxValue()), nil
}

func (m *MCP4XXX) doStep(ctx context.Context, arg interface{}, step func(context.Context) error) (int, error) {
	n, err := toInt(arg)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Errorf("step count must not be negative, got %d", n)
	}
	for i := 0; i < n; i++ {
		if err := step(ctx); err != nil {
			return i, err
		}
	}
	return n, nil
}

func doFlag(ctx context.Context, arg interface{}, flag flagAccessor) (bool, error) {
	if s, ok := arg.(string); ok && s == argGet {
		return flag.get(ctx)
	}
	value, err := cast.ToBoolE(arg)
	if err != nil {
		return false, err
	}
	return value, flag.set(ctx, value)
}

// Readings returns a snapshot of the wiper position and every status flag, read under a single
// selection of the device.
func (m *MCP4XXX) Readings(ctx context.Context, extra map[string]interface{}) (readings map[string]interface{}, err error) {
	release, err := m.selectDevice(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, release())
	}()

	position, err := m.Get(ctx)
	if err != nil {
		return nil, err
	}
	tcon, err := m.TCON(ctx)
	if err != nil {
		return nil, err
	}
	hardwareShutdown, err := m.HardwareShutdownStatus(ctx)
	if err != nil {
		return nil, err
	}

	bit := func(mask byte) bool {
		return tcon&m.settings.Pot.tconMask(mask) != 0
	}
	return map[string]interface{}{
		"position":          position,
		"max":               m.MaxValue(),
		"terminal_a":        bit(protocol.TCONTermAMask),
		"terminal_b":        bit(protocol.TCONTermBMask),
		"wiper":             bit(protocol.TCONWiperMask),
		"shutdown":          !bit(protocol.TCONShutdownMask),
		"hardware_shutdown": hardwareShutdown,
	}, nil
}
