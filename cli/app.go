// Package cli implements the mcp4xxx command line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/multierr"

	"github.com/ccrighton/mcp4xxx/components/digipot/mcp4xxx"
	"github.com/ccrighton/mcp4xxx/logging"
)

const (
	// Flags.
	flagConfig         = "config"
	flagDebug          = "debug"
	flagLogFile        = "log-file"
	flagLogLevel       = "log-level"
	flagTransport      = "transport"
	flagSPIBus         = "spi-bus"
	flagChipSelect     = "chip-select"
	flagCSPin          = "cs-pin"
	flagGPIOChip       = "gpio-chip"
	flagBaudRate       = "baud-rate"
	flagSPIMode        = "spi-mode"
	flagUSBIndex       = "usb-index"
	flagPot            = "pot"
	flagResolutionBits = "resolution-bits"
	flagWiperMode      = "wiper-mode"
	flagCheckErrors    = "check-errors"
	flagCount          = "count"
)

// flagAttributes maps flags onto the attribute names ConfigFromAttributes reads.
var flagAttributes = map[string]string{
	flagTransport:      "transport",
	flagSPIBus:         "spi_bus",
	flagChipSelect:     "chip_select",
	flagCSPin:          "chip_select_pin",
	flagGPIOChip:       "gpio_chip",
	flagBaudRate:       "spi_baud_rate",
	flagSPIMode:        "spi_mode",
	flagUSBIndex:       "usb_index",
	flagPot:            "pot",
	flagResolutionBits: "resolution_bits",
	flagWiperMode:      "wiper_mode",
	flagCheckErrors:    "check_command_errors",
}

// Opener builds a driver from a validated config.
type Opener func(ctx context.Context, conf *mcp4xxx.Config, logger logging.Logger) (*mcp4xxx.MCP4XXX, error)

// NewApp returns the command line application. open is usually mcp4xxx.NewFromConfig.
func NewApp(open Opener) *cli.App {
	var (
		logger    logging.Logger
		logCloser io.Closer
	)

	withDriver := func(c *cli.Context, fn func(ctx context.Context, pot *mcp4xxx.MCP4XXX) error) (err error) {
		conf, err := configFromContext(c)
		if err != nil {
			return err
		}
		pot, err := open(c.Context, conf, logger)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, pot.Close(c.Context))
		}()
		return fn(c.Context, pot)
	}

	return &cli.App{
		Name:  "mcp4xxx",
		Usage: "control an MCP4XXX digital potentiometer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load device attributes from JSON `FILE`; flags override it",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Value: "warn",
				Usage: "log `LEVEL`: debug, info, warn or error; --debug overrides it",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs, including frame traces, to `FILE`",
			},
			&cli.StringFlag{Name: flagTransport, Usage: "spidev or mcp2210"},
			&cli.StringFlag{Name: flagSPIBus, Usage: "spidev bus number"},
			&cli.StringFlag{Name: flagChipSelect, Usage: "spidev chip select number"},
			&cli.StringFlag{Name: flagCSPin, Usage: "chip select GPIO name, line offset or MCP2210 GP number"},
			&cli.StringFlag{Name: flagGPIOChip, Usage: "GPIO character device holding the chip select line"},
			&cli.IntFlag{Name: flagBaudRate, Usage: "SPI clock in Hz"},
			&cli.IntFlag{Name: flagSPIMode, Usage: "SPI mode (0-3)"},
			&cli.IntFlag{Name: flagUSBIndex, Usage: "index of the MCP2210 bridge to use"},
			&cli.IntFlag{Name: flagPot, Usage: "potentiometer (0 or 1)"},
			&cli.IntFlag{Name: flagResolutionBits, Usage: "7 or 8"},
			&cli.StringFlag{Name: flagWiperMode, Usage: "potentiometer or rheostat"},
			&cli.BoolFlag{Name: flagCheckErrors, Usage: "fail commands the device rejects"},
		},
		Before: func(c *cli.Context) error {
			level, err := logging.LevelFromString(c.String(flagLogLevel))
			if err != nil {
				return err
			}
			if c.Bool(flagDebug) {
				level = logging.DEBUG
			}
			if path := c.String(flagLogFile); path != "" {
				logger, logCloser = logging.NewFileLogger("mcp4xxx", level, path)
				return nil
			}
			logger = logging.NewLogger("mcp4xxx")
			logger.SetLevel(level)
			return nil
		},
		After: func(c *cli.Context) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "move the wiper",
				ArgsUsage: "<position>",
				Action: func(c *cli.Context) error {
					return withDriver(c, func(ctx context.Context, pot *mcp4xxx.MCP4XXX) error {
						return printDoCommand(c, pot, map[string]interface{}{"set": c.Args().First()})
					})
				},
			},
			{
				Name:  "get",
				Usage: "print the wiper position",
				Action: func(c *cli.Context) error {
					return withDriver(c, func(ctx context.Context, pot *mcp4xxx.MCP4XXX) error {
						v, err := pot.Get(ctx)
						if err != nil {
							return err
						}
						fmt.Fprintln(c.App.Writer, v)
						return nil
					})
				},
			},
			stepCommand("increment", "step the wiper up", withDriver),
			stepCommand("decrement", "step the wiper down", withDriver),
			{
				Name:  "readings",
				Usage: "print the wiper position and terminal state",
				Action: func(c *cli.Context) error {
					return withDriver(c, func(ctx context.Context, pot *mcp4xxx.MCP4XXX) error {
						readings, err := pot.Readings(ctx, nil)
						if err != nil {
							return err
						}
						printMap(c, readings)
						return nil
					})
				},
			},
			flagCommand("terminal-a", "terminal_a", "show or set terminal A connection", withDriver),
			flagCommand("terminal-b", "terminal_b", "show or set terminal B connection", withDriver),
			flagCommand("wiper", "wiper", "show or set wiper connection", withDriver),
			flagCommand("shutdown", "shutdown", "show or set software shutdown", withDriver),
			{
				Name:      "do",
				Usage:     "run a raw DoCommand",
				ArgsUsage: "<json>",
				Action: func(c *cli.Context) error {
					// JSON5 so that shells can pass unquoted keys.
					var cmd map[string]interface{}
					if err := json5.Unmarshal([]byte(c.Args().First()), &cmd); err != nil {
						return errors.Wrap(err, "parsing command")
					}
					return withDriver(c, func(ctx context.Context, pot *mcp4xxx.MCP4XXX) error {
						return printDoCommand(c, pot, cmd)
					})
				},
			},
		},
	}
}

type driverFunc func(c *cli.Context, fn func(ctx context.Context, pot *mcp4xxx.MCP4XXX) error) error

func stepCommand(name, usage string, withDriver driverFunc) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: flagCount, Aliases: []string{"n"}, Value: 1, Usage: "number of steps"},
		},
		Action: func(c *cli.Context) error {
			return withDriver(c, func(ctx context.Context, pot *mcp4xxx.MCP4XXX) error {
				return printDoCommand(c, pot, map[string]interface{}{name: c.Int(flagCount), "get": true})
			})
		},
	}
}

func flagCommand(name, key, usage string, withDriver driverFunc) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "[true|false]",
		Action: func(c *cli.Context) error {
			var arg interface{} = "get"
			if c.Args().Present() {
				arg = c.Args().First()
			}
			return withDriver(c, func(ctx context.Context, pot *mcp4xxx.MCP4XXX) error {
				return printDoCommand(c, pot, map[string]interface{}{key: arg})
			})
		},
	}
}

func printDoCommand(c *cli.Context, pot *mcp4xxx.MCP4XXX, cmd map[string]interface{}) error {
	resp, err := pot.DoCommand(c.Context, cmd)
	if err != nil {
		return err
	}
	printMap(c, resp)
	return nil
}

func printMap(c *cli.Context, m map[string]interface{}) {
	keys := lo.Keys(m)
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(c.App.Writer, "%s: %v\n", k, m[k])
	}
}

// configFromContext merges the config file, if any, with flags set on the command line. Config
// files are JSON5, so they may carry comments.
func configFromContext(c *cli.Context) (*mcp4xxx.Config, error) {
	attributes := map[string]interface{}{}
	if path := c.String(flagConfig); path != "" {
		//nolint:gosec
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json5.Unmarshal(data, &attributes); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", path)
		}
	}
	for flag, attribute := range flagAttributes {
		if c.IsSet(flag) {
			attributes[attribute] = c.Value(flag)
		}
	}

	conf, err := mcp4xxx.ConfigFromAttributes(attributes)
	if err != nil {
		return nil, err
	}
	if _, err := conf.Validate(flagConfig); err != nil {
		return nil, err
	}
	return conf, nil
}
