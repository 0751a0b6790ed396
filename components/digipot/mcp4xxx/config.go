package mcp4xxx

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/ccrighton/mcp4xxx/components/board"
	"github.com/ccrighton/mcp4xxx/components/board/genericlinux"
	"github.com/ccrighton/mcp4xxx/components/board/mcp2210"
	"github.com/ccrighton/mcp4xxx/logging"
)

// Transports a Config can select.
const (
	TransportSPIDev  = "spidev"
	TransportMCP2210 = "mcp2210"
)

// Wiper modes accepted by Config.WiperMode.
const (
	WiperModePotentiometer = "potentiometer"
	WiperModeRheostat      = "rheostat"
)

// Config describes how to reach an MCP4XXX and which of its potentiometers to drive.
type Config struct {
	// Transport is "spidev" (default) or "mcp2210".
	Transport string `json:"transport,omitempty"`

	// SPIBus and ChipSelect name the spidev port, /dev/spidev<bus>.<chip_select>.
	SPIBus     string `json:"spi_bus,omitempty"`
	ChipSelect string `json:"chip_select,omitempty"`
	BaudRate   int    `json:"spi_baud_rate,omitempty"`
	SPIMode    int    `json:"spi_mode,omitempty"`

	// CSPin is the chip select GPIO: a periph.io pin name, a line offset when GPIOChip is set,
	// or a GP number for the mcp2210 transport.
	CSPin string `json:"chip_select_pin"`
	// GPIOChip is a character device such as gpiochip0 or /dev/gpiochip0.
	GPIOChip string `json:"gpio_chip,omitempty"`

	// USBIndex picks among several attached MCP2210 bridges.
	USBIndex int `json:"usb_index,omitempty"`

	Pot                int    `json:"pot"`
	ResolutionBits     int    `json:"resolution_bits,omitempty"`
	WiperMode          string `json:"wiper_mode,omitempty"`
	CheckCommandErrors bool   `json:"check_command_errors,omitempty"`
}

// ConfigFromAttributes decodes a loosely typed attribute map, as found in JSON configuration.
func ConfigFromAttributes(attributes map[string]interface{}) (*Config, error) {
	var conf Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		MatchName: func(mapKey, fieldName string) bool {
			return mapKey == fieldName
		},
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "decoding mcp4xxx attributes")
	}
	return &conf, nil
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) ([]string, error) {
	if conf.CSPin == "" {
		return nil, goutils.NewConfigValidationFieldRequiredError(path, "chip_select_pin")
	}
	switch conf.Transport {
	case "", TransportSPIDev:
		if conf.SPIBus == "" {
			return nil, goutils.NewConfigValidationFieldRequiredError(path, "spi_bus")
		}
	case TransportMCP2210:
		if _, err := strconv.Atoi(conf.CSPin); err != nil {
			return nil, goutils.NewConfigValidationError(path,
				errors.Errorf("chip_select_pin must be a GP number for the mcp2210 transport, got %q", conf.CSPin))
		}
	default:
		return nil, goutils.NewConfigValidationError(path, errors.Errorf("unknown transport %q", conf.Transport))
	}

	if conf.GPIOChip != "" {
		if _, err := strconv.ParseUint(conf.CSPin, 10, 32); err != nil {
			return nil, goutils.NewConfigValidationError(path,
				errors.Errorf("chip_select_pin must be a line offset when gpio_chip is set, got %q", conf.CSPin))
		}
	}
	if conf.BaudRate < 0 {
		return nil, goutils.NewConfigValidationError(path, errors.New("spi_baud_rate must not be negative"))
	}
	if conf.SPIMode < 0 || conf.SPIMode > 3 {
		return nil, goutils.NewConfigValidationError(path, errors.Errorf("spi_mode must be 0-3, got %d", conf.SPIMode))
	}
	if _, err := conf.Settings(); err != nil {
		return nil, goutils.NewConfigValidationError(path, err)
	}
	return nil, nil
}

// Settings converts the device fields into driver Settings, applying defaults.
func (conf *Config) Settings() (Settings, error) {
	settings := DefaultSettings()
	settings.Pot = Pot(conf.Pot)
	settings.CheckCommandErrors = conf.CheckCommandErrors

	switch conf.ResolutionBits {
	case 0, 8:
		settings.Resolution = Res8Bit
	case 7:
		settings.Resolution = Res7Bit
	default:
		return Settings{}, errors.Errorf("resolution_bits must be 7 or 8, got %d", conf.ResolutionBits)
	}

	switch conf.WiperMode {
	case "", WiperModePotentiometer:
		settings.Wiper = Potentiometer
	case WiperModeRheostat:
		settings.Wiper = Rheostat
	default:
		return Settings{}, errors.Errorf("wiper_mode must be %q or %q, got %q",
			WiperModePotentiometer, WiperModeRheostat, conf.WiperMode)
	}
	return settings, settings.Validate()
}

// NewFromConfig opens the configured transport and chip select and returns a driver owning
// them; Close releases both.
func NewFromConfig(ctx context.Context, conf *Config, logger logging.Logger) (*MCP4XXX, error) {
	if _, err := conf.Validate("mcp4xxx"); err != nil {
		return nil, err
	}
	settings, err := conf.Settings()
	if err != nil {
		return nil, err
	}

	var (
		conn    board.SPIConn
		cs      board.GPIOPin
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			goutils.UncheckedError(c())
		}
	}

	switch conf.Transport {
	case TransportMCP2210:
		bridge, err := mcp2210.Open(conf.USBIndex, uint32(conf.BaudRate), byte(conf.SPIMode), logger.Sublogger("mcp2210"))
		if err != nil {
			return nil, err
		}
		closers = append(closers, bridge.Close)
		gp, _ := strconv.Atoi(conf.CSPin)
		pin, err := bridge.Pin(ctx, gp, true)
		if err != nil {
			closeAll()
			return nil, err
		}
		conn, cs = bridge, pin
	default:
		chipSelect := conf.ChipSelect
		if chipSelect == "" {
			chipSelect = "0"
		}
		dev, err := genericlinux.OpenSPIDevice(conf.SPIBus, chipSelect, uint(conf.BaudRate), uint(conf.SPIMode),
			logger.Sublogger("spi"))
		if err != nil {
			return nil, err
		}
		closers = append(closers, dev.Close)
		conn = dev

		if conf.GPIOChip != "" {
			offset, _ := strconv.ParseUint(conf.CSPin, 10, 32)
			chipPath := conf.GPIOChip
			if !filepath.IsAbs(chipPath) {
				chipPath = filepath.Join("/dev", chipPath)
			}
			pin := genericlinux.NewGPIOPin(chipPath, uint32(offset), true, logger.Sublogger("cs"))
			closers = append(closers, pin.Close)
			cs = pin
		} else {
			pin, err := genericlinux.OpenPeriphPin(conf.CSPin, true)
			if err != nil {
				closeAll()
				return nil, err
			}
			cs = pin
		}
	}

	m, err := New(ctx, conn, cs, settings, logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	m.closers = closers
	return m, nil
}
