package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-chamber/ascii"
	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/espec"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/transport"
	"github.com/arloliu/go-chamber/watlowf4"
	"github.com/arloliu/go-chamber/watlowf4t"
)

// Interface names.
const (
	InterfaceSerial = "serial"
	InterfaceTCP    = "tcp"
)

// DefaultModbusPort is the Modbus/TCP port used when port is not set.
const DefaultModbusPort = 502

// Environment variables read by ApplyEnv.
const (
	EnvHost       = "CHAMBER_HOST"
	EnvSerialPort = "CHAMBER_SERIALPORT"
	EnvInterface  = "CHAMBER_INTERFACE"
	EnvAdr        = "CHAMBER_ADR"
)

// Config describes one chamber: how to reach its controller and what the
// hardware can do.
type Config struct {
	Controller string `yaml:"controller"`
	Interface  string `yaml:"interface"`
	SerialPort string `yaml:"serialport"`
	BaudRate   int    `yaml:"baudrate"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	// Adr is the Modbus unit id or the Espec RS-485 address.
	Adr int `yaml:"adr"`

	Timeout     time.Duration `yaml:"timeout"`
	Retries     int           `yaml:"retries"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	// Freshness enables the Espec reply cache.
	Freshness time.Duration `yaml:"freshness"`
	// RegisterMap is the register map file of a Watlow F4. A relative path
	// is resolved against the directory of the configuration file.
	RegisterMap    string `yaml:"register_map"`
	VerifyPrograms bool   `yaml:"verify_programs"`
	LogLevel       string `yaml:"log_level"`

	// Profile is decoded from the same document, on top of the family
	// defaults.
	Profile chamber.Profile `yaml:"-"`

	family chamber.Family
}

// Default returns a configuration with every default applied and no
// controller selected.
func Default() *Config {
	return &Config{
		Interface: InterfaceSerial,
		BaudRate:  transport.DefaultBaudRate,
		Adr:       modbus.DefaultUnitID,
		Timeout:   transport.DefaultTimeout,
		Retries:   modbus.DefaultRetryLimit,
		LogLevel:  "info",
	}
}

// DefaultProfile returns the profile defaults of a controller family.
func DefaultProfile(f chamber.Family) chamber.Profile {
	switch f {
	case chamber.FamilyWatlowF4T:
		return watlowf4t.DefaultProfile()
	case chamber.FamilyWatlowF4:
		return watlowf4.DefaultProfile()
	default:
		return espec.DefaultProfile()
	}
}

// Load reads, decodes and validates the configuration file at path. The
// environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if cfg.RegisterMap != "" && !filepath.IsAbs(cfg.RegisterMap) {
		cfg.RegisterMap = filepath.Join(filepath.Dir(path), cfg.RegisterMap)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes a YAML document onto the defaults. The profile keys are
// decoded onto the defaults of the selected controller. Parse does not
// validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	f, err := chamber.ParseFamily(cfg.Controller)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.family = f
	cfg.Profile = DefaultProfile(f)
	if err := yaml.Unmarshal(data, &cfg.Profile); err != nil {
		return nil, fmt.Errorf("config: profile: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides connection settings from the environment. lookup is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHost); ok && v != "" {
		c.Host = v
	}
	if v, ok := lookup(EnvSerialPort); ok && v != "" {
		c.SerialPort = v
	}
	if v, ok := lookup(EnvInterface); ok && v != "" {
		c.Interface = v
	}
	if v, ok := lookup(EnvAdr); ok && v != "" {
		adr, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvAdr, chamber.ValidationErrorf("invalid address %q", v))
		}
		c.Adr = adr
	}

	return nil
}

// Validate checks the configuration and normalizes the controller and
// interface names.
func (c *Config) Validate() error {
	f, err := chamber.ParseFamily(c.Controller)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.family = f
	c.Controller = string(f)

	switch strings.ToLower(strings.TrimSpace(c.Interface)) {
	case InterfaceSerial, "rtu":
		c.Interface = InterfaceSerial
		if strings.TrimSpace(c.SerialPort) == "" {
			return fmt.Errorf("config: %w", chamber.ValidationErrorf("serialport is required for the serial interface"))
		}
	case InterfaceTCP:
		c.Interface = InterfaceTCP
		if strings.TrimSpace(c.Host) == "" {
			return fmt.Errorf("config: %w", chamber.ValidationErrorf("host is required for the tcp interface"))
		}
	default:
		return fmt.Errorf("config: %w", chamber.ValidationErrorf("unknown interface %q", c.Interface))
	}

	switch {
	case c.BaudRate < 0:
		return fmt.Errorf("config: %w", chamber.ValidationErrorf("baudrate %d must not be negative", c.BaudRate))
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("config: %w", chamber.ValidationErrorf("port %d out of range [0, 65535]", c.Port))
	case c.Adr < 0:
		return fmt.Errorf("config: %w", chamber.ValidationErrorf("adr %d must not be negative", c.Adr))
	case c.Timeout < 0, c.SettleDelay < 0, c.Freshness < 0:
		return fmt.Errorf("config: %w", chamber.ValidationErrorf("durations must not be negative"))
	case c.Retries < 0:
		return fmt.Errorf("config: %w", chamber.ValidationErrorf("retries %d must not be negative", c.Retries))
	case f == chamber.FamilyWatlowF4 && c.RegisterMap == "":
		return fmt.Errorf("config: %w", chamber.ValidationErrorf("register_map is required for %s", f))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", chamber.ValidationErrorf("%v", err))
	}
	if err := c.Profile.Validate(); err != nil {
		return fmt.Errorf("config: profile: %w", err)
	}

	return nil
}

// Family returns the controller family. It is set by Parse and Validate.
func (c *Config) Family() chamber.Family { return c.family }

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() logger.Level {
	lv, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return logger.InfoLevel
	}

	return lv
}

// TCPPort returns the configured port or the family default.
func (c *Config) TCPPort() int {
	switch {
	case c.Port > 0:
		return c.Port
	case c.family == chamber.FamilyEspecP300 || c.family == chamber.FamilyEspecSCP220:
		return ascii.DefaultTCPPort
	default:
		return DefaultModbusPort
	}
}
