package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ardnew/usbuart/bridge"
	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/display"
	"github.com/ardnew/usbuart/pkg"
)

// EnvPrefix prefixes every environment override, e.g. USBUART_LOG_LEVEL.
const EnvPrefix = "USBUART"

// Default USB identity of a bridge: the pid.codes test vendor and product.
const (
	DefaultVendorID  = 0x1209
	DefaultProductID = 0x0001
)

// DefaultUSBTimeout bounds a host-side control transfer.
const DefaultUSBTimeout = time.Second

type Config struct {
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Bridge     BridgeConfig     `mapstructure:"bridge" yaml:"bridge"`
	LineCoding LineCodingConfig `mapstructure:"line_coding" yaml:"line_coding"`
	UART       UARTConfig       `mapstructure:"uart" yaml:"uart"`
	Display    DisplayConfig    `mapstructure:"display" yaml:"display"`
	USB        USBConfig        `mapstructure:"usb" yaml:"usb"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type BridgeConfig struct {
	PacketSize       int           `mapstructure:"packet_size" yaml:"packet_size"`
	InEndpoint       uint8         `mapstructure:"in_endpoint" yaml:"in_endpoint"`
	OutEndpoint      uint8         `mapstructure:"out_endpoint" yaml:"out_endpoint"`
	SwitchPolicy     string        `mapstructure:"switch_policy" yaml:"switch_policy"`
	DrainTimeout     time.Duration `mapstructure:"drain_timeout" yaml:"drain_timeout"`
	BreakToggle      bool          `mapstructure:"break_toggle" yaml:"break_toggle"`
	BreakMinDuration time.Duration `mapstructure:"break_min_duration" yaml:"break_min_duration"`
	InitialChannel   string        `mapstructure:"initial_channel" yaml:"initial_channel"`
}

// LineCodingConfig is the line coding applied when the bridge starts.
type LineCodingConfig struct {
	Baud     uint32 `mapstructure:"baud" yaml:"baud"`
	StopBits string `mapstructure:"stop_bits" yaml:"stop_bits"`
	Parity   string `mapstructure:"parity" yaml:"parity"`
	DataBits uint8  `mapstructure:"data_bits" yaml:"data_bits"`
}

// UARTConfig names the serial devices behind each channel. An empty name
// leaves the channel unconnected.
type UARTConfig struct {
	A string `mapstructure:"a" yaml:"a"`
	B string `mapstructure:"b" yaml:"b"`
}

type DisplayConfig struct {
	Mode string `mapstructure:"mode" yaml:"mode"`
}

// USBConfig locates a bridge from the host side.
type USBConfig struct {
	VendorID  uint16        `mapstructure:"vendor_id" yaml:"vendor_id"`
	ProductID uint16        `mapstructure:"product_id" yaml:"product_id"`
	Interface uint8         `mapstructure:"interface" yaml:"interface"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Detach    bool          `mapstructure:"detach" yaml:"detach"`
}

// SetDefaults installs the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	d := bridge.DefaultConfig()

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	v.SetDefault("bridge.packet_size", d.PacketSize)
	v.SetDefault("bridge.in_endpoint", d.InEndpoint)
	v.SetDefault("bridge.out_endpoint", d.OutEndpoint)
	v.SetDefault("bridge.switch_policy", d.SwitchPolicy.String())
	v.SetDefault("bridge.drain_timeout", d.DrainTimeout.String())
	v.SetDefault("bridge.break_toggle", d.BreakToggle)
	v.SetDefault("bridge.break_min_duration", d.BreakMinDuration.String())
	v.SetDefault("bridge.initial_channel", d.InitialChannel.String())

	v.SetDefault("line_coding.baud", d.LineCoding.DTERate)
	v.SetDefault("line_coding.stop_bits", d.LineCoding.CharFormat.String())
	v.SetDefault("line_coding.parity", d.LineCoding.ParityType.String())
	v.SetDefault("line_coding.data_bits", d.LineCoding.DataBits)

	v.SetDefault("uart.a", "")
	v.SetDefault("uart.b", "")

	v.SetDefault("display.mode", display.ModeLog.String())

	v.SetDefault("usb.vendor_id", DefaultVendorID)
	v.SetDefault("usb.product_id", DefaultProductID)
	v.SetDefault("usb.interface", 0)
	v.SetDefault("usb.timeout", DefaultUSBTimeout.String())
	v.SetDefault("usb.detach", true)
}

// New returns a viper instance with defaults installed and environment
// overrides bound under [EnvPrefix].
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Read loads the YAML file at path into v. An empty path reads nothing.
func Read(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Decode unmarshals the merged settings of v and validates them.
func Decode(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads defaults, the optional file at path and environment overrides.
func Load(path string) (*Config, error) {
	v := New()
	if err := Read(v, path); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	c, err := Decode(New())
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks every field that has a fixed set of values.
func (c *Config) Validate() error {
	var errs []error
	if _, err := pkg.ParseLogLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := pkg.ParseLogFormat(c.Log.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := display.ParseMode(c.Display.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.BridgeConfig(); err != nil {
		errs = append(errs, err)
	}
	if c.USB.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: usb timeout %s", pkg.ErrInvalidParameter, c.USB.Timeout))
	}
	return errors.Join(errs...)
}

// CDCLineCoding converts the line_coding section.
func (c *Config) CDCLineCoding() (cdc.LineCoding, error) {
	stop, err := cdc.ParseStopBits(c.LineCoding.StopBits)
	if err != nil {
		return cdc.LineCoding{}, err
	}
	parity, err := cdc.ParseParity(c.LineCoding.Parity)
	if err != nil {
		return cdc.LineCoding{}, err
	}
	lc := cdc.LineCoding{
		DTERate:    c.LineCoding.Baud,
		CharFormat: stop,
		ParityType: parity,
		DataBits:   c.LineCoding.DataBits,
	}
	if err := lc.Validate(); err != nil {
		return cdc.LineCoding{}, err
	}
	return lc, nil
}

// BridgeConfig converts the bridge and line_coding sections.
func (c *Config) BridgeConfig() (bridge.Config, error) {
	policy, err := bridge.ParseSwitchPolicy(c.Bridge.SwitchPolicy)
	if err != nil {
		return bridge.Config{}, err
	}
	ch, err := cdc.ParseChannel(c.Bridge.InitialChannel)
	if err != nil {
		return bridge.Config{}, err
	}
	lc, err := c.CDCLineCoding()
	if err != nil {
		return bridge.Config{}, err
	}
	bc := bridge.Config{
		PacketSize:       c.Bridge.PacketSize,
		InEndpoint:       c.Bridge.InEndpoint,
		OutEndpoint:      c.Bridge.OutEndpoint,
		SwitchPolicy:     policy,
		DrainTimeout:     c.Bridge.DrainTimeout,
		BreakToggle:      c.Bridge.BreakToggle,
		BreakMinDuration: c.Bridge.BreakMinDuration,
		InitialChannel:   ch,
		LineCoding:       lc,
	}
	if err := bc.Validate(); err != nil {
		return bridge.Config{}, err
	}
	return bc, nil
}

// DisplayMode converts the display section.
func (c *Config) DisplayMode() display.Mode {
	m, _ := display.ParseMode(c.Display.Mode)
	return m
}

// Ports returns the serial device names indexed by channel.
func (c *Config) Ports() [cdc.NumChannels]string {
	return [cdc.NumChannels]string{c.UART.A, c.UART.B}
}

// YAML returns c encoded as a YAML document that [Load] accepts.
func (c *Config) YAML() ([]byte, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return []byte(sb.String()), nil
}
