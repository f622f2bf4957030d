// Package config holds the board profile for the heart-button daemon: which
// GPIO backend to use, which lines form the matrix and the button, and where
// diagnostics and status go.
package config

import (
	"encoding"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/sweeney/heart-button/internal/display"
	"github.com/sweeney/heart-button/internal/gpio"
	"github.com/sweeney/heart-button/internal/mqtt"
)

// Backend names a GPIO backend.
type Backend string

const (
	// BackendCdev uses the Linux GPIO character device.
	BackendCdev Backend = "gpiocdev"
	// BackendPeriph uses periph.io host drivers.
	BackendPeriph Backend = "periph"
)

// Config is the daemon configuration.
type Config struct {
	// Backend is the GPIO backend, "gpiocdev" or "periph".
	Backend Backend `toml:"backend"`
	// Chip is the GPIO chip for the gpiocdev backend.
	Chip string `toml:"chip"`
	// Rows are the five row line offsets, top to bottom.
	Rows []int `toml:"rows"`
	// Cols are the five column line offsets, left to right.
	Cols []int `toml:"cols"`
	// Button is the button line offset.
	Button int `toml:"button"`
	// Scan is the render pass order, "cell" or "row".
	Scan string `toml:"scan"`

	Diag DiagConfig `toml:"diag"`
	MQTT MQTTConfig `toml:"mqtt"`

	// HTTP is the status server address. Empty disables it.
	HTTP string `toml:"http"`
}

// DiagConfig configures the diagnostic channel.
type DiagConfig struct {
	// Stdout copies diagnostic lines to standard output.
	Stdout bool `toml:"stdout"`
	// Serial is a serial device for diagnostic lines, e.g. /dev/ttyACM0.
	Serial string `toml:"serial"`
	// Baud is the serial baud rate.
	Baud int `toml:"baud"`
}

// MQTTConfig configures the MQTT publisher. An empty Broker disables it.
type MQTTConfig struct {
	Broker    string   `toml:"broker"`
	ClientID  string   `toml:"client_id"`
	Prefix    string   `toml:"prefix"`
	Heartbeat Duration `toml:"heartbeat"`
}

// Default returns the built-in profile.
func Default() *Config {
	return &Config{
		Backend: BackendCdev,
		Chip:    "gpiochip0",
		Rows:    append([]int(nil), gpio.DefaultPins.Rows[:]...),
		Cols:    append([]int(nil), gpio.DefaultPins.Cols[:]...),
		Button:  gpio.DefaultPins.Button,
		Scan:    string(display.ScanCell),
		Diag: DiagConfig{
			Stdout: true,
			Baud:   115200,
		},
		MQTT: MQTTConfig{
			ClientID:  "heart-button",
			Prefix:    mqtt.DefaultPrefix,
			Heartbeat: Duration(15 * time.Minute),
		},
		HTTP: ":80",
	}
}

// Parse reads a TOML profile from r on top of the defaults.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}

// Validate checks the profile for wiring mistakes.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendCdev:
		if c.Chip == "" {
			return errors.New("gpiocdev backend needs a chip")
		}
	case BackendPeriph:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if len(c.Rows) != display.Size {
		return fmt.Errorf("need %d rows, got %d", display.Size, len(c.Rows))
	}
	if len(c.Cols) != display.Size {
		return fmt.Errorf("need %d cols, got %d", display.Size, len(c.Cols))
	}

	seen := make(map[int]string)
	check := func(name string, n int) error {
		if n < 0 {
			return fmt.Errorf("%s: negative line offset %d", name, n)
		}
		if prev, ok := seen[n]; ok {
			return fmt.Errorf("%s: line %d already used by %s", name, n, prev)
		}
		seen[n] = name
		return nil
	}
	for i, n := range c.Rows {
		if err := check(fmt.Sprintf("row %d", i), n); err != nil {
			return err
		}
	}
	for i, n := range c.Cols {
		if err := check(fmt.Sprintf("col %d", i), n); err != nil {
			return err
		}
	}
	if err := check("button", c.Button); err != nil {
		return err
	}

	if _, err := display.ParseScanMode(c.Scan); err != nil {
		return errors.Wrap(err, "scan")
	}
	if c.MQTT.Heartbeat < 0 {
		return errors.New("mqtt heartbeat must not be negative")
	}
	return nil
}

// Pins returns the line offsets. Call Validate first.
func (c *Config) Pins() gpio.Pins {
	var p gpio.Pins
	copy(p.Rows[:], c.Rows)
	copy(p.Cols[:], c.Cols)
	p.Button = c.Button
	return p
}

// Duration is a time.Duration read from a TOML string such as "15m".
type Duration time.Duration

var (
	_ encoding.TextUnmarshaler = (*Duration)(nil)
	_ encoding.TextMarshaler   = (*Duration)(nil)
)

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}
