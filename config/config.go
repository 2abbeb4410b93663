// Package config loads geocraft settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mastercactapus/geocraft/gcode"
)

type Config struct {
	Serial  Serial              `yaml:"serial"`
	Machine gcode.MachineParams `yaml:"machine"`
	HTTP    HTTP                `yaml:"http"`
	SPJS    SPJS                `yaml:"spjs"`
}

type Serial struct {
	Port         string        `yaml:"port"`
	Baud         int           `yaml:"baud"`
	PollInterval time.Duration `yaml:"poll_interval"`

	// AckTimeout of zero waits forever for each line.
	AckTimeout time.Duration `yaml:"ack_timeout"`
	JogFeed    float64       `yaml:"jog_feed"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

// SPJS selects a remote serial-port-json-server instead of a local port.
type SPJS struct {
	URL string `yaml:"url"`
}

// Default returns the settings used for anything a file leaves out.
func Default() Config {
	return Config{
		Serial: Serial{
			Baud:         115200,
			PollInterval: 250 * time.Millisecond,
			AckTimeout:   30 * time.Second,
			JogFeed:      1000,
		},
		Machine: gcode.MachineParams{
			FeedRate:     300,
			SafeZ:        5,
			StepDown:     -1,
			RetractZ:     1,
			PeckQ:        1,
			ToolDiameter: 3.175,
			Stepover:     1,
		},
		HTTP: HTTP{Addr: ":9091"},
	}
}

// Read decodes YAML from r over the defaults. Unknown keys are rejected.
func Read(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Load reads the file at path. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Read(bytes.NewReader(nil))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Read(bytes.NewReader(data))
}

func (c Config) Validate() error {
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.Serial.PollInterval <= 0 {
		return fmt.Errorf("serial.poll_interval must be positive, got %s", c.Serial.PollInterval)
	}
	if c.Serial.AckTimeout < 0 {
		return fmt.Errorf("serial.ack_timeout must not be negative, got %s", c.Serial.AckTimeout)
	}
	if c.Serial.JogFeed <= 0 {
		return fmt.Errorf("serial.jog_feed must be positive, got %g", c.Serial.JogFeed)
	}
	if c.Machine.ToolDiameter <= 0 {
		return fmt.Errorf("machine.tool_diameter must be positive, got %g", c.Machine.ToolDiameter)
	}
	if c.Machine.Stepover <= 0 {
		return fmt.Errorf("machine.stepover must be positive, got %g", c.Machine.Stepover)
	}
	if err := c.Machine.Validate(); err != nil {
		return fmt.Errorf("machine: %w", err)
	}
	return nil
}
