// Configuration for the light meter daemon
//
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"lightmeter-go/pkg/meter"
	"lightmeter-go/pkg/zone"
)

// Duration unmarshals YAML strings like "50ms" into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Device holds the acquisition hardware wiring.
type Device struct {
	// SPIPort selects the SPI bus of the external ADC. Empty means the
	// platform default.
	SPIPort string `yaml:"spi_port"`

	// Multiplexer control pins, named as the host's GPIO registry
	// knows them.
	Mux0Pin   string `yaml:"mux0_pin"`
	Mux1Pin   string `yaml:"mux1_pin"`
	EnablePin string `yaml:"enable_pin"`

	// Settling times. Zero selects the hardware defaults.
	SelectSettle Duration `yaml:"select_settle"`
	EnableSettle Duration `yaml:"enable_settle"`
	InterZone    Duration `yaml:"inter_zone"`
}

// Meter holds the initial exposure settings.
type Meter struct {
	ISO         int     `yaml:"iso"`
	Mode        string  `yaml:"mode"`
	Calibration float64 `yaml:"calibration"`
}

// CalibrationPoint is one measured code/voltage pair of the converter
// linearization table.
type CalibrationPoint struct {
	Code    int     `yaml:"code"`
	Voltage float64 `yaml:"voltage"`
}

// Telemetry configures the MQTT publisher.
type Telemetry struct {
	Enable           bool   `yaml:"enable"`
	Broker           string `yaml:"broker"`
	ClientID         string `yaml:"client_id"`
	MeasurementTopic string `yaml:"measurement_topic"`
	CommandTopic     string `yaml:"command_topic"`
}

// Server configures the HTTP status API.
type Server struct {
	Enable  bool   `yaml:"enable"`
	Address string `yaml:"address"`
}

// History configures the on-disk measurement log.
type History struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

// Config is the daemon's complete configuration.
type Config struct {
	Device    Device             `yaml:"device"`
	Meter     Meter              `yaml:"meter"`
	Table     []CalibrationPoint `yaml:"calibration_table,omitempty"`
	Telemetry Telemetry          `yaml:"telemetry"`
	Server    Server             `yaml:"server"`
	History   History            `yaml:"history"`

	// Schedule is an optional cron expression for unattended
	// measurement passes.
	Schedule string `yaml:"schedule,omitempty"`
}

// Default returns the configuration matching the reference hardware.
func Default() Config {
	mux := zone.DefaultMuxConfig()
	return Config{
		Device: Device{
			Mux0Pin:      mux.Mux0Pin,
			Mux1Pin:      mux.Mux1Pin,
			EnablePin:    mux.EnablePin,
			SelectSettle: Duration(mux.SelectSettle),
			EnableSettle: Duration(mux.EnableSettle),
			InterZone:    Duration(mux.InterZone),
		},
		Meter: Meter{
			ISO:         100,
			Mode:        meter.CenterWeighted.String(),
			Calibration: 128.0,
		},
		Telemetry: Telemetry{
			ClientID:         "lightmeterd",
			MeasurementTopic: "lightmeter/measurement",
			CommandTopic:     "lightmeter/command",
		},
		Server: Server{
			Address: "127.0.0.1:7225",
		},
		History: History{
			Path: "lightmeter.db",
		},
	}
}

// Load reads a YAML configuration file, layered over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: unable to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot start
// with.
func (c *Config) Validate() error {
	if c.Meter.ISO <= 0 {
		return fmt.Errorf("config: iso must be positive, got %d", c.Meter.ISO)
	}
	if c.Meter.Calibration <= 0 {
		return fmt.Errorf("config: calibration must be positive, got %v", c.Meter.Calibration)
	}
	if len(c.Table) == 1 {
		return fmt.Errorf("config: calibration_table needs at least 2 points")
	}
	if c.Telemetry.Enable && c.Telemetry.Broker == "" {
		return fmt.Errorf("config: telemetry enabled without a broker")
	}
	if c.Server.Enable && c.Server.Address == "" {
		return fmt.Errorf("config: server enabled without an address")
	}
	if c.History.Enable && c.History.Path == "" {
		return fmt.Errorf("config: history enabled without a path")
	}
	return nil
}

// CalibrationTable converts the configured points into a usable table.
// Returns nil when no table is configured.
func (c *Config) CalibrationTable() (*meter.CalibrationTable, error) {
	if len(c.Table) == 0 {
		return nil, nil
	}
	points := make([]meter.CalibrationPoint, len(c.Table))
	for i, p := range c.Table {
		points[i] = meter.CalibrationPoint{Code: p.Code, Voltage: p.Voltage}
	}
	table, err := meter.NewCalibrationTable(points)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return table, nil
}

// MuxConfig converts the device section into the sampler's wiring
// description.
func (c *Config) MuxConfig() zone.MuxConfig {
	mux := zone.DefaultMuxConfig()
	if c.Device.Mux0Pin != "" {
		mux.Mux0Pin = c.Device.Mux0Pin
	}
	if c.Device.Mux1Pin != "" {
		mux.Mux1Pin = c.Device.Mux1Pin
	}
	if c.Device.EnablePin != "" {
		mux.EnablePin = c.Device.EnablePin
	}
	if c.Device.SelectSettle > 0 {
		mux.SelectSettle = time.Duration(c.Device.SelectSettle)
	}
	if c.Device.EnableSettle > 0 {
		mux.EnableSettle = time.Duration(c.Device.EnableSettle)
	}
	if c.Device.InterZone > 0 {
		mux.InterZone = time.Duration(c.Device.InterZone)
	}
	return mux
}
