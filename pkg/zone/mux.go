// Multiplexer board driver
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package zone

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"

	"lightmeter-go/pkg/log"
)

// MuxConfig configures the multiplexer sampler. Pin names are resolved
// through the periph GPIO registry (e.g. "GPIO6").
type MuxConfig struct {
	Mux0Pin   string
	Mux1Pin   string
	EnablePin string

	// Settle delays of the reference acquisition sequence.
	SelectSettle time.Duration // after the mux lines change
	EnableSettle time.Duration // after the measurement circuit powers up
	InterZone    time.Duration // between consecutive zones
}

// DefaultMuxConfig returns the reference board wiring and timings.
func DefaultMuxConfig() MuxConfig {
	return MuxConfig{
		Mux0Pin:      "GPIO6",
		Mux1Pin:      "GPIO7",
		EnablePin:    "GPIO3",
		SelectSettle: 1 * time.Millisecond,
		EnableSettle: 10 * time.Millisecond,
		InterZone:    50 * time.Millisecond,
	}
}

// MuxSampler drives the multiplexer board. It is not safe for concurrent
// use; the engine serializes measurement passes.
type MuxSampler struct {
	mux0   gpio.PinIO
	mux1   gpio.PinIO
	enable gpio.PinIO // active low
	adc    ADC
	cfg    MuxConfig
	logger *log.Logger
}

// NewMuxSampler initializes the periph host, claims the select and enable
// pins and leaves the board idle: measurement disabled, mux at 00.
func NewMuxSampler(cfg MuxConfig, adc ADC) (*MuxSampler, error) {
	if adc == nil {
		return nil, fmt.Errorf("zone: adc is required")
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	pins := make([]gpio.PinIO, 3)
	for i, name := range []string{cfg.Mux0Pin, cfg.Mux1Pin, cfg.EnablePin} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("zone: no such pin %q", name)
		}
		pins[i] = p
	}

	s := &MuxSampler{
		mux0:   pins[0],
		mux1:   pins[1],
		enable: pins[2],
		adc:    adc,
		cfg:    cfg,
		logger: log.GetLogger("zone"),
	}

	// Idle state: nENABLE high (disabled), mux at 00.
	if err := s.enable.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("zone: enable pin: %w", err)
	}
	if err := s.mux0.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("zone: mux0 pin: %w", err)
	}
	if err := s.mux1.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("zone: mux1 pin: %w", err)
	}

	s.logger.Info("multiplexer ready: mux0=%s mux1=%s enable=%s",
		cfg.Mux0Pin, cfg.Mux1Pin, cfg.EnablePin)
	return s, nil
}

// Sample runs the full acquisition sequence for one zone: select, settle,
// enable, settle, read, disable, inter-zone delay.
func (s *MuxSampler) Sample(ctx context.Context, row, col int) (int, error) {
	if row < 1 || row > Rows || col < 1 || col > Cols {
		return 0, fmt.Errorf("zone: invalid coordinates row %d, col %d", row, col)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := s.selectColumn(col); err != nil {
		return 0, err
	}
	time.Sleep(s.cfg.SelectSettle)

	if err := s.enable.Out(gpio.Low); err != nil {
		return 0, fmt.Errorf("zone: enable: %w", err)
	}
	time.Sleep(s.cfg.EnableSettle)

	code, err := s.adc.Read(row - 1)

	if derr := s.enable.Out(gpio.High); derr != nil && err == nil {
		err = fmt.Errorf("zone: disable: %w", derr)
	}
	if err != nil {
		return 0, err
	}

	s.logger.Debug("zone (%d,%d) code %d", row, col, code)
	time.Sleep(s.cfg.InterZone)
	return code, nil
}

// selectColumn sets the two multiplexer select lines. Mux0 is the LSB.
func (s *MuxSampler) selectColumn(col int) error {
	sel := col - 1
	if err := s.mux0.Out(gpio.Level(sel&0x01 != 0)); err != nil {
		return fmt.Errorf("zone: mux0: %w", err)
	}
	if err := s.mux1.Out(gpio.Level((sel>>1)&0x01 != 0)); err != nil {
		return fmt.Errorf("zone: mux1: %w", err)
	}
	return nil
}

// Close returns the board to its idle state.
func (s *MuxSampler) Close() error {
	if err := s.enable.Out(gpio.High); err != nil {
		return err
	}
	if err := s.mux0.Out(gpio.Low); err != nil {
		return err
	}
	return s.mux1.Out(gpio.Low)
}
