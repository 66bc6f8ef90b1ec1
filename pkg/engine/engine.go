// Measurement engine for the 4x5 camera light meter
//
// The Engine owns the meter's runtime state: metering mode, shutter-speed
// calibration factor and ISO, plus the acquisition sampler. Configuration
// writes may arrive from the console, MQTT or HTTP while a pass is running,
// so the settings are mutex-guarded and every pass works from a snapshot
// taken at its start.
//
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lightmeter-go/pkg/log"
	"lightmeter-go/pkg/meter"
	"lightmeter-go/pkg/metrics"
	"lightmeter-go/pkg/zone"
)

// Defaults applied when the configuration leaves them unset.
const (
	DefaultISO         = 100
	DefaultCalibration = 128.0
)

// Config assembles an Engine.
type Config struct {
	// Sampler acquires raw zone codes. Required.
	Sampler zone.Sampler

	// Table optionally corrects the converter's nonlinearity.
	Table *meter.CalibrationTable

	// Initial settings; zero values select the defaults.
	Mode        meter.MeteringMode
	ISO         int
	Calibration float64
}

// Measurement is the result of one complete 20-zone pass.
type Measurement struct {
	Time           time.Time
	Grid           meter.Grid
	Mode           meter.MeteringMode
	ISO            int
	AggregateLux   float64
	SampleCount    float64
	EV             float64
	Recommendation meter.Recommendation
}

// MeasurementHook observes completed measurements. Hooks run synchronously
// on the measuring goroutine, after the pass finishes.
type MeasurementHook func(*Measurement)

// Engine is the long-lived meter context. Construct with New; the zero
// value is not usable.
type Engine struct {
	sampler zone.Sampler
	cond    *meter.SignalConditioner
	logger  *log.Logger
	metrics *metrics.MeterMetrics

	mu          sync.Mutex
	mode        meter.MeteringMode
	iso         int
	calibration float64
	last        *Measurement
	hooks       []MeasurementHook

	// measureMu serializes measurement passes.
	measureMu sync.Mutex
}

// New creates an Engine. Invalid initial settings fall back to the
// defaults rather than failing: the engine must always come up.
func New(cfg Config) (*Engine, error) {
	if cfg.Sampler == nil {
		return nil, errors.New("engine: sampler is required")
	}
	mode := cfg.Mode
	if !mode.Valid() {
		mode = meter.CenterWeighted
	}
	iso := cfg.ISO
	if iso <= 0 {
		iso = DefaultISO
	}
	calibration := cfg.Calibration
	if calibration <= 0 {
		calibration = DefaultCalibration
	}
	e := &Engine{
		sampler:     cfg.Sampler,
		cond:        meter.NewSignalConditioner(cfg.Table),
		logger:      log.GetLogger("engine"),
		metrics:     metrics.GlobalMeterMetrics(),
		mode:        mode,
		iso:         iso,
		calibration: calibration,
	}
	e.metrics.ISO.Set(nil, float64(iso))
	e.metrics.Calibration.Set(nil, calibration)
	return e, nil
}

// SetMode changes the metering mode. Out-of-range modes are rejected:
// the prior mode is retained and false is returned.
func (e *Engine) SetMode(mode meter.MeteringMode) bool {
	if !mode.Valid() {
		e.logger.Warn("invalid metering mode: %d", int(mode))
		return false
	}
	e.mu.Lock()
	e.mode = mode
	e.mu.Unlock()
	e.logger.Info("metering mode set to: %s", mode)
	return true
}

// SetCalibration changes the shutter-speed calibration factor. Non-positive
// values are rejected and leave the prior factor unchanged.
func (e *Engine) SetCalibration(factor float64) bool {
	if factor <= 0 {
		e.logger.Warn("invalid calibration factor: %.2f (must be positive)", factor)
		return false
	}
	e.mu.Lock()
	e.calibration = factor
	e.mu.Unlock()
	e.metrics.Calibration.Set(nil, factor)
	e.logger.Info("shutter speed calibration set to: %.2f", factor)
	return true
}

// SetISO changes the film speed. Non-positive values are rejected.
func (e *Engine) SetISO(iso int) bool {
	if iso <= 0 {
		e.logger.Warn("invalid ISO value: %d", iso)
		return false
	}
	e.mu.Lock()
	e.iso = iso
	e.mu.Unlock()
	e.metrics.ISO.Set(nil, float64(iso))
	e.logger.Info("ISO configured to: %d", iso)
	return true
}

// Mode returns the current metering mode.
func (e *Engine) Mode() meter.MeteringMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Calibration returns the current shutter-speed calibration factor.
func (e *Engine) Calibration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calibration
}

// ISO returns the current film speed.
func (e *Engine) ISO() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.iso
}

// LastMeasurement returns the most recent completed pass, or nil.
func (e *Engine) LastMeasurement() *Measurement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// OnMeasurement registers a hook invoked after every completed pass.
// Registration is not synchronized with running passes; register hooks
// before the first measurement.
func (e *Engine) OnMeasurement(hook MeasurementHook) {
	e.hooks = append(e.hooks, hook)
}

// snapshot captures the settings as of a single instant.
func (e *Engine) snapshot() (meter.MeteringMode, int, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode, e.iso, e.calibration
}

// RunMeasurement acquires all 20 zones sequentially and derives the
// exposure recommendation. Only one pass runs at a time; once started a
// pass is not cancellable, the context is consulted before the first zone
// only.
func (e *Engine) RunMeasurement(ctx context.Context) (*Measurement, error) {
	e.measureMu.Lock()
	defer e.measureMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The pass is atomic: cancellation after this point is ignored, so
	// the analog board is never abandoned mid-sequence.
	passCtx := context.WithoutCancel(ctx)

	mode, iso, calibration := e.snapshot()
	e.logger.Info("starting light measurement with %s metering", mode)
	start := time.Now()

	m := &Measurement{Time: start, Mode: mode, ISO: iso}
	for row := 1; row <= meter.GridRows; row++ {
		for col := 1; col <= meter.GridCols; col++ {
			code, err := e.sampler.Sample(passCtx, row, col)
			if err != nil {
				e.metrics.MeasurementFailures.Inc(nil)
				return nil, fmt.Errorf("zone (%d,%d): %w", row, col, err)
			}
			r := e.cond.Condition(meter.RawSample{Row: row, Col: col, Code: code})
			if !r.Valid {
				if code >= meter.SaturationCode {
					e.metrics.SaturatedZones.Inc(nil)
					e.logger.Warn("skipping saturated reading at row %d, col %d (ADC: %d)",
						row, col, code)
				} else {
					e.metrics.LowZones.Inc(nil)
					e.logger.Warn("skipping too low reading at row %d, col %d (ADC: %d)",
						row, col, code)
				}
			}
			m.Grid[row-1][col-1] = r
		}
	}

	m.AggregateLux, m.SampleCount = meter.Aggregate(&m.Grid, mode)
	m.EV = meter.ExposureValue(m.AggregateLux)
	m.Recommendation = meter.Recommend(m.EV, iso, calibration)

	e.metrics.MeasurementsTotal.Inc(nil)
	e.metrics.MeasurementDuration.Observe(nil, time.Since(start).Seconds())
	e.metrics.AggregateLux.Set(nil, m.AggregateLux)
	e.metrics.ExposureValue.Set(nil, m.EV)

	e.logger.WithFields(log.Fields{
		"mode": mode.String(),
		"lux":  fmt.Sprintf("%.2f", m.AggregateLux),
		"ev":   fmt.Sprintf("%.2f", m.EV),
		"iso":  iso,
	}).Info("measurement complete")

	e.mu.Lock()
	e.last = m
	e.mu.Unlock()

	for _, hook := range e.hooks {
		hook(m)
	}
	return m, nil
}

// Close releases the sampler.
func (e *Engine) Close() error {
	return e.sampler.Close()
}
