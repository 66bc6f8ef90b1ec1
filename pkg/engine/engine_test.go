// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"lightmeter-go/pkg/meter"
	"lightmeter-go/pkg/zone"
)

func newTestEngine(t *testing.T, sampler zone.Sampler) *Engine {
	t.Helper()
	e, err := New(Config{Sampler: sampler})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNewRequiresSampler(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New with nil sampler should fail")
	}
}

func TestNewDefaults(t *testing.T) {
	e := newTestEngine(t, zone.NewUniformSampler(1000))
	if e.Mode() != meter.CenterWeighted {
		t.Errorf("default mode = %v, want center-weighted", e.Mode())
	}
	if e.ISO() != DefaultISO {
		t.Errorf("default ISO = %d, want %d", e.ISO(), DefaultISO)
	}
	if e.Calibration() != DefaultCalibration {
		t.Errorf("default calibration = %v, want %v", e.Calibration(), DefaultCalibration)
	}
}

func TestSettersRejectInvalid(t *testing.T) {
	e := newTestEngine(t, zone.NewUniformSampler(1000))
	e.SetMode(meter.Spot)
	e.SetISO(400)
	e.SetCalibration(64.0)

	if e.SetMode(meter.MeteringMode(17)) {
		t.Error("SetMode accepted an out-of-range mode")
	}
	if e.SetISO(0) || e.SetISO(-100) {
		t.Error("SetISO accepted a non-positive value")
	}
	if e.SetCalibration(0) || e.SetCalibration(-1) {
		t.Error("SetCalibration accepted a non-positive value")
	}

	// Rejected writes must not disturb the prior settings.
	if e.Mode() != meter.Spot {
		t.Errorf("mode = %v after rejected write, want spot", e.Mode())
	}
	if e.ISO() != 400 {
		t.Errorf("ISO = %d after rejected write, want 400", e.ISO())
	}
	if e.Calibration() != 64.0 {
		t.Errorf("calibration = %v after rejected write, want 64", e.Calibration())
	}
}

func TestRunMeasurementUniform(t *testing.T) {
	e := newTestEngine(t, zone.NewUniformSampler(1000))
	m, err := e.RunMeasurement(context.Background())
	if err != nil {
		t.Fatalf("RunMeasurement: %v", err)
	}
	if m.Mode != meter.CenterWeighted || m.ISO != DefaultISO {
		t.Errorf("measurement settings = %v/%d, want center-weighted/%d",
			m.Mode, m.ISO, DefaultISO)
	}
	for row := 0; row < meter.GridRows; row++ {
		for col := 0; col < meter.GridCols; col++ {
			r := m.Grid[row][col]
			if r.Code != 1000 || !r.Valid {
				t.Fatalf("zone (%d,%d) = %+v, want valid code 1000", row+1, col+1, r)
			}
		}
	}

	// Uniform illumination: the aggregate equals any single zone's lux.
	want := m.Grid[0][0].Lux
	if math.Abs(m.AggregateLux-want) > 1e-6 {
		t.Errorf("aggregate lux = %v, want %v", m.AggregateLux, want)
	}
	if math.Abs(m.EV-meter.ExposureValue(want)) > 1e-9 {
		t.Errorf("EV = %v, want %v", m.EV, meter.ExposureValue(want))
	}
	if m.Recommendation.Text == "" {
		t.Error("recommendation text is empty")
	}
	if got := e.LastMeasurement(); got != m {
		t.Error("LastMeasurement did not return the completed pass")
	}
}

func TestRunMeasurementSamplerError(t *testing.T) {
	fake := zone.NewUniformSampler(1000)
	boom := errors.New("spi timeout")
	fake.SetError(boom)
	e := newTestEngine(t, fake)
	if _, err := e.RunMeasurement(context.Background()); !errors.Is(err, boom) {
		t.Errorf("RunMeasurement error = %v, want wrapped %v", err, boom)
	}
	if e.LastMeasurement() != nil {
		t.Error("failed pass must not be recorded")
	}
}

func TestRunMeasurementCancelledContext(t *testing.T) {
	fake := zone.NewUniformSampler(1000)
	e := newTestEngine(t, fake)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.RunMeasurement(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RunMeasurement error = %v, want context.Canceled", err)
	}
	if fake.Calls() != 0 {
		t.Errorf("sampler called %d times with a cancelled context", fake.Calls())
	}
}

// cancellingSampler cancels the surrounding context on its first call and
// fails any sample that still observes the cancellation.
type cancellingSampler struct {
	cancel context.CancelFunc
	calls  int
}

func (s *cancellingSampler) Sample(ctx context.Context, row, col int) (int, error) {
	s.calls++
	s.cancel()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return 1000, nil
}

func (s *cancellingSampler) Close() error { return nil }

func TestRunMeasurementAtomicAgainstCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sampler := &cancellingSampler{cancel: cancel}
	e := newTestEngine(t, sampler)

	m, err := e.RunMeasurement(ctx)
	if err != nil {
		t.Fatalf("RunMeasurement: %v", err)
	}
	if sampler.calls != 20 {
		t.Errorf("sampled %d zones, want all 20 despite mid-pass cancel", sampler.calls)
	}
	if m.Grid[4][3].Code != 1000 {
		t.Errorf("last zone code = %d, want 1000", m.Grid[4][3].Code)
	}
}

func TestRunMeasurementSaturatedZones(t *testing.T) {
	fake := zone.NewUniformSampler(2000)
	fake.SetCode(1, 1, 4095)
	fake.SetCode(3, 2, 4090)
	e := newTestEngine(t, fake)
	e.SetMode(meter.Matrix)

	m, err := e.RunMeasurement(context.Background())
	if err != nil {
		t.Fatalf("RunMeasurement: %v", err)
	}
	if m.Grid[0][0].Valid || m.Grid[2][1].Valid {
		t.Error("saturated zones should be marked invalid")
	}
	if m.SampleCount != 20 {
		t.Errorf("sample count = %v, want 20", m.SampleCount)
	}
	// Saturated zones contribute zero lux, dragging the matrix mean down
	// to 18/20 of a valid zone's reading.
	want := m.Grid[0][1].Lux * 18 / 20
	if math.Abs(m.AggregateLux-want) > 1e-6 {
		t.Errorf("aggregate lux = %v, want %v", m.AggregateLux, want)
	}
}

func TestMeasurementHook(t *testing.T) {
	e := newTestEngine(t, zone.NewUniformSampler(1500))
	var seen *Measurement
	e.OnMeasurement(func(m *Measurement) { seen = m })
	m, err := e.RunMeasurement(context.Background())
	if err != nil {
		t.Fatalf("RunMeasurement: %v", err)
	}
	if seen != m {
		t.Error("hook not invoked with the completed measurement")
	}
}
