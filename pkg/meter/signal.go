// Signal conditioning for the 4x5 camera light meter
//
// Converts raw photodiode ADC codes into voltage and illuminance, applying
// the saturation and noise-floor policy before any value reaches the
// aggregation stage.
//
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package meter

import (
	"fmt"
	"sort"
)

const (
	// VRef is the ADC reference voltage.
	VRef = 3.3

	// ADCMax is the full-scale code of the 12-bit converter.
	ADCMax = 4095

	// SaturationCode marks readings at or near full scale as clipped.
	SaturationCode = 4090

	// calibrationCutoff: codes at or above this bypass the calibration
	// table and fall back to the linear model.
	calibrationCutoff = 4000

	// Photodiode transfer function: Viout = sensitivity * Ev * Rload.
	// Sensor-physical constants, not runtime tunable.
	Sensitivity = 0.0057e-6
	RLoadOhm    = 1300.0

	// NoiseFloorLux is the minimum reliable illuminance reading.
	NoiseFloorLux = 10.0
)

// RawSample is one photodiode reading as delivered by the acquisition layer.
type RawSample struct {
	Row  int // 1-based zone row, 1..5
	Col  int // 1-based zone column, 1..4
	Code int // 12-bit ADC code, 0..4095
}

// Reading is one conditioned zone sample. Immutable once constructed; a
// Reading with Valid=false always carries Lux=0.
type Reading struct {
	Row     int
	Col     int
	Code    int
	Voltage float64
	Lux     float64
	Valid   bool
}

// CalibrationPoint is one measured code/voltage pair of the converter's
// transfer curve.
type CalibrationPoint struct {
	Code    int
	Voltage float64
}

// CalibrationTable corrects the converter's nonlinearity with a
// piecewise-linear code to voltage mapping.
type CalibrationTable struct {
	points []CalibrationPoint
}

// NewCalibrationTable builds a table from measured points. At least two
// points are required and codes must be strictly ascending.
func NewCalibrationTable(points []CalibrationPoint) (*CalibrationTable, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("calibration table needs at least 2 points, got %d", len(points))
	}
	sorted := make([]CalibrationPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Code == sorted[i-1].Code {
			return nil, fmt.Errorf("duplicate calibration point for code %d", sorted[i].Code)
		}
	}
	for _, p := range sorted {
		if p.Voltage < 0 {
			return nil, fmt.Errorf("negative voltage %.4f for code %d", p.Voltage, p.Code)
		}
	}
	return &CalibrationTable{points: sorted}, nil
}

// Voltage interpolates the calibrated voltage for a raw code. Codes outside
// the table's range are clamped to the first or last segment.
func (t *CalibrationTable) Voltage(code int) float64 {
	pts := t.points
	if code <= pts[0].Code {
		return pts[0].Voltage
	}
	if code >= pts[len(pts)-1].Code {
		return pts[len(pts)-1].Voltage
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].Code >= code })
	lo, hi := pts[i-1], pts[i]
	frac := float64(code-lo.Code) / float64(hi.Code-lo.Code)
	return lo.Voltage + frac*(hi.Voltage-lo.Voltage)
}

// SignalConditioner converts raw ADC codes into illuminance samples.
type SignalConditioner struct {
	table *CalibrationTable // optional; nil selects the linear model
}

// NewSignalConditioner creates a conditioner. table may be nil, in which
// case the pure linear ADC model is used for all codes.
func NewSignalConditioner(table *CalibrationTable) *SignalConditioner {
	return &SignalConditioner{table: table}
}

// CodeToVoltage converts a raw ADC code to volts. The calibration table is
// used for non-saturated codes when available; codes at or above
// SaturationCode always report the full reference voltage.
func (c *SignalConditioner) CodeToVoltage(code int) float64 {
	if c.table != nil && code < calibrationCutoff {
		return c.table.Voltage(code)
	}
	if code >= SaturationCode {
		return VRef
	}
	return float64(code) * VRef / ADCMax
}

// VoltageToLux converts the photodiode output voltage to illuminance:
// Ev = Viout / (sensitivity * Rload).
func VoltageToLux(voltage float64) float64 {
	return voltage / (Sensitivity * RLoadOhm)
}

// Condition builds the conditioned reading for one raw sample. Saturated
// codes and readings below the noise floor are marked invalid with zero
// illuminance; the saturation check wins when both apply.
func (c *SignalConditioner) Condition(s RawSample) Reading {
	voltage := c.CodeToVoltage(s.Code)
	lux := VoltageToLux(voltage)
	r := Reading{
		Row:     s.Row,
		Col:     s.Col,
		Code:    s.Code,
		Voltage: voltage,
		Lux:     lux,
		Valid:   true,
	}
	if s.Code >= SaturationCode || lux < NoiseFloorLux {
		r.Valid = false
		r.Lux = 0
	}
	return r
}
