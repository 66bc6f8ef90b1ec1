// Light meter metrics definitions
//
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import "sync"

// MeterMetrics holds the meter's operational metrics.
type MeterMetrics struct {
	// Measurement pass metrics
	MeasurementsTotal   *Counter
	MeasurementFailures *Counter
	MeasurementDuration *Histogram

	// Zone quality metrics
	SaturatedZones *Counter
	LowZones       *Counter

	// Latest pass results
	AggregateLux  *Gauge
	ExposureValue *Gauge

	// Current settings
	ISO         *Gauge
	Calibration *Gauge
}

// NewMeterMetrics creates the meter metric set.
func NewMeterMetrics() *MeterMetrics {
	return &MeterMetrics{
		MeasurementsTotal:   NewCounter("lightmeter_measurements_total", "Completed measurement passes"),
		MeasurementFailures: NewCounter("lightmeter_measurement_failures_total", "Failed measurement passes"),
		MeasurementDuration: NewHistogram("lightmeter_measurement_duration_seconds", "Duration of a full 20-zone pass",
			[]float64{0.5, 1, 1.5, 2, 3, 5}),
		SaturatedZones: NewCounter("lightmeter_saturated_zones_total", "Zone readings discarded as saturated"),
		LowZones:       NewCounter("lightmeter_low_zones_total", "Zone readings discarded below the noise floor"),
		AggregateLux:   NewGauge("lightmeter_aggregate_lux", "Aggregate illuminance of the latest pass"),
		ExposureValue:  NewGauge("lightmeter_exposure_value", "Exposure value of the latest pass"),
		ISO:            NewGauge("lightmeter_iso", "Configured film speed"),
		Calibration:    NewGauge("lightmeter_calibration_factor", "Configured shutter speed calibration factor"),
	}
}

// RegisterAll registers every meter metric with the registry.
func (m *MeterMetrics) RegisterAll(r *Registry) error {
	for _, metric := range []Metric{
		m.MeasurementsTotal,
		m.MeasurementFailures,
		m.MeasurementDuration,
		m.SaturatedZones,
		m.LowZones,
		m.AggregateLux,
		m.ExposureValue,
		m.ISO,
		m.Calibration,
	} {
		if err := r.Register(metric); err != nil {
			return err
		}
	}
	return nil
}

var (
	meterMetricsOnce sync.Once
	meterMetrics     *MeterMetrics
)

// GlobalMeterMetrics returns the process-wide meter metric set,
// registered with the default registry.
func GlobalMeterMetrics() *MeterMetrics {
	meterMetricsOnce.Do(func() {
		meterMetrics = NewMeterMetrics()
		if err := meterMetrics.RegisterAll(DefaultRegistry()); err != nil {
			panic(err)
		}
	})
	return meterMetrics
}
