// Exposure value and shutter speed derivation
//
// Uses the reflected-light model EV = log2(lux/2.5) with a multiplicative
// shutter-speed calibration factor.
//
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package meter

import (
	"fmt"
	"math"
)

const (
	// EVMin and EVMax bound the photographic exposure range.
	EVMin = -6.0
	EVMax = 20.0

	// evLuxDivisor converts aggregate illuminance to EV.
	evLuxDivisor = 2.5

	// referenceISO is the film speed the base shutter formula assumes.
	referenceISO = 100.0
)

// ExposureValue derives the exposure value from the aggregate illuminance,
// clamped to [EVMin, EVMax]. Non-positive input skips the logarithm and
// returns the EV floor directly.
func ExposureValue(aggregateLux float64) float64 {
	if aggregateLux <= 0 {
		return EVMin
	}
	ev := math.Log2(aggregateLux / evLuxDivisor)
	return math.Max(EVMin, math.Min(EVMax, ev))
}

// ShutterSeconds derives the recommended exposure time in seconds:
// t = 2^-EV * (100/ISO) * calibration.
func ShutterSeconds(ev float64, iso int, calibration float64) float64 {
	return math.Pow(2, -ev) * (referenceISO / float64(iso)) * calibration
}

// Recommendation is the ephemeral exposure recommendation of one
// measurement pass. Text renders the shutter time as whole seconds when
// one second or longer, and as a 1/N fraction otherwise.
type Recommendation struct {
	Text    string
	Seconds float64
	ISO     int
	EV      float64
}

// FormatRecommendation renders the exposure summary line.
func FormatRecommendation(seconds float64, iso int, ev float64) string {
	if seconds >= 1 {
		return fmt.Sprintf("ISO %d, %.1f seconds (EV: %.1f)", iso, seconds, ev)
	}
	denominator := int(math.Round(1 / seconds))
	return fmt.Sprintf("ISO %d, 1/%d (EV: %.1f)", iso, denominator, ev)
}

// Recommend combines the shutter derivation and formatting for one EV/ISO
// pair under the given calibration factor.
func Recommend(ev float64, iso int, calibration float64) Recommendation {
	seconds := ShutterSeconds(ev, iso, calibration)
	return Recommendation{
		Text:    FormatRecommendation(seconds, iso, ev),
		Seconds: seconds,
		ISO:     iso,
		EV:      ev,
	}
}
