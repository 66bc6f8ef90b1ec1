// Metering mode selection for the 4x5 camera light meter
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package meter

import "strings"

// MeteringMode selects the spatial statistic used to reduce the 5x4
// illuminance grid to a single aggregate value.
type MeteringMode int

const (
	// CenterWeighted gives double weight to the central zones. Default.
	CenterWeighted MeteringMode = iota

	// Matrix averages all 20 zones with equal weight.
	Matrix

	// Spot uses only the two most central zones.
	Spot

	// Highlight averages the brightest 25% of zones.
	Highlight
)

// Valid reports whether m is one of the defined metering modes.
func (m MeteringMode) Valid() bool {
	return m >= CenterWeighted && m <= Highlight
}

// String returns the canonical mode name.
func (m MeteringMode) String() string {
	switch m {
	case CenterWeighted:
		return "center-weighted"
	case Matrix:
		return "matrix"
	case Spot:
		return "spot"
	case Highlight:
		return "highlight"
	default:
		return "unknown"
	}
}

// ModeFromName resolves a user-supplied mode name, case-insensitively.
// Unrecognized names, including the empty string, resolve to CenterWeighted.
func ModeFromName(name string) MeteringMode {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "center", "central", "center-weighted":
		return CenterWeighted
	case "matrix", "evaluative":
		return Matrix
	case "spot":
		return Spot
	case "highlight", "highlights":
		return Highlight
	default:
		return CenterWeighted
	}
}
