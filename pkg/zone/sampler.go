// Zone acquisition for the 4x5 light meter sensor head
//
// The sensor head is a 5x4 photodiode array behind an analog multiplexer:
// two select lines address the column, an active-low enable line powers the
// measurement circuit, and one ADC channel per row reads the diode output.
//
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package zone

import "context"

// Fixed sensor grid dimensions.
const (
	Rows = 5
	Cols = 4
)

// Sampler acquires one raw ADC code for a zone of the sensor grid.
// Implementations own zone selection and settle timing; a full pass over
// the grid takes on the order of 1.2 seconds with the reference timings.
type Sampler interface {
	// Sample returns the 12-bit ADC code (0..4095) for the zone at
	// row (1..5), col (1..4). The context is checked before the zone is
	// selected; an in-flight sample is not interrupted.
	Sample(ctx context.Context, row, col int) (int, error)

	// Close releases the underlying hardware.
	Close() error
}

// ADC reads one 12-bit sample from the converter channel wired to a grid
// row. Channel numbering is 0-based.
type ADC interface {
	Read(channel int) (int, error)
}
