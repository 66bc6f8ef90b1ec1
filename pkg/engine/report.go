// Text rendering of measurement results
//
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package engine

import (
	"fmt"
	"strings"

	"lightmeter-go/pkg/meter"
)

// RenderTable formats the per-zone grid as the fixed-width console table:
// one row per sensor row, each cell carrying the raw ADC code, conditioned
// voltage and derived lux.
func RenderTable(m *Measurement) string {
	var b strings.Builder
	b.WriteString("\n================= DETAILED MEASUREMENTS =================\n")
	b.WriteString("    | Column 1      | Column 2      | Column 3      | Column 4      |\n")
	b.WriteString("Row | ADC  V    Lux | ADC  V    Lux | ADC  V    Lux | ADC  V    Lux |\n")
	b.WriteString("----+---------------+---------------+---------------+---------------+\n")
	for row := 0; row < meter.GridRows; row++ {
		fmt.Fprintf(&b, " %d  |", row+1)
		for col := 0; col < meter.GridCols; col++ {
			r := m.Grid[row][col]
			fmt.Fprintf(&b, " %4d %.2fV %5.1f |", r.Code, r.Voltage, r.Lux)
		}
		b.WriteString("\n")
	}
	b.WriteString("===========================================================\n")
	return b.String()
}

// RenderSummary formats the exposure recommendation and the mode it was
// derived with.
func RenderSummary(m *Measurement) string {
	return fmt.Sprintf("\nExposure recommendation: %s\nMetering mode: %s\n\n",
		m.Recommendation.Text, m.Mode)
}
