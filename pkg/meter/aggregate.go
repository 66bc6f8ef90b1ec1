// Zone aggregation for the 4x5 camera light meter
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package meter

import "sort"

// Zone grid dimensions. The sensor head is a fixed 5x4 photodiode array.
const (
	GridRows = 5
	GridCols = 4
)

// Grid holds the conditioned readings of one complete measurement pass.
// Index [0][0] is zone row 1, column 1.
type Grid [GridRows][GridCols]Reading

// highlightShare is the number of brightest zones averaged in Highlight
// mode: the top 25% of the 20-zone grid.
const highlightShare = 5

// Aggregate reduces the grid's illuminance values to a single aggregate
// according to the metering mode, returning the aggregate lux and the
// effective sample count (the weight sum for weighted modes). Invalid
// readings carry zero illuminance and therefore pull the aggregate down
// rather than being excluded.
func Aggregate(grid *Grid, mode MeteringMode) (aggregateLux, sampleCount float64) {
	var total, count float64

	switch mode {
	case Matrix:
		for row := 0; row < GridRows; row++ {
			for col := 0; col < GridCols; col++ {
				total += grid[row][col].Lux
				count++
			}
		}

	case Spot:
		// Only the two most central zones: row 3, columns 2 and 3.
		total = grid[2][1].Lux + grid[2][2].Lux
		count = 2

	case Highlight:
		values := make([]float64, 0, GridRows*GridCols)
		for row := 0; row < GridRows; row++ {
			for col := 0; col < GridCols; col++ {
				values = append(values, grid[row][col].Lux)
			}
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(values)))
		for i := 0; i < highlightShare; i++ {
			total += values[i]
		}
		count = highlightShare

	default:
		// CenterWeighted. Central block is rows 2-4, columns 2-3
		// (1-indexed), weighted double.
		for row := 0; row < GridRows; row++ {
			for col := 0; col < GridCols; col++ {
				weight := 1.0
				if row >= 1 && row <= 3 && col >= 1 && col <= 2 {
					weight = 2.0
				}
				total += grid[row][col].Lux * weight
				count += weight
			}
		}
	}

	if count <= 0 {
		return 0, 0
	}
	return total / count, count
}
