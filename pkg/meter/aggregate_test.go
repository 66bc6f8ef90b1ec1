// Zone aggregation unit tests
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package meter

import (
	"math"
	"math/rand"
	"testing"
)

// uniformGrid builds a grid with every zone at the given illuminance.
func uniformGrid(lux float64) *Grid {
	var g Grid
	for row := 0; row < GridRows; row++ {
		for col := 0; col < GridCols; col++ {
			g[row][col] = Reading{Row: row + 1, Col: col + 1, Lux: lux, Valid: true}
		}
	}
	return &g
}

func TestAggregateUniformIllumination(t *testing.T) {
	g := uniformGrid(1000)

	// Under uniform light every mode must agree on the aggregate.
	for _, mode := range []MeteringMode{CenterWeighted, Matrix, Spot, Highlight} {
		lux, count := Aggregate(g, mode)
		if math.Abs(lux-1000) > 1e-9 {
			t.Errorf("%s: aggregate = %v, want 1000", mode, lux)
		}
		if count <= 0 {
			t.Errorf("%s: sample count = %v, want > 0", mode, count)
		}
	}
}

func TestAggregateCenterWeighted(t *testing.T) {
	// Center block at 2000 lux, border at 1000. Weighted mean:
	// (6*2000*2 + 14*1000*1) / (6*2 + 14*1) = 38000/26.
	g := uniformGrid(1000)
	for _, rc := range [][2]int{{1, 1}, {1, 2}, {2, 1}, {2, 2}, {3, 1}, {3, 2}} {
		g[rc[0]][rc[1]].Lux = 2000
	}
	lux, count := Aggregate(g, CenterWeighted)
	want := 38000.0 / 26.0
	if math.Abs(lux-want) > 1e-9 {
		t.Errorf("aggregate = %v, want %v", lux, want)
	}
	if count != 26 {
		t.Errorf("sample count = %v, want 26", count)
	}
}

func TestAggregateMatrix(t *testing.T) {
	g := uniformGrid(0)
	g[0][0].Lux = 2000
	lux, count := Aggregate(g, Matrix)
	if math.Abs(lux-100) > 1e-9 {
		t.Errorf("aggregate = %v, want 100", lux)
	}
	if count != 20 {
		t.Errorf("sample count = %v, want 20", count)
	}
}

func TestAggregateSpotIgnoresOtherZones(t *testing.T) {
	g := uniformGrid(500)
	g[2][1].Lux = 1200
	g[2][2].Lux = 800
	base, count := Aggregate(g, Spot)
	if math.Abs(base-1000) > 1e-9 {
		t.Errorf("aggregate = %v, want 1000", base)
	}
	if count != 2 {
		t.Errorf("sample count = %v, want 2", count)
	}

	// Perturb every non-central zone; the spot aggregate must not move.
	for row := 0; row < GridRows; row++ {
		for col := 0; col < GridCols; col++ {
			if row == 2 && (col == 1 || col == 2) {
				continue
			}
			g[row][col].Lux = float64(row*1000 + col*77)
			got, _ := Aggregate(g, Spot)
			if got != base {
				t.Fatalf("zone (%d,%d) affected spot aggregate: %v != %v",
					row+1, col+1, got, base)
			}
		}
	}
}

func TestAggregateHighlight(t *testing.T) {
	g := uniformGrid(100)
	// Five brightest zones, scattered around the grid.
	bright := []float64{5000, 4000, 3000, 2000, 1000}
	positions := [][2]int{{0, 0}, {1, 3}, {2, 2}, {3, 0}, {4, 3}}
	for i, rc := range positions {
		g[rc[0]][rc[1]].Lux = bright[i]
	}
	lux, count := Aggregate(g, Highlight)
	want := (5000.0 + 4000 + 3000 + 2000 + 1000) / 5
	if math.Abs(lux-want) > 1e-9 {
		t.Errorf("aggregate = %v, want %v", lux, want)
	}
	if count != highlightShare {
		t.Errorf("sample count = %v, want %v", count, highlightShare)
	}
}

func TestAggregateHighlightPermutationInvariant(t *testing.T) {
	values := make([]float64, GridRows*GridCols)
	rng := rand.New(rand.NewSource(42))
	for i := range values {
		values[i] = rng.Float64() * 10000
	}

	fill := func(vals []float64) *Grid {
		var g Grid
		for i, v := range vals {
			g[i/GridCols][i%GridCols] = Reading{Lux: v, Valid: true}
		}
		return &g
	}

	base, _ := Aggregate(fill(values), Highlight)
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]float64, len(values))
		copy(shuffled, values)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		got, _ := Aggregate(fill(shuffled), Highlight)
		if math.Abs(got-base) > 1e-9 {
			t.Fatalf("permutation %d changed highlight aggregate: %v != %v",
				trial, got, base)
		}
	}
}

func TestAggregateAllZero(t *testing.T) {
	g := uniformGrid(0)
	for _, mode := range []MeteringMode{CenterWeighted, Matrix, Spot, Highlight} {
		lux, _ := Aggregate(g, mode)
		if lux != 0 {
			t.Errorf("%s: aggregate of dark grid = %v, want 0", mode, lux)
		}
	}
}
