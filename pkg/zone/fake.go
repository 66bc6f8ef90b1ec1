// Fake sampler for tests and development runs
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package zone

import (
	"context"
	"sync"
)

// FakeSampler returns canned ADC codes without touching hardware. It is
// used by tests and by daemon runs without the sensor head attached.
type FakeSampler struct {
	mu    sync.Mutex
	codes [Rows][Cols]int
	err   error
	calls int
}

// NewFakeSampler creates a fake returning the given per-zone codes.
// codes[0][0] is zone row 1, column 1.
func NewFakeSampler(codes [Rows][Cols]int) *FakeSampler {
	return &FakeSampler{codes: codes}
}

// NewUniformSampler creates a fake returning the same code for all zones.
func NewUniformSampler(code int) *FakeSampler {
	f := &FakeSampler{}
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			f.codes[row][col] = code
		}
	}
	return f
}

// SetCode changes the code returned for one zone (1-based coordinates).
func (f *FakeSampler) SetCode(row, col, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[row-1][col-1] = code
}

// SetError makes every subsequent Sample call fail with err.
func (f *FakeSampler) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls reports how many samples have been taken.
func (f *FakeSampler) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Sample implements Sampler.
func (f *FakeSampler) Sample(ctx context.Context, row, col int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.calls++
	return f.codes[row-1][col-1], nil
}

// Close implements Sampler.
func (f *FakeSampler) Close() error { return nil }
