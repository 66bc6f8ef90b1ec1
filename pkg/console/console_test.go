// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"lightmeter-go/pkg/engine"
	"lightmeter-go/pkg/meter"
	"lightmeter-go/pkg/zone"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"", Command{Kind: CmdNone}},
		{"   ", Command{Kind: CmdNone}},
		{"config iso 400", Command{Kind: CmdISO, ISO: 400, Raw: "config iso 400"}},
		{"  config iso 400  ", Command{Kind: CmdISO, ISO: 400, Raw: "config iso 400"}},
		{"config iso junk", Command{Kind: CmdISO, ISO: 0, Raw: "config iso junk"}},
		{"config type spot", Command{Kind: CmdMode, Mode: meter.Spot, Raw: "config type spot"}},
		{"config type evaluative", Command{Kind: CmdMode, Mode: meter.Matrix, Raw: "config type evaluative"}},
		{"config type bogus", Command{Kind: CmdMode, Mode: meter.CenterWeighted, Raw: "config type bogus"}},
		{"config calibration 64.5", Command{Kind: CmdCalibration, Calibration: 64.5, Raw: "config calibration 64.5"}},
		{"start measure", Command{Kind: CmdMeasure, Raw: "start measure"}},
		{"status", Command{Kind: CmdStatus, Raw: "status"}},
		{"help", Command{Kind: CmdHelp, Raw: "help"}},
		{"reset", Command{Kind: CmdReset, Raw: "reset"}},
		{"frobnicate", Command{Kind: CmdUnknown, Raw: "frobnicate"}},
		{"start measurement", Command{Kind: CmdUnknown, Raw: "start measurement"}},
	}
	for _, tc := range tests {
		if got := Parse(tc.line); got != tc.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tc.line, got, tc.want)
		}
	}
}

func newTestConsole(t *testing.T) (*Console, *engine.Engine, *bytes.Buffer) {
	t.Helper()
	eng, err := engine.New(engine.Config{Sampler: zone.NewUniformSampler(1000)})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	out := &bytes.Buffer{}
	return New(eng, strings.NewReader(""), out, nil), eng, out
}

func TestDispatchISO(t *testing.T) {
	c, eng, out := newTestConsole(t)
	c.Dispatch(context.Background(), "config iso 800")
	if got := out.String(); got != "ISO configured to: 800\n" {
		t.Errorf("output = %q", got)
	}
	if eng.ISO() != 800 {
		t.Errorf("ISO = %d, want 800", eng.ISO())
	}

	out.Reset()
	c.Dispatch(context.Background(), "config iso -5")
	if got := out.String(); got != "Error: Invalid ISO value\n" {
		t.Errorf("output = %q", got)
	}
	if eng.ISO() != 800 {
		t.Errorf("ISO changed to %d by rejected command", eng.ISO())
	}
}

func TestDispatchMode(t *testing.T) {
	c, eng, out := newTestConsole(t)
	c.Dispatch(context.Background(), "config type highlights")
	if got := out.String(); got != "Metering type configured to: highlight\n" {
		t.Errorf("output = %q", got)
	}
	if eng.Mode() != meter.Highlight {
		t.Errorf("mode = %v, want highlight", eng.Mode())
	}

	// Unrecognized names silently fall back to center-weighted.
	out.Reset()
	c.Dispatch(context.Background(), "config type nonsense")
	if got := out.String(); got != "Metering type configured to: center-weighted\n" {
		t.Errorf("output = %q", got)
	}
	if eng.Mode() != meter.CenterWeighted {
		t.Errorf("mode = %v, want center-weighted", eng.Mode())
	}
}

func TestDispatchCalibration(t *testing.T) {
	c, eng, out := newTestConsole(t)
	c.Dispatch(context.Background(), "config calibration 64")
	if got := out.String(); got != "Shutter speed calibration set to: 64.00\n" {
		t.Errorf("output = %q", got)
	}
	if eng.Calibration() != 64.0 {
		t.Errorf("calibration = %v, want 64", eng.Calibration())
	}

	out.Reset()
	c.Dispatch(context.Background(), "config calibration -1")
	if got := out.String(); got != "Error: Invalid calibration value (must be positive)\n" {
		t.Errorf("output = %q", got)
	}
	if eng.Calibration() != 64.0 {
		t.Errorf("calibration changed to %v by rejected command", eng.Calibration())
	}
}

func TestDispatchMeasure(t *testing.T) {
	c, eng, out := newTestConsole(t)
	c.Dispatch(context.Background(), "start measure")
	got := out.String()
	for _, want := range []string{
		"Measurement started\n",
		"================= DETAILED MEASUREMENTS =================",
		"Exposure recommendation: ISO 100, ",
		"Metering mode: center-weighted\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("measure output missing %q\ngot:\n%s", want, got)
		}
	}
	if eng.LastMeasurement() == nil {
		t.Error("no measurement recorded")
	}
}

func TestDispatchStatus(t *testing.T) {
	c, _, out := newTestConsole(t)
	c.Dispatch(context.Background(), "status")
	got := out.String()
	want := "ISO: 100\nMetering mode: center-weighted\nCalibration: 128.00\n"
	if got != want {
		t.Errorf("status output = %q, want %q", got, want)
	}

	out.Reset()
	c.Dispatch(context.Background(), "start measure")
	out.Reset()
	c.Dispatch(context.Background(), "status")
	if !strings.Contains(out.String(), "Last measurement: ") {
		t.Errorf("status after measure missing last measurement line: %q", out.String())
	}
}

func TestDispatchUnknown(t *testing.T) {
	c, _, out := newTestConsole(t)
	c.Dispatch(context.Background(), "launch missiles")
	want := "Unknown command: 'launch missiles'. Type 'help' for available commands.\n"
	if got := out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestDispatchReset(t *testing.T) {
	c, _, out := newTestConsole(t)
	called := false
	c.resetFn = func() { called = true }
	c.Dispatch(context.Background(), "reset")
	if got := out.String(); got != "Resetting device...\n" {
		t.Errorf("output = %q", got)
	}
	if !called {
		t.Error("reset function not invoked")
	}
}

func TestRunSession(t *testing.T) {
	eng, err := engine.New(engine.Config{Sampler: zone.NewUniformSampler(1000)})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	in := strings.NewReader("config iso 200\nhelp\n")
	out := &bytes.Buffer{}
	c := New(eng, in, out, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "\n=== 4x5 Camera Light Meter ===\n") {
		t.Errorf("missing banner: %q", got)
	}
	if !strings.Contains(got, "ISO configured to: 200\n") {
		t.Errorf("missing ISO response: %q", got)
	}
	if !strings.Contains(got, "Available commands:\n") {
		t.Errorf("missing help output: %q", got)
	}
	if strings.Count(got, "> ") != 3 {
		t.Errorf("expected 3 prompts, got %d in %q", strings.Count(got, "> "), got)
	}
	if eng.ISO() != 200 {
		t.Errorf("ISO = %d, want 200", eng.ISO())
	}
}
