// Interactive console for the light meter daemon
//
// Reproduces the serial console of the original meter hardware on any
// reader/writer pair: a "> " prompt, a small fixed command set and the
// detailed measurement table after every pass.
//
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package console

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"lightmeter-go/pkg/engine"
	"lightmeter-go/pkg/log"
)

const banner = "\n=== 4x5 Camera Light Meter ===\nType 'help' for available commands\n"

const helpText = `
Available commands:
  config iso <value>         - Set ISO value (e.g., 100, 400, 800)
  config type <mode>         - Set metering type (center, matrix, spot, highlight)
  config calibration <value> - Set shutter speed calibration factor (default: 128.0)
  start measure              - Start light measurement
  status                     - Show current settings
  help                       - Show this help
  reset                      - Reset the device

`

// Console reads commands line by line and drives the engine.
type Console struct {
	engine  *engine.Engine
	in      io.Reader
	out     io.Writer
	logger  *log.Logger
	resetFn func()
}

// New creates a console over the given streams. resetFn is invoked by
// the reset command; nil means reset only prints its message.
func New(eng *engine.Engine, in io.Reader, out io.Writer, resetFn func()) *Console {
	return &Console{
		engine:  eng,
		in:      in,
		out:     out,
		logger:  log.GetLogger("console"),
		resetFn: resetFn,
	}
}

// Run prints the banner and processes commands until the input closes
// or the context is cancelled. The scanner cannot be interrupted
// mid-read, so cancellation takes effect at the next line.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprint(c.out, banner)
	fmt.Fprint(c.out, "> ")

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Dispatch(ctx, scanner.Text())
		fmt.Fprint(c.out, "> ")
	}
	return scanner.Err()
}

// Dispatch executes a single console line, writing any response to the
// console's output stream.
func (c *Console) Dispatch(ctx context.Context, line string) {
	cmd := Parse(line)
	switch cmd.Kind {
	case CmdNone:

	case CmdISO:
		if cmd.ISO > 0 && c.engine.SetISO(cmd.ISO) {
			fmt.Fprintf(c.out, "ISO configured to: %d\n", cmd.ISO)
		} else {
			fmt.Fprint(c.out, "Error: Invalid ISO value\n")
		}

	case CmdMode:
		c.engine.SetMode(cmd.Mode)
		fmt.Fprintf(c.out, "Metering type configured to: %s\n", cmd.Mode)

	case CmdCalibration:
		if cmd.Calibration > 0 && c.engine.SetCalibration(cmd.Calibration) {
			fmt.Fprintf(c.out, "Shutter speed calibration set to: %.2f\n", cmd.Calibration)
		} else {
			fmt.Fprint(c.out, "Error: Invalid calibration value (must be positive)\n")
		}

	case CmdMeasure:
		fmt.Fprint(c.out, "Measurement started\n")
		m, err := c.engine.RunMeasurement(ctx)
		if err != nil {
			c.logger.Error("measurement failed: %v", err)
			fmt.Fprintf(c.out, "Error: Measurement failed: %v\n", err)
			return
		}
		fmt.Fprint(c.out, engine.RenderTable(m))
		fmt.Fprint(c.out, engine.RenderSummary(m))

	case CmdStatus:
		fmt.Fprintf(c.out, "ISO: %d\n", c.engine.ISO())
		fmt.Fprintf(c.out, "Metering mode: %s\n", c.engine.Mode())
		fmt.Fprintf(c.out, "Calibration: %.2f\n", c.engine.Calibration())
		if m := c.engine.LastMeasurement(); m != nil {
			fmt.Fprintf(c.out, "Last measurement: %s (EV: %.1f)\n",
				m.Time.Format("2006-01-02 15:04:05"), m.EV)
		}

	case CmdHelp:
		fmt.Fprint(c.out, helpText)

	case CmdReset:
		fmt.Fprint(c.out, "Resetting device...\n")
		if c.resetFn != nil {
			c.resetFn()
		}

	default:
		fmt.Fprintf(c.out, "Unknown command: '%s'. Type 'help' for available commands.\n", cmd.Raw)
	}
}
