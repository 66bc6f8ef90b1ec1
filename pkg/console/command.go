// Command parsing for the light meter console
//
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package console

import (
	"strconv"
	"strings"

	"lightmeter-go/pkg/meter"
)

// CommandKind identifies a parsed console command.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdNone                // blank line
	CmdISO
	CmdMode
	CmdCalibration
	CmdMeasure
	CmdStatus
	CmdHelp
	CmdReset
)

// Command is one parsed console line. Numeric arguments that fail to
// parse come through as zero; validation happens at dispatch so the
// error messages stay in one place.
type Command struct {
	Kind        CommandKind
	ISO         int
	Mode        meter.MeteringMode
	Calibration float64
	Raw         string
}

// Parse classifies a raw console line. Leading and trailing whitespace
// is ignored; command words are matched case-sensitively.
func Parse(line string) Command {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{Kind: CmdNone}
	}

	switch {
	case strings.HasPrefix(line, "config iso "):
		iso, _ := strconv.Atoi(strings.TrimSpace(line[len("config iso "):]))
		return Command{Kind: CmdISO, ISO: iso, Raw: line}
	case strings.HasPrefix(line, "config type "):
		name := strings.TrimSpace(line[len("config type "):])
		return Command{Kind: CmdMode, Mode: meter.ModeFromName(name), Raw: line}
	case strings.HasPrefix(line, "config calibration "):
		v, _ := strconv.ParseFloat(strings.TrimSpace(line[len("config calibration "):]), 64)
		return Command{Kind: CmdCalibration, Calibration: v, Raw: line}
	case line == "start measure":
		return Command{Kind: CmdMeasure, Raw: line}
	case line == "status":
		return Command{Kind: CmdStatus, Raw: line}
	case line == "help":
		return Command{Kind: CmdHelp, Raw: line}
	case line == "reset":
		return Command{Kind: CmdReset, Raw: line}
	}
	return Command{Kind: CmdUnknown, Raw: line}
}
