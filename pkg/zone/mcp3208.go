// MCP3208 SPI ADC driver
// Copyright (C) 2026  Lightmeter Go Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package zone

import (
	"fmt"

	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
)

// MCP3208 reads the 12-bit 8-channel SPI converter wired to the five row
// outputs of the sensor head.
type MCP3208 struct {
	port spi.PortCloser
	conn spi.Conn
}

// NewMCP3208 opens the named SPI port (e.g. "/dev/spidev0.0" or "SPI0.0").
// An empty name selects the first available port.
func NewMCP3208(portName string) (*MCP3208, error) {
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("mcp3208: open %q: %w", portName, err)
	}
	// Datasheet maximum is 2MHz at 5V; stay at 1MHz for 3.3V operation.
	conn, err := port.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("mcp3208: connect: %w", err)
	}
	return &MCP3208{port: port, conn: conn}, nil
}

// Read performs a single-ended conversion on the given channel (0..7).
func (a *MCP3208) Read(channel int) (int, error) {
	if channel < 0 || channel > 7 {
		return 0, fmt.Errorf("mcp3208: invalid channel %d", channel)
	}
	// Start bit, single-ended mode, 3-bit channel, then clock out 12 bits.
	tx := []byte{0x06 | byte(channel)>>2, byte(channel) << 6, 0x00}
	rx := make([]byte, len(tx))
	if err := a.conn.Tx(tx, rx); err != nil {
		return 0, fmt.Errorf("mcp3208: tx: %w", err)
	}
	return int(rx[1]&0x0F)<<8 | int(rx[2]), nil
}

// Close releases the SPI port.
func (a *MCP3208) Close() error {
	return a.port.Close()
}
