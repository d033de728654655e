// This file is part of openMSX-core.
//
// openMSX-core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// openMSX-core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with openMSX-core.  If not, see <https://www.gnu.org/licenses/>.

// Package keyboard implements the PPI-driven key matrix: 11 rows of 8 keys,
// scanned by the CPU through the 8255's port C at 0xAA (selects the row) and
// port B (reads that row's key byte), the way MSXPPI/Keyboard wire it in the
// original machine. Key edges arrive as StateChanges so they record/replay
// exactly like every other externally-driven input.
package keyboard

import (
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/device"
	"github.com/openmsx-go/core/hardware/statechange"
	"github.com/openmsx-go/core/serialize"
)

// NumRows is the number of 8-key rows in the matrix.
const NumRows = 11

// PortA is the I/O port of the 8255's port C, whose low nibble selects which
// row PortB answers for.
const PortA uint8 = 0xaa

// PortB is the PPI port the CPU reads the selected row's key byte from.
const PortB uint8 = 0xa9

// KeyEdge is the StateChange recorded/replayed for a single key transition.
type KeyEdge struct {
	Row, Col uint8
	Down     bool
}

func (KeyEdge) CurrentVersion() int { return 1 }

func (k *KeyEdge) Serialize(ar serialize.Archive) error {
	if err := ar.BeginType("KeyEdge", k.CurrentVersion()); err != nil {
		return err
	}
	if err := ar.Uint8("row", &k.Row); err != nil {
		return err
	}
	if err := ar.Uint8("col", &k.Col); err != nil {
		return err
	}
	return ar.Bool("down", &k.Down)
}

// Matrix is the key matrix device. A bit of 0 means the key at that
// row/column is pressed, 1 means released - matching the open-collector
// wiring of the real matrix, where an idle line reads high.
type Matrix struct {
	device.Unmapped

	rows        [NumRows]uint8
	selectedRow uint8
}

// New creates a Matrix with every key released.
func New() *Matrix {
	m := &Matrix{}
	m.Reset(clocks.Dummy)
	return m
}

func (m *Matrix) Name() string { return "keyboard" }

func (m *Matrix) PowerUp(t clocks.EmuTime) { m.Reset(t) }

func (m *Matrix) Reset(clocks.EmuTime) {
	for i := range m.rows {
		m.rows[i] = 0xff
	}
	m.selectedRow = 0
}

func (m *Matrix) ReadIO(port uint8, t clocks.EmuTime) uint8 {
	return m.PeekIO(port)
}

func (m *Matrix) PeekIO(port uint8) uint8 {
	switch port {
	case PortB:
		return m.rows[m.selectedRow]
	case PortA:
		return m.selectedRow & 0x0f
	default:
		return device.UnmappedValue
	}
}

func (m *Matrix) WriteIO(port uint8, value uint8, t clocks.EmuTime) {
	if port == PortA {
		m.selectedRow = value & 0x0f
		if int(m.selectedRow) >= NumRows {
			m.selectedRow = NumRows - 1
		}
	}
}

// SignalStateChange applies a KeyEdge, live or replayed, identically.
func (m *Matrix) SignalStateChange(change statechange.StateChange) {
	edge, ok := change.(*KeyEdge)
	if !ok {
		return
	}
	if int(edge.Row) >= NumRows || edge.Col > 7 {
		return
	}
	mask := uint8(1) << edge.Col
	if edge.Down {
		m.rows[edge.Row] &^= mask
	} else {
		m.rows[edge.Row] |= mask
	}
}

// StopReplay is a no-op: a key held across a replay boundary simply stays
// however the last edge left it.
func (m *Matrix) StopReplay(clocks.EmuTime) {}

func (m *Matrix) CurrentVersion() int { return 1 }

func (m *Matrix) Serialize(ar serialize.Archive) error {
	if err := ar.BeginType("KeyboardMatrix", m.CurrentVersion()); err != nil {
		return err
	}
	for i := range m.rows {
		if err := ar.Uint8("row", &m.rows[i]); err != nil {
			return err
		}
	}
	return ar.Uint8("selectedRow", &m.selectedRow)
}

var (
	_ device.MSXDevice        = (*Matrix)(nil)
	_ statechange.Listener    = (*Matrix)(nil)
	_ statechange.StateChange = (*KeyEdge)(nil)
)
