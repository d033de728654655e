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

// Package device defines the uniform contract every MSX peripheral - RAM,
// ROM mapper, PSG, PPI/keyboard, reset-status register, cassette interface -
// implements, so the bus and the motherboard can treat them identically.
package device

import (
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/serialize"
)

// Config describes where a device lives in the slot/page address space, and
// carries whatever free-form properties its constructor needs. A device that
// only responds to I/O ports (no memory mapping) leaves Primary negative.
type Config struct {
	Name       string
	Primary    int // primary slot 0-3, or -1 if not memory-mapped
	Secondary  int // secondary slot 0-3, or -1 if the primary slot isn't expanded
	Pages      []int
	Ports      []uint8 // I/O ports this device answers on, both for reads and writes
	Properties map[string]string
}

// MSXDevice is implemented by every peripheral the motherboard owns. A
// device that does not occupy memory still implements ReadMem/WriteMem/
// PeekMem returning the bus's "unmapped" value (0xFF) - embedding Unmapped
// gets this for free.
type MSXDevice interface {
	Name() string

	PowerUp(t clocks.EmuTime)
	Reset(t clocks.EmuTime)
	PowerDown(t clocks.EmuTime)

	ReadMem(addr uint16, t clocks.EmuTime) uint8
	WriteMem(addr uint16, data uint8, t clocks.EmuTime)
	PeekMem(addr uint16) uint8

	ReadIO(port uint8, t clocks.EmuTime) uint8
	WriteIO(port uint8, data uint8, t clocks.EmuTime)
	PeekIO(port uint8) uint8

	// GetReadCacheLine/GetWriteCacheLine return the 256-byte-aligned backing
	// slice for the cache line containing addr, or nil if the device cannot
	// be read/written without going through ReadMem/WriteMem (bank-switch
	// registers, I/O-mapped state, ...).
	GetReadCacheLine(addr uint16) []byte
	GetWriteCacheLine(addr uint16) []byte

	serialize.Serializable
}

// UnmappedValue is returned by reads to addresses/ports with no device
// behind them.
const UnmappedValue uint8 = 0xff

// Unmapped is embedded by devices that only care about a subset of the
// MSXDevice contract (e.g. a pure I/O device has no memory mapping), saving
// them from writing out every method by hand.
type Unmapped struct{}

func (Unmapped) PowerUp(clocks.EmuTime)   {}
func (Unmapped) Reset(clocks.EmuTime)     {}
func (Unmapped) PowerDown(clocks.EmuTime) {}

func (Unmapped) ReadMem(uint16, clocks.EmuTime) uint8 { return UnmappedValue }
func (Unmapped) WriteMem(uint16, uint8, clocks.EmuTime) {}
func (Unmapped) PeekMem(uint16) uint8 { return UnmappedValue }

func (Unmapped) ReadIO(uint8, clocks.EmuTime) uint8 { return UnmappedValue }
func (Unmapped) WriteIO(uint8, uint8, clocks.EmuTime) {}
func (Unmapped) PeekIO(uint8) uint8 { return UnmappedValue }

func (Unmapped) GetReadCacheLine(uint16) []byte  { return nil }
func (Unmapped) GetWriteCacheLine(uint16) []byte { return nil }

func (Unmapped) Serialize(serialize.Archive) error { return nil }
