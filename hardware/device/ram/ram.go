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

// Package ram implements the simplest possible memory-mapped MSXDevice: a
// flat byte buffer spanning one or more 16K pages, read-write for RAM and
// read-only for a ROM image loaded at construction time. Bank switching,
// mirroring and mapper-specific quirks are out of scope (spec.md §1
// "uncommon mappers"); this is the illustrative single-bank case
// MSXRom16KB.cc covers for ROM, generalized to also serve as plain RAM.
package ram

import (
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/device"
	"github.com/openmsx-go/core/serialize"
)

const pageSize = 0x4000

// Bank is a flat, page-aligned memory block. ReadOnly makes WriteMem a
// no-op, the way a ROM image behaves.
type Bank struct {
	device.Unmapped

	name     string
	mem      []byte
	readOnly bool
}

// NewRAM creates a writable Bank of pages*16K zero-filled bytes.
func NewRAM(name string, pages int) *Bank {
	return &Bank{name: name, mem: make([]byte, pages*pageSize)}
}

// NewROM creates a read-only Bank pre-loaded with image, padded with zero
// bytes up to the next full page.
func NewROM(name string, image []byte) *Bank {
	pages := (len(image) + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}
	mem := make([]byte, pages*pageSize)
	copy(mem, image)
	return &Bank{name: name, mem: mem, readOnly: true}
}

func (b *Bank) Name() string { return b.name }

func (b *Bank) index(addr uint16) int { return int(addr) % len(b.mem) }

func (b *Bank) ReadMem(addr uint16, _ clocks.EmuTime) uint8 { return b.mem[b.index(addr)] }
func (b *Bank) PeekMem(addr uint16) uint8                   { return b.mem[b.index(addr)] }

func (b *Bank) WriteMem(addr uint16, data uint8, _ clocks.EmuTime) {
	if b.readOnly {
		return
	}
	b.mem[b.index(addr)] = data
}

func (b *Bank) GetReadCacheLine(addr uint16) []byte {
	start := b.index(addr) &^ 0xff
	return b.mem[start : start+0x100]
}

func (b *Bank) GetWriteCacheLine(addr uint16) []byte {
	if b.readOnly {
		return nil
	}
	return b.GetReadCacheLine(addr)
}

func (b *Bank) CurrentVersion() int { return 1 }

func (b *Bank) Serialize(ar serialize.Archive) error {
	if err := ar.BeginType("RamBank", b.CurrentVersion()); err != nil {
		return err
	}
	if b.readOnly {
		// a ROM image's contents come from its cartridge, not a snapshot
		return nil
	}
	return ar.Bytes("mem", &b.mem)
}

var _ device.MSXDevice = (*Bank)(nil)
