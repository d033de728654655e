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

// Package slots implements the one MSXDevice every machine has exactly one
// of: the primary slot select register at I/O port 0xA8. Writing it picks,
// two bits per page, which of the four primary slots backs each 16K page of
// the address space; reading it back returns the last value written. The
// expansion-register side of slot switching (address 0xFFFF of an expanded
// slot) is handled directly by bus.MemoryBus, since it lives in memory space
// rather than I/O space.
package slots

import (
	"github.com/openmsx-go/core/hardware/bus"
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/device"
	"github.com/openmsx-go/core/serialize"
)

// Port0xA8 is the well-known I/O address of the primary slot select
// register.
const Port0xA8 uint8 = 0xa8

// Register is the primary slot select device. It owns no memory itself; it
// only forwards to the MemoryBus it was constructed with.
type Register struct {
	device.Unmapped

	mem   *bus.MemoryBus
	value uint8
}

// NewRegister creates the port-0xA8 device backed by mem.
func NewRegister(mem *bus.MemoryBus) *Register {
	return &Register{mem: mem}
}

func (r *Register) Name() string { return "primary slot select" }

func (r *Register) Reset(clocks.EmuTime) {
	r.value = 0
	r.mem.WriteSlotSelect(0)
}

func (r *Register) ReadIO(_ uint8, _ clocks.EmuTime) uint8 { return r.value }
func (r *Register) PeekIO(_ uint8) uint8                   { return r.value }

func (r *Register) WriteIO(_ uint8, data uint8, _ clocks.EmuTime) {
	r.value = data
	r.mem.WriteSlotSelect(data)
}

func (r *Register) CurrentVersion() int { return 1 }

func (r *Register) Serialize(ar serialize.Archive) error {
	if err := ar.BeginType("slots.Register", r.CurrentVersion()); err != nil {
		return err
	}
	if err := ar.Uint8("value", &r.value); err != nil {
		return err
	}
	if !ar.IsOutput() {
		r.mem.WriteSlotSelect(r.value)
	}
	return nil
}

var _ device.MSXDevice = (*Register)(nil)
