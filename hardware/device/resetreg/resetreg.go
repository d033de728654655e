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

// Package resetreg implements the Turbo-R reset-status register found on
// I/O port 0xF4: software writes to it to record why/how the machine last
// reset, and reads it back to decide startup behaviour (cold boot vs.
// soft reset). Some third-party clones wire the bits inverted; the
// Inverted flag mirrors that board variant.
package resetreg

import (
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/device"
	"github.com/openmsx-go/core/serialize"
)

// Port is the I/O port the register answers on.
const Port uint8 = 0xf4

// Register is the F4Device: a single byte, readable and writable over I/O.
// Reset and PowerUp both set it back to its initial value (0x00, or 0xFF when
// inverted); the bus itself never clears it.
type Register struct {
	device.Unmapped

	name     string
	inverted bool
	status   uint8
}

// New creates a Register. inverted mirrors a board whose reset line polarity
// is flipped.
func New(name string, inverted bool) *Register {
	r := &Register{name: name, inverted: inverted}
	r.Reset(clocks.Dummy)
	return r
}

func (r *Register) Name() string { return r.name }

func (r *Register) PowerUp(t clocks.EmuTime) { r.Reset(t) }

func (r *Register) Reset(clocks.EmuTime) {
	if r.inverted {
		r.status = 0xff
	} else {
		r.status = 0x00
	}
}

func (r *Register) ReadIO(port uint8, t clocks.EmuTime) uint8 {
	return r.PeekIO(port)
}

func (r *Register) PeekIO(uint8) uint8 {
	return r.status
}

func (r *Register) WriteIO(port uint8, value uint8, t clocks.EmuTime) {
	if r.inverted {
		r.status = value | 0x7f
	} else {
		r.status = (r.status & 0x20) | (value & 0xa0)
	}
}

func (r *Register) CurrentVersion() int { return 1 }

func (r *Register) Serialize(ar serialize.Archive) error {
	if err := ar.BeginType("ResetStatusRegister", r.CurrentVersion()); err != nil {
		return err
	}
	return ar.Uint8("status", &r.status)
}

var _ device.MSXDevice = (*Register)(nil)
