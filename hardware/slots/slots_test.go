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

package slots_test

import (
	"testing"

	"github.com/openmsx-go/core/hardware/bus"
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/slots"
	"github.com/openmsx-go/core/serialize"
	"github.com/openmsx-go/core/test"
)

func TestWriteIOUpdatesMemoryBus(t *testing.T) {
	mem := bus.NewMemoryBus()
	reg := slots.NewRegister(mem)

	reg.WriteIO(slots.Port0xA8, 0b01010101, clocks.Zero)
	test.ExpectEquality(t, reg.ReadIO(slots.Port0xA8, clocks.Zero), uint8(0b01010101))
}

func TestSerializeRestoresMemoryBusSelection(t *testing.T) {
	mem := bus.NewMemoryBus()
	reg := slots.NewRegister(mem)
	reg.WriteIO(slots.Port0xA8, 0b11, clocks.Zero)

	out := serialize.NewMemOutputArchive()
	test.ExpectSuccess(t, reg.Serialize(out))

	mem2 := bus.NewMemoryBus()
	reg2 := slots.NewRegister(mem2)
	in := serialize.NewMemInputArchive(out.Bytes())
	test.ExpectSuccess(t, reg2.Serialize(in))

	test.ExpectEquality(t, reg2.ReadIO(slots.Port0xA8, clocks.Zero), uint8(0b11))
}
