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

package resetreg_test

import (
	"testing"

	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/device/resetreg"
	"github.com/openmsx-go/core/serialize"
	"github.com/openmsx-go/core/test"
)

func TestNonInvertedPowersUpToZero(t *testing.T) {
	r := resetreg.New("reset", false)
	test.ExpectEquality(t, r.PeekIO(resetreg.Port), uint8(0x00))
}

func TestInvertedPowersUpToFF(t *testing.T) {
	r := resetreg.New("reset", true)
	test.ExpectEquality(t, r.PeekIO(resetreg.Port), uint8(0xff))
}

func TestNonInvertedWriteMasksToStatusBits(t *testing.T) {
	r := resetreg.New("reset", false)
	r.WriteIO(resetreg.Port, 0xff, clocks.Zero)
	test.ExpectEquality(t, r.PeekIO(resetreg.Port), uint8(0xa0))
}

func TestInvertedWriteForcesLowBitsHigh(t *testing.T) {
	r := resetreg.New("reset", true)
	r.WriteIO(resetreg.Port, 0x80, clocks.Zero)
	test.ExpectEquality(t, r.PeekIO(resetreg.Port), uint8(0xff))
}

func TestSerializeRoundTrip(t *testing.T) {
	r := resetreg.New("reset", false)
	r.WriteIO(resetreg.Port, 0x20, clocks.Zero)

	out := serialize.NewMemOutputArchive()
	test.ExpectSuccess(t, r.Serialize(out))

	restored := resetreg.New("reset", false)
	in := serialize.NewMemInputArchive(out.Bytes())
	test.ExpectSuccess(t, restored.Serialize(in))

	test.ExpectEquality(t, restored.PeekIO(resetreg.Port), r.PeekIO(resetreg.Port))
}
