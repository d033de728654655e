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

package keyboard_test

import (
	"testing"

	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/device/keyboard"
	"github.com/openmsx-go/core/serialize"
	"github.com/openmsx-go/core/test"
)

func TestAllKeysReleasedAfterReset(t *testing.T) {
	m := keyboard.New()
	test.ExpectEquality(t, m.PeekIO(keyboard.PortB), uint8(0xff))
}

func TestKeyDownClearsBitOfSelectedRow(t *testing.T) {
	m := keyboard.New()
	m.WriteIO(keyboard.PortA, 3, clocks.Zero)
	m.SignalStateChange(&keyboard.KeyEdge{Row: 3, Col: 2, Down: true})

	test.ExpectEquality(t, m.PeekIO(keyboard.PortB), uint8(0xfb))
}

func TestKeyUpSetsBitBackAfterDown(t *testing.T) {
	m := keyboard.New()
	m.WriteIO(keyboard.PortA, 0, clocks.Zero)
	m.SignalStateChange(&keyboard.KeyEdge{Row: 0, Col: 0, Down: true})
	m.SignalStateChange(&keyboard.KeyEdge{Row: 0, Col: 0, Down: false})

	test.ExpectEquality(t, m.PeekIO(keyboard.PortB), uint8(0xff))
}

func TestRowSelectReadBackOnPortA(t *testing.T) {
	m := keyboard.New()
	m.WriteIO(keyboard.PortA, 5, clocks.Zero)
	test.ExpectEquality(t, m.PeekIO(keyboard.PortA), uint8(5))
}

func TestSerializeRoundTripPreservesPressedKeys(t *testing.T) {
	m := keyboard.New()
	m.WriteIO(keyboard.PortA, 7, clocks.Zero)
	m.SignalStateChange(&keyboard.KeyEdge{Row: 7, Col: 4, Down: true})

	out := serialize.NewMemOutputArchive()
	test.ExpectSuccess(t, m.Serialize(out))

	restored := keyboard.New()
	in := serialize.NewMemInputArchive(out.Bytes())
	test.ExpectSuccess(t, restored.Serialize(in))
	restored.WriteIO(keyboard.PortA, 7, clocks.Zero)

	test.ExpectEquality(t, restored.PeekIO(keyboard.PortB), m.PeekIO(keyboard.PortB))
}
