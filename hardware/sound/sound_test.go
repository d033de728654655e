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

package sound_test

import (
	"math"
	"testing"

	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/sound"
	"github.com/openmsx-go/core/test"
)

// constantDevice emits the same sample forever, enough to prove summing and
// clipping without needing a real PSG.
type constantDevice struct {
	level int32
}

func (c *constantDevice) Name() string { return "constant" }

func (c *constantDevice) GenerateSamples(buf []int16, _ clocks.EmuTime) {
	for i := range buf {
		buf[i] = int16(c.level)
	}
}

func TestPullReturnsNilBeforeFirstSampleBoundary(t *testing.T) {
	m := sound.NewMixer(clocks.Zero)
	almost := clocks.Zero.Add(clocks.NewEmuDurationTicks(clocks.MasterClockHz / 44101))
	if got := m.Pull(almost); got != nil {
		t.Errorf("expected nil before the first sample boundary, got %d samples", len(got))
	}
}

func TestPullSumsDevices(t *testing.T) {
	m := sound.NewMixer(clocks.Zero)
	m.AddDevice(&constantDevice{level: 1000})
	m.AddDevice(&constantDevice{level: 2000})

	oneSample := clocks.Zero.Add(clocks.NewEmuDurationTicks(clocks.MasterClockHz/44100 + 1))
	got := m.Pull(oneSample)
	test.ExpectEquality(t, len(got), 1)
	test.ExpectEquality(t, got[0], int16(3000))
}

func TestPullClipsToInt16Range(t *testing.T) {
	m := sound.NewMixer(clocks.Zero)
	m.AddDevice(&constantDevice{level: math.MaxInt16})
	m.AddDevice(&constantDevice{level: math.MaxInt16})

	oneSample := clocks.Zero.Add(clocks.NewEmuDurationTicks(clocks.MasterClockHz/44100 + 1))
	got := m.Pull(oneSample)
	test.ExpectEquality(t, got[0], int16(math.MaxInt16))
}

func TestPullAdvancesClockMonotonically(t *testing.T) {
	m := sound.NewMixer(clocks.Zero)
	m.AddDevice(&constantDevice{})

	t1 := clocks.Zero.Add(clocks.NewEmuDurationSec(1))
	first := m.Pull(t1)
	second := m.Pull(t1)
	if second != nil {
		t.Errorf("re-pulling the same instant should yield no further samples, got %d", len(second))
	}
	if len(first) == 0 {
		t.Errorf("expected at least one second's worth of samples")
	}
}
