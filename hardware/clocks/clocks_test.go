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

package clocks_test

import (
	"testing"

	"github.com/openmsx-go/core/hardware/clocks"
)

func TestEmuTimeOrdering(t *testing.T) {
	a := clocks.Zero.Add(clocks.NewEmuDurationTicks(10))
	b := clocks.Zero.Add(clocks.NewEmuDurationTicks(20))

	if !a.Before(b) {
		t.Errorf("expected %s before %s", a, b)
	}
	if !b.After(a) {
		t.Errorf("expected %s after %s", b, a)
	}
	if !clocks.Infinity.After(b) {
		t.Errorf("expected infinity to be after any finite time")
	}
}

func TestSaturateSubtractAtZero(t *testing.T) {
	for _, d := range []clocks.EmuDuration{
		clocks.NewEmuDurationTicks(0),
		clocks.NewEmuDurationTicks(1),
		clocks.NewEmuDurationSec(100),
	} {
		got := clocks.Zero.SaturateSubtract(d)
		if !got.Equal(clocks.Zero) {
			t.Errorf("Zero.SaturateSubtract(%s) = %s, want Zero", d, got)
		}
	}
}

func TestSaturateSubtractNormal(t *testing.T) {
	base := clocks.Zero.Add(clocks.NewEmuDurationTicks(100))
	got := base.SaturateSubtract(clocks.NewEmuDurationTicks(30))
	want := clocks.Zero.Add(clocks.NewEmuDurationTicks(70))
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestClockAdvanceIdempotent(t *testing.T) {
	var c clocks.Clock[clocks.HzAudio44100]
	t1 := clocks.Zero.Add(clocks.NewEmuDurationSec(1))

	c.Advance(t1)
	first := c.Time()
	c.Advance(t1)
	second := c.Time()

	if !first.Equal(second) {
		t.Errorf("two advances to the same time should be idempotent: %s != %s", first, second)
	}
}

func TestClockNeverMovesBackwards(t *testing.T) {
	var c clocks.Clock[clocks.HzAudio44100]
	c.Advance(clocks.Zero.Add(clocks.NewEmuDurationSec(2)))
	before := c.Time()

	c.Advance(clocks.Zero.Add(clocks.NewEmuDurationSec(1)))
	after := c.Time()

	if after.Before(before) {
		t.Errorf("clock state moved backwards: %s -> %s", before, after)
	}
}

func TestClockGetTicksTillNeverRoundsUp(t *testing.T) {
	var c clocks.Clock[clocks.HzSeconds]
	c.Advance(clocks.Zero)

	// just short of a full second - must yield zero ticks
	almostOneSecond := clocks.Zero.Add(clocks.NewEmuDurationTicks(clocks.MasterClockHz - 1))
	if got := c.GetTicksTill(almostOneSecond); got != 0 {
		t.Errorf("GetTicksTill rounded up: got %d ticks, want 0", got)
	}

	oneSecond := clocks.Zero.Add(clocks.NewEmuDurationSec(1))
	if got := c.GetTicksTill(oneSecond); got != 1 {
		t.Errorf("GetTicksTill(1s) = %d, want 1", got)
	}
}

func TestClockRoundTripAtExactGrid(t *testing.T) {
	var c clocks.Clock[clocks.HzAudio44100]
	// ten seconds' worth of audio samples, landing exactly on a grid point
	ten := clocks.Zero.Add(clocks.NewEmuDurationSec(10))
	c.Advance(ten)

	if got := c.GetTicksTill(ten); got != 0 {
		t.Errorf("re-advancing to the same instant should report zero further ticks, got %d", got)
	}
}
