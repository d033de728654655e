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

package cassette_test

import (
	"testing"

	"github.com/openmsx-go/core/cassette"
	"github.com/openmsx-go/core/cassette/tsx"
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/scheduler"
	"github.com/openmsx-go/core/test"
)

func tapeOfLength(n int) *tsx.Tape {
	samples := make([]int8, n)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 100
		} else {
			samples[i] = -100
		}
	}
	return &tsx.Tape{Samples: samples}
}

func TestPlayWithoutTapeFails(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	p := cassette.New(sched)
	if err := p.Play(clocks.Zero); err == nil {
		t.Fatalf("expected an error playing with no tape inserted")
	}
}

func TestMotorGatesPlayback(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	p := cassette.New(sched)
	tape := tapeOfLength(int(clocks.HzCassette{}.Hz())) // one second of tape

	p.Insert(tape, clocks.Zero)
	test.ExpectSuccess(t, p.Play(clocks.Zero))

	half := clocks.NewEmuDurationSec(0.5)
	t1 := clocks.Zero.Add(half)

	// deck is in PLAY but the software motor relay hasn't engaged yet
	test.ExpectEquality(t, p.Position(t1), 0)

	sched.Schedule(t1)
	p.SignalStateChange(&cassette.MotorToggle{On: true})
	t2 := t1.Add(half)
	sched.Schedule(t2)

	if got := p.Position(t2); got == 0 {
		t.Fatalf("expected the playhead to have advanced once the motor engaged")
	}
}

func TestEndOfTapeStopsTheDeck(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	p := cassette.New(sched)
	tape := tapeOfLength(1000)

	p.Insert(tape, clocks.Zero)
	test.ExpectSuccess(t, p.Play(clocks.Zero))
	p.SignalStateChange(&cassette.MotorToggle{On: true})

	end := clocks.Zero.Add(clocks.NewEmuDurationSec(10))
	sched.Schedule(end)

	test.ExpectEquality(t, p.Position(end), 1000)
}

func TestStopFreezesThePlayhead(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	p := cassette.New(sched)
	tape := tapeOfLength(int(clocks.HzCassette{}.Hz()))

	p.Insert(tape, clocks.Zero)
	test.ExpectSuccess(t, p.Play(clocks.Zero))
	p.SignalStateChange(&cassette.MotorToggle{On: true})

	half := clocks.Zero.Add(clocks.NewEmuDurationSec(0.5))
	p.Stop(half)
	stopped := p.Position(half)

	later := half.Add(clocks.NewEmuDurationSec(0.5))
	test.ExpectEquality(t, p.Position(later), stopped)
}

func TestGenerateSamplesSilentWhenNotRolling(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	p := cassette.New(sched)
	tape := tapeOfLength(int(clocks.HzCassette{}.Hz()))
	p.Insert(tape, clocks.Zero)

	buf := make([]int16, 8)
	for i := range buf {
		buf[i] = 123
	}
	p.GenerateSamples(buf, clocks.Zero.Add(clocks.NewEmuDurationSec(0.1)))
	for _, s := range buf {
		test.ExpectEquality(t, s, int16(0))
	}
}

func TestGenerateSamplesProducesAudioWhileRolling(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	p := cassette.New(sched)
	tape := tapeOfLength(int(clocks.HzCassette{}.Hz()))

	p.Insert(tape, clocks.Zero)
	test.ExpectSuccess(t, p.Play(clocks.Zero))
	p.SignalStateChange(&cassette.MotorToggle{On: true})

	buf := make([]int16, 16)
	p.GenerateSamples(buf, clocks.Zero.Add(clocks.NewEmuDurationSec(0.1)))

	nonZero := false
	for _, s := range buf {
		if s != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Fatalf("expected at least one non-zero sample while the tape is rolling")
	}
}
