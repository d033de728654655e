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

package reverse_test

import (
	"testing"

	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/scheduler"
	"github.com/openmsx-go/core/hardware/statechange"
	"github.com/openmsx-go/core/reverse"
	"github.com/openmsx-go/core/serialize"
	"github.com/openmsx-go/core/test"
)

// increment is a tiny StateChange that nudges a counter's Value.
type increment struct {
	Delta int32
}

func (increment) CurrentVersion() int { return 1 }
func (i *increment) Serialize(ar serialize.Archive) error {
	if err := ar.BeginType("increment", 1); err != nil {
		return err
	}
	return ar.Int32("delta", &i.Delta)
}

// counter is both the whole-machine Target reverse.Manager snapshots, and
// the Listener that applies the increments it records.
type counter struct {
	Value int32
}

func (c *counter) SignalStateChange(change statechange.StateChange) {
	if inc, ok := change.(*increment); ok {
		c.Value += inc.Delta
	}
}

func (c *counter) StopReplay(clocks.EmuTime) {}

func (c *counter) CurrentVersion() int { return 1 }
func (c *counter) Serialize(ar serialize.Archive) error {
	if err := ar.BeginType("counter", 1); err != nil {
		return err
	}
	return ar.Int32("value", &c.Value)
}

var (
	_ statechange.Listener    = (*counter)(nil)
	_ serialize.Serializable  = (*counter)(nil)
	_ statechange.StateChange = (*increment)(nil)
)

func TestStartTakesInitialSnapshotAndBeginsCollecting(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	dist := statechange.New(4)
	target := &counter{}
	mgr := reverse.New(sched, dist, target)

	test.ExpectEquality(t, mgr.Collecting(), false)
	mgr.Start()
	test.ExpectEquality(t, mgr.Collecting(), true)
	test.ExpectEquality(t, mgr.ChunkCount(), 1)
}

func TestStopDiscardsHistory(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	dist := statechange.New(4)
	mgr := reverse.New(sched, dist, &counter{})

	mgr.Start()
	mgr.Stop()
	test.ExpectEquality(t, mgr.Collecting(), false)
	test.ExpectEquality(t, mgr.ChunkCount(), 0)
}

func TestLiveStateChangeIsRecordedWhileCollecting(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	dist := statechange.New(4)
	target := &counter{}
	dist.RegisterListener(target)
	mgr := reverse.New(sched, dist, target)

	mgr.Start()
	dist.Distribute(&increment{Delta: 5}, clocks.Zero)

	test.ExpectEquality(t, target.Value, int32(5))
	test.ExpectEquality(t, mgr.ReplayLag(), 0) // nothing pending replay while live
}

func TestPeriodicSnapshotFiresOnSchedule(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	dist := statechange.New(4)
	mgr := reverse.New(sched, dist, &counter{})

	mgr.Start()
	test.ExpectEquality(t, mgr.ChunkCount(), 1)

	oneSecond := clocks.NewEmuDurationSec(1)
	sched.Schedule(clocks.Zero.Add(oneSecond))
	test.ExpectEquality(t, mgr.ChunkCount(), 2)
}

func TestGoToSnapshotRestoresEarlierValueThenReplaysForward(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	dist := statechange.New(4)
	target := &counter{}
	dist.RegisterListener(target)
	mgr := reverse.New(sched, dist, target)

	oneSecond := clocks.NewEmuDurationSec(1)
	t0 := clocks.Zero
	t1 := t0.Add(oneSecond)

	mgr.Start() // chunk 1 @ t0, Value=0

	dist.Distribute(&increment{Delta: 5}, t0)
	test.ExpectEquality(t, target.Value, int32(5))

	sched.Schedule(t1) // fires the periodic snapshot: chunk 2 @ t1, Value=5

	dist.Distribute(&increment{Delta: 3}, t1)
	test.ExpectEquality(t, target.Value, int32(8))

	// Rewind to the very first snapshot (Value was 0 then) and replay the
	// two increments back in: the machine should land on the same total it
	// reached live.
	test.ExpectSuccess(t, mgr.GoToSnapshot(1))
	test.ExpectEquality(t, target.Value, int32(0))

	sched.Schedule(t1.Add(oneSecond))
	test.ExpectEquality(t, target.Value, int32(8))
	test.ExpectEquality(t, mgr.Replaying(), false)
}

func TestLiveDistributeMidReplayDiscardsTailAndResumesRecording(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	dist := statechange.New(4)
	target := &counter{}
	dist.RegisterListener(target)
	mgr := reverse.New(sched, dist, target)

	oneSecond := clocks.NewEmuDurationSec(1)
	t0 := clocks.Zero
	t1 := t0.Add(oneSecond)

	mgr.Start() // chunk 1 @ t0, Value=0

	dist.Distribute(&increment{Delta: 5}, t0)
	sched.Schedule(t1) // periodic snapshot: chunk 2 @ t1, Value=5
	dist.Distribute(&increment{Delta: 3}, t1)
	test.ExpectEquality(t, target.Value, int32(8))

	// Rewind to the first snapshot and let replay start, but don't let the
	// scheduler run the queued replay events yet.
	test.ExpectSuccess(t, mgr.GoToSnapshot(1))
	test.ExpectEquality(t, target.Value, int32(0))
	test.ExpectEquality(t, mgr.Replaying(), true)

	// A live change arrives before the old log's first replayed event fires
	// (e.g. the user pressed a key while scrubbing through rewind history).
	// It must stop the replay, discard whatever of the old log was still
	// unreplayed, and be recorded/applied as if it had happened live.
	dist.Distribute(&increment{Delta: 100}, t0)

	test.ExpectEquality(t, target.Value, int32(100))
	test.ExpectEquality(t, mgr.Replaying(), false)
	test.ExpectEquality(t, mgr.ReplayLag(), 0)

	// Advancing the scheduler past where the discarded tail events used to
	// live must not resurrect them - they were overtaken by the live change,
	// not merely paused.
	sched.Schedule(t1.Add(oneSecond))
	test.ExpectEquality(t, target.Value, int32(100))
}

func TestGoToSnapshotUnknownIndexFails(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	dist := statechange.New(4)
	mgr := reverse.New(sched, dist, &counter{})
	mgr.Start()

	if err := mgr.GoToSnapshot(99); err == nil {
		t.Fatalf("expected an error for an unknown snapshot index")
	}
}
