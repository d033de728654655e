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

package statechange_test

import (
	"testing"

	"github.com/openmsx-go/core/emuerr"
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/statechange"
	"github.com/openmsx-go/core/serialize"
	"github.com/openmsx-go/core/test"
)

type keyEdge struct {
	row, col uint8
	down     bool
}

func (k keyEdge) CurrentVersion() int { return 1 }
func (k keyEdge) Serialize(ar serialize.Archive) error {
	return ar.BeginType("keyEdge", 1)
}

type recorder struct {
	recorded     []statechange.StateChange
	replaying    bool
	discardCalls int
}

func (r *recorder) RecordStateChange(change statechange.StateChange, _ clocks.EmuTime) {
	r.recorded = append(r.recorded, change)
}

func (r *recorder) Replaying() bool { return r.replaying }

func (r *recorder) DiscardReplayTail() {
	r.discardCalls++
	r.replaying = false
}

var _ statechange.Recorder = (*recorder)(nil)

type listener struct {
	seen        []statechange.StateChange
	stoppedAt   clocks.EmuTime
	stopReplays int
}

func (l *listener) SignalStateChange(change statechange.StateChange) {
	l.seen = append(l.seen, change)
}

func (l *listener) StopReplay(t clocks.EmuTime) {
	l.stoppedAt = t
	l.stopReplays++
}

func TestDistributeRecordsThenFansOut(t *testing.T) {
	d := statechange.New(8)
	r := &recorder{}
	l1 := &listener{}
	l2 := &listener{}
	d.SetRecorder(r)
	d.RegisterListener(l1)
	d.RegisterListener(l2)

	ev := keyEdge{row: 1, col: 2, down: true}
	d.Distribute(ev, clocks.Zero)

	test.ExpectEquality(t, len(r.recorded), 1)
	test.ExpectEquality(t, len(l1.seen), 1)
	test.ExpectEquality(t, len(l2.seen), 1)
}

func TestReplayDoesNotRecord(t *testing.T) {
	d := statechange.New(8)
	r := &recorder{}
	l := &listener{}
	d.SetRecorder(r)
	d.RegisterListener(l)

	d.Replay(keyEdge{row: 0, col: 0, down: true})

	test.ExpectEquality(t, len(r.recorded), 0)
	test.ExpectEquality(t, len(l.seen), 1)
}

func TestUnregisterListenerStopsDelivery(t *testing.T) {
	d := statechange.New(8)
	l := &listener{}
	d.RegisterListener(l)
	d.UnregisterListener(l)

	d.Distribute(keyEdge{}, clocks.Zero)
	test.ExpectEquality(t, len(l.seen), 0)
}

func TestSetRecorderTwiceWithDifferentRecordersPanics(t *testing.T) {
	d := statechange.New(8)
	d.SetRecorder(&recorder{})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic when attaching a second recorder")
		}
	}()
	d.SetRecorder(&recorder{})
}

func TestStopRecordingThenSetRecorderIsFine(t *testing.T) {
	d := statechange.New(8)
	d.SetRecorder(&recorder{})
	d.StopRecording()
	d.SetRecorder(&recorder{}) // must not panic
}

func TestPushThenDrainDistributes(t *testing.T) {
	d := statechange.New(2)
	l := &listener{}
	d.RegisterListener(l)

	test.ExpectSuccess(t, d.Push(keyEdge{row: 3}, clocks.Zero))
	test.ExpectEquality(t, len(l.seen), 0) // not delivered until drained

	d.DrainPushed()
	test.ExpectEquality(t, len(l.seen), 1)
}

func TestPushQueueFullReturnsDeviceWarning(t *testing.T) {
	d := statechange.New(1)
	test.ExpectSuccess(t, d.Push(keyEdge{}, clocks.Zero))
	err := d.Push(keyEdge{}, clocks.Zero)
	if !emuerr.IsDeviceWarning(err) {
		t.Fatalf("expected a DeviceWarning, got %v", err)
	}
}

func TestLiveDistributeMidReplayDiscardsTailAndStopsReplay(t *testing.T) {
	d := statechange.New(8)
	r := &recorder{replaying: true}
	l := &listener{}
	d.SetRecorder(r)
	d.RegisterListener(l)

	at := clocks.Zero.Add(clocks.NewEmuDurationSec(1))
	ev := keyEdge{row: 9, col: 9, down: true}
	d.Distribute(ev, at)

	// the stale replay is torn down before the live change is recorded...
	test.ExpectEquality(t, r.discardCalls, 1)
	test.ExpectEquality(t, r.replaying, false)

	// ...listeners are told the replay stopped at the live change's time...
	test.ExpectEquality(t, l.stopReplays, 1)
	if !l.stoppedAt.Equal(at) {
		t.Errorf("stoppedAt = %s, want %s", l.stoppedAt, at)
	}

	// ...and the live change itself is still recorded and fanned out, same
	// as any other Distribute call.
	test.ExpectEquality(t, len(r.recorded), 1)
	test.ExpectEquality(t, r.recorded[0], statechange.StateChange(ev))
	test.ExpectEquality(t, len(l.seen), 1)
	test.ExpectEquality(t, l.seen[0], statechange.StateChange(ev))
}

func TestStopReplayNotifiesListeners(t *testing.T) {
	d := statechange.New(8)
	l := &listener{}
	d.RegisterListener(l)

	at := clocks.Zero.Add(clocks.NewEmuDurationSec(1))
	d.StopReplay(at)

	test.ExpectEquality(t, l.stopReplays, 1)
	if !l.stoppedAt.Equal(at) {
		t.Errorf("stoppedAt = %s, want %s", l.stoppedAt, at)
	}
}
