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

// Package reverse implements rewind/replay: while collecting, Manager takes
// a compact snapshot of the whole machine once a second and records every
// StateChange distributed live; GoToSnapshot restores one of those snapshots
// in place and then replays the events recorded since, bringing the machine
// forward to exactly where a chosen moment in its own past left off.
//
// Unlike the original openMSX (which reconstructs a brand new motherboard
// from a machine description before loading a snapshot into it), this
// Manager always restores into the single already-constructed Target it was
// given - machine-description parsing is out of scope for this core, so
// there is no way to build a second one to swap in.
package reverse

import (
	"github.com/openmsx-go/core/crunched"
	"github.com/openmsx-go/core/emuerr"
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/scheduler"
	"github.com/openmsx-go/core/hardware/statechange"
	"github.com/openmsx-go/core/serialize"
)

const (
	syncNewSnapshot scheduler.UserData = iota
	syncInputEvent
)

// snapshotInterval matches the original's one-second cadence: one Clock<1>
// tick.
var snapshotInterval = clocks.NewEmuDurationSec(1)

// chunkSpacing is the N of dropOldSnapshots<N>: how densely the most recent
// history is kept before older chunks start being thinned out.
const chunkSpacing = 25

// EndLogEvent terminates a recorded event log. Replaying it stops the
// replay rather than applying anything to a device.
type EndLogEvent struct{}

func (EndLogEvent) CurrentVersion() int                   { return 1 }
func (*EndLogEvent) Serialize(ar serialize.Archive) error { return ar.BeginType("EndLogEvent", 1) }

var _ statechange.StateChange = (*EndLogEvent)(nil)

// TimedChange pairs a recorded StateChange with the EmuTime it originally
// fired at, since statechange.StateChange itself carries no timestamp.
type TimedChange struct {
	Change statechange.StateChange
	Time   clocks.EmuTime
}

// Chunk is one rewind point: a compressed whole-machine snapshot, the time
// it was taken at, and how far into the event log it corresponds to.
type Chunk struct {
	Time       clocks.EmuTime
	Snapshot   crunched.Data
	EventCount int
}

// History is the collected chunks plus the full recorded event log.
type History struct {
	Chunks map[int]Chunk
	Events []TimedChange
}

// Manager is the ReverseManager: a Schedulable that takes periodic
// snapshots, and a statechange.Recorder that appends every live StateChange
// to the log while collecting.
type Manager struct {
	sched  *scheduler.Scheduler
	dist   *statechange.Distributor
	target serialize.Serializable

	history      History
	collectCount int
	replayIndex  int
}

// New creates a Manager that, once started, snapshots and records target -
// the whole-machine root object (typically a *motherboard.MotherBoard) -
// via sched and dist.
func New(sched *scheduler.Scheduler, dist *statechange.Distributor, target serialize.Serializable) *Manager {
	return &Manager{
		sched:  sched,
		dist:   dist,
		target: target,
		history: History{
			Chunks: make(map[int]Chunk),
		},
	}
}

// Collecting reports whether a rewind history is currently being recorded.
func (m *Manager) Collecting() bool { return m.collectCount != 0 }

// Replaying reports whether playback of a recorded (or loaded) event log is
// currently in progress.
func (m *Manager) Replaying() bool { return m.replayIndex != len(m.history.Events) }

// Start begins collecting: an initial snapshot is taken immediately and the
// Manager registers itself as the StateChangeDistributor's recorder.
func (m *Manager) Start() {
	if m.Collecting() {
		return
	}
	m.collectCount = 1
	m.takeSnapshot(m.sched.CurrentTime())
	m.dist.SetRecorder(m)
}

// Stop discards the whole history and detaches from the distributor.
func (m *Manager) Stop() {
	if !m.Collecting() {
		return
	}
	m.dist.StopRecording()
	m.sched.RemoveSyncPoint(m, syncNewSnapshot, syncInputEvent)
	m.history = History{Chunks: make(map[int]Chunk)}
	m.collectCount = 0
	m.replayIndex = 0
}

// RecordStateChange implements statechange.Recorder: every live change is
// appended to the event log while collecting.
func (m *Manager) RecordStateChange(change statechange.StateChange, t clocks.EmuTime) {
	m.history.Events = append(m.history.Events, TimedChange{Change: change, Time: t})
	m.replayIndex++
}

// DiscardReplayTail implements statechange.Recorder: cancels the pending
// replay sync point and truncates the event log to what has actually been
// replayed so far. The Distributor calls this the moment a live StateChange
// arrives while Replaying() is still true, which leaves replayIndex equal to
// len(history.Events) - Replaying() reports false from here on, and the
// live change the Distributor is about to record is appended onto exactly
// what really happened, not onto a log that still promises a future that a
// live event has just overtaken.
func (m *Manager) DiscardReplayTail() {
	m.sched.RemoveSyncPoint(m, syncInputEvent)
	m.history.Events = m.history.Events[:m.replayIndex]
}

// ExecuteUntil implements scheduler.Schedulable for both the periodic
// snapshot sync point and the per-event replay sync point.
func (m *Manager) ExecuteUntil(fire clocks.EmuTime, userData scheduler.UserData) {
	switch userData {
	case syncNewSnapshot:
		m.takeSnapshot(fire)
	case syncInputEvent:
		m.fireNextEvent()
	}
}

func (m *Manager) takeSnapshot(t clocks.EmuTime) {
	dropOldSnapshots(m.history.Chunks, chunkSpacing, m.collectCount)

	m.history.Chunks[m.collectCount] = Chunk{
		Time:       t,
		Snapshot:   serialize.SaveSnapshot(m.target),
		EventCount: m.replayIndex,
	}
	m.collectCount++
	m.sched.SetSyncPoint(t.Add(snapshotInterval), m, syncNewSnapshot)
}

// reconstructTarget is handed to serialize.LoadSnapshot as its construct
// callback. It does not allocate a new object - Target is restored in
// place, so the "construct" is simply "here is the thing to repopulate".
func (m *Manager) reconstructTarget() serialize.Serializable { return m.target }

func (m *Manager) fireNextEvent() {
	event := m.history.Events[m.replayIndex]
	m.dist.Replay(event.Change)
	m.replayIndex++
	if _, isSentinel := event.Change.(*EndLogEvent); isSentinel {
		m.dist.StopReplay(event.Time)
		return
	}
	m.scheduleNextReplayEvent()
}

func (m *Manager) scheduleNextReplayEvent() {
	if m.replayIndex >= len(m.history.Events) {
		return
	}
	m.sched.SetSyncPoint(m.history.Events[m.replayIndex].Time, m, syncInputEvent)
}

// GoToSnapshot restores the snapshot recorded as chunk index, truncates any
// chunks taken after it, and resumes replaying the event log from that
// snapshot's EventCount forward.
func (m *Manager) GoToSnapshot(index int) error {
	chunk, ok := m.history.Chunks[index]
	if !ok {
		return emuerr.ConfigurationError("reverse: no snapshot at index %d", index)
	}

	// If we were live (not already mid-replay), close out the log with a
	// sentinel at the current instant first, so the events now being
	// truncated-past stay a well-formed, replayable segment in their own
	// right rather than trailing off mid-stream.
	if !m.Replaying() {
		now := m.sched.CurrentTime()
		m.history.Events = append(m.history.Events, TimedChange{Change: &EndLogEvent{}, Time: now})
	}

	for k := range m.history.Chunks {
		if k > index {
			delete(m.history.Chunks, k)
		}
	}

	if _, err := serialize.LoadSnapshot(chunk.Snapshot, m.reconstructTarget); err != nil {
		return err
	}

	// Rewind moves the scheduler's "now" back to the snapshot's instant and
	// drops every pending sync point - including our own periodic
	// syncNewSnapshot - since they were all computed against a timeline
	// that the restore just erased. Re-arm the snapshot cadence from here;
	// scheduleNextReplayEvent re-arms the replay side below.
	m.sched.Rewind(chunk.Time)
	m.sched.SetSyncPoint(chunk.Time.Add(snapshotInterval), m, syncNewSnapshot)

	m.replayIndex = chunk.EventCount
	m.scheduleNextReplayEvent()
	return nil
}

// CollectCount, ChunkCount and ReplayLag expose the counters
// telemetry.Server surfaces over HTTP.
func (m *Manager) CollectCount() int { return m.collectCount }
func (m *Manager) ChunkCount() int   { return len(m.history.Chunks) }
func (m *Manager) ReplayLag() int    { return len(m.history.Events) - m.replayIndex }

// dropOldSnapshots erases zero or more earlier chunks so recent history is
// kept at full density and distant history is thinned out geometrically:
// the N (or N+1) most recent chunks are kept at spacing 1, then N (or N+1)
// at spacing 2, then spacing 4, and so on. The very first chunk is never
// dropped.
func dropOldSnapshots(chunks map[int]Chunk, n, count int) {
	y := (count + n - 1) ^ (count + n)
	d := n
	d2 := 2*n + 1
	for {
		y >>= 1
		if y == 0 || count <= d {
			return
		}
		delete(chunks, count-d)
		d += d2
		d2 *= 2
	}
}

var _ scheduler.Schedulable = (*Manager)(nil)
var _ statechange.Recorder = (*Manager)(nil)
