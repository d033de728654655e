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

// Package statechange is the record/replay substrate every
// externally-driven event (a key press, a joystick move, media insertion)
// passes through on its way into the emulation. Exactly one recorder - the
// ReverseManager, while it is active - may be attached at a time; any number
// of devices can subscribe as listeners to learn about a change after it has
// been recorded (or, during replay, instead of it ever happening live).
package statechange

import (
	"github.com/openmsx-go/core/emuerr"
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/serialize"
)

// StateChange is anything that can be recorded and later replayed
// byte-for-byte: the keyboard matrix edge, a joystick button edge, a
// cassette motor toggle, ...
type StateChange interface {
	serialize.Serializable
}

// Recorder receives every distributed StateChange, timestamped. Only the
// ReverseManager implements this in practice.
type Recorder interface {
	RecordStateChange(change StateChange, t clocks.EmuTime)

	// Replaying reports whether the recorder is currently replaying a
	// previously recorded segment of its own log.
	Replaying() bool

	// DiscardReplayTail drops every recorded event from the recorder's
	// current replay position onward. Called by Distribute when a live
	// StateChange arrives mid-replay: the emulator has just produced
	// something the old log never foresaw, so the unreplayed tail of that
	// log is no longer a valid future and must make way for it.
	DiscardReplayTail()
}

// Listener is implemented by a device that needs to react to a StateChange
// regardless of whether it arrived live or via replay (the keyboard matrix,
// for instance, must apply a key edge the same way either way).
type Listener interface {
	SignalStateChange(change StateChange)
	// StopReplay is called once replay of a recorded segment ends, so a
	// listener mid-way through applying a held-key state can let go of it.
	StopReplay(t clocks.EmuTime)
}

// Distributor is the single point every StateChange passes through.
// Distribution order is: record (if a recorder is attached), then fan out
// to every listener, in registration order.
type Distributor struct {
	listeners []Listener
	recorder  Recorder

	pushed chan pushedChange
}

type pushedChange struct {
	change StateChange
	t      clocks.EmuTime
}

// New creates an empty Distributor. pushQueueSize bounds how many
// cross-goroutine Push calls (e.g. from a UI thread) can be outstanding
// before Push starts reporting the queue full.
func New(pushQueueSize int) *Distributor {
	return &Distributor{pushed: make(chan pushedChange, pushQueueSize)}
}

// RegisterListener adds l to the fan-out list. Order matters only in that
// listeners see changes in the order they registered.
func (d *Distributor) RegisterListener(l Listener) {
	d.listeners = append(d.listeners, l)
}

// UnregisterListener removes l, if present.
func (d *Distributor) UnregisterListener(l Listener) {
	for i, x := range d.listeners {
		if x == l {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

// SetRecorder attaches r as the single recorder. Calling it while a
// different non-nil recorder is already attached is a programming error -
// there is exactly one ReverseManager per motherboard, and nothing else is
// allowed to record.
func (d *Distributor) SetRecorder(r Recorder) {
	if r != nil && d.recorder != nil && d.recorder != r {
		emuerr.PanicStateInconsistency("statechange: a second recorder was attached while one was already active")
	}
	d.recorder = r
}

// StopRecording detaches whatever recorder is currently attached.
func (d *Distributor) StopRecording() {
	d.recorder = nil
}

// Distribute records (if recording) and then delivers change to every
// listener. This is the only path a live, user-driven StateChange should
// ever take; replay goes through Replay, which delivers directly to each
// listener's SignalStateChange, bypassing the recorder so a replay is never
// re-recorded into the same log it came from.
//
// If the recorder is still mid-replay when a live change arrives, the
// emulator itself has just produced something the recorded log never
// foresaw: replay stops here, the as-yet-unreplayed tail of the log is
// discarded, and recording resumes from this point forward.
func (d *Distributor) Distribute(change StateChange, t clocks.EmuTime) {
	if d.recorder != nil {
		if d.recorder.Replaying() {
			d.recorder.DiscardReplayTail()
			d.StopReplay(t)
		}
		d.recorder.RecordStateChange(change, t)
	}
	for _, l := range d.listeners {
		l.SignalStateChange(change)
	}
}

// Replay delivers change directly to every listener without recording it -
// used by the ReverseManager while replaying its event log.
func (d *Distributor) Replay(change StateChange) {
	for _, l := range d.listeners {
		l.SignalStateChange(change)
	}
}

// StopReplay notifies every listener that replay has ended at t.
func (d *Distributor) StopReplay(t clocks.EmuTime) {
	for _, l := range d.listeners {
		l.StopReplay(t)
	}
}

// Push enqueues change from outside the emulation goroutine (a UI input
// handler, a bot) for later delivery via DrainPushed. It never blocks;
// DeviceWarning-wrapped errors are returned to ask the caller to implement
// backpressure rather than to silently drop newer input.
func (d *Distributor) Push(change StateChange, t clocks.EmuTime) error {
	select {
	case d.pushed <- pushedChange{change: change, t: t}:
		return nil
	default:
		return emuerr.DeviceWarning("statechange: pushed event queue is full, input dropped")
	}
}

// DrainPushed distributes every change queued by Push since the last call.
// The motherboard calls this once per scheduler quantum.
func (d *Distributor) DrainPushed() {
	for {
		select {
		case p := <-d.pushed:
			d.Distribute(p.change, p.t)
		default:
			return
		}
	}
}
