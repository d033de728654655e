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

// Package cassette wraps a parsed tsx.Tape with the transport a real tape
// deck has: a host-level PLAY/STOP position (Insert/Play/Stop/Rewind,
// analogous to pressing buttons on the deck) crossed with a
// software-driven motor relay (MotorToggle, the one part of this transport
// the running machine actually controls and that must replay identically).
// Audio-in ADC modeling and the recording path are out of scope - this
// Player only plays a tape back, as a SoundMixer contributor monitoring
// what the deck would be outputting on the EAR line.
package cassette

import (
	"github.com/openmsx-go/core/cassette/tsx"
	"github.com/openmsx-go/core/emuerr"
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/device"
	"github.com/openmsx-go/core/hardware/scheduler"
	"github.com/openmsx-go/core/hardware/sound"
	"github.com/openmsx-go/core/hardware/statechange"
	"github.com/openmsx-go/core/serialize"
)

const syncEndOfTape scheduler.UserData = 0

// State is the host-level deck position, set by Insert/Eject/Play/Stop and
// returned to StateStop when the tape runs out.
type State uint8

const (
	StateStop State = iota
	StatePlay
)

func (s State) String() string {
	if s == StatePlay {
		return "play"
	}
	return "stop"
}

// MotorToggle is the one StateChange a Player ever emits: the software
// motor relay flipping on or off. Everything else about a Player (which
// tape is in the deck, whether the deck itself is playing) is a host-level
// action, not something the running machine drives, so it is never
// recorded or replayed.
type MotorToggle struct {
	On bool
}

func (MotorToggle) CurrentVersion() int { return 1 }
func (m *MotorToggle) Serialize(ar serialize.Archive) error {
	if err := ar.BeginType("CassetteMotorToggle", 1); err != nil {
		return err
	}
	return ar.Bool("on", &m.On)
}

var _ statechange.StateChange = (*MotorToggle)(nil)

// Player is the cassette interface device: a tape deck whose playhead only
// advances while isRolling, gated by both the host-level State and the
// software motor relay.
type Player struct {
	device.Unmapped

	sched *scheduler.Scheduler

	tape         *tsx.Tape
	state        State
	motor        bool // software-driven relay (MotorToggle)
	motorControl bool // true: the relay in motor actually gates playback

	clk      clocks.Clock[clocks.HzCassette]
	position int // index into tape.Samples the playhead currently sits at
}

// New creates an empty Player (no tape inserted) ticked by sched.
func New(sched *scheduler.Scheduler) *Player {
	return &Player{sched: sched, motorControl: true}
}

func (p *Player) Name() string { return "cassetteplayer" }

// Insert loads tape into the deck, stopped and rewound to the start.
func (p *Player) Insert(tape *tsx.Tape, t clocks.EmuTime) {
	p.sched.RemoveSyncPoint(p, syncEndOfTape)
	p.tape = tape
	p.position = 0
	p.state = StateStop
	p.clk = clocks.NewClock[clocks.HzCassette](t)
}

// Eject removes whatever tape is in the deck.
func (p *Player) Eject(t clocks.EmuTime) {
	p.advanceTo(t)
	p.sched.RemoveSyncPoint(p, syncEndOfTape)
	p.tape = nil
	p.state = StateStop
}

// Rewind returns the playhead to the start of the tape without changing
// the deck's PLAY/STOP state.
func (p *Player) Rewind(t clocks.EmuTime) {
	p.advanceTo(t)
	p.position = 0
	p.clk = clocks.NewClock[clocks.HzCassette](t)
	p.updateLoadingState(t)
}

// Play puts the deck in PLAY state; the playhead only actually advances
// once the software motor relay also engages (or MotorControl is
// disabled).
func (p *Player) Play(t clocks.EmuTime) error {
	if p.tape == nil {
		return emuerr.ConfigurationError("cassette: no tape inserted")
	}
	p.advanceTo(t)
	p.state = StatePlay
	p.updateLoadingState(t)
	return nil
}

// Stop puts the deck in STOP state; the playhead freezes wherever it was.
func (p *Player) Stop(t clocks.EmuTime) {
	p.advanceTo(t)
	p.state = StateStop
	p.updateLoadingState(t)
}

// SetMotorControl toggles whether the software relay gates playback at
// all. Disabling it is the "force play regardless of software state" mode
// real decks expose for fast-loading utilities.
func (p *Player) SetMotorControl(on bool, t clocks.EmuTime) {
	p.advanceTo(t)
	p.motorControl = on
	p.updateLoadingState(t)
}

// Position reports how far into the tape's sample stream the playhead
// currently sits, after accounting for time elapsed up to t.
func (p *Player) Position(t clocks.EmuTime) int {
	p.advanceTo(t)
	return p.position
}

func (p *Player) isRolling() bool {
	return p.tape != nil && p.state == StatePlay && (p.motor || !p.motorControl)
}

// advanceTo moves the playhead forward to t if the deck is rolling, and
// always advances the underlying clock - idempotent, since the clock never
// moves backward and a second call for the same t advances nothing further.
func (p *Player) advanceTo(t clocks.EmuTime) {
	if p.tape != nil && p.isRolling() {
		n := int(p.clk.GetTicksTill(t))
		p.position += n
		if p.position > len(p.tape.Samples) {
			p.position = len(p.tape.Samples)
		}
	}
	p.clk.Advance(t)
}

// updateLoadingState re-arms the end-of-tape sync point, mirroring
// CassettePlayer.cc's updateLoadingState: called after every state change
// that could affect whether (or how soon) the tape runs out.
func (p *Player) updateLoadingState(t clocks.EmuTime) {
	p.sched.RemoveSyncPoint(p, syncEndOfTape)
	if !p.isRolling() {
		return
	}
	remaining := len(p.tape.Samples) - p.position
	if remaining <= 0 {
		return
	}
	end := p.clk
	end.AddTicks(uint64(remaining))
	p.sched.SetSyncPoint(end.Time(), p, syncEndOfTape)
}

// ExecuteUntil implements scheduler.Schedulable: the only sync point a
// Player ever sets is the one marking the tape running out.
func (p *Player) ExecuteUntil(fire clocks.EmuTime, userData scheduler.UserData) {
	if userData != syncEndOfTape {
		return
	}
	p.advanceTo(fire)
	p.state = StateStop
}

// SignalStateChange implements statechange.Listener: the motor relay
// flips the same way whether the change arrived live or via replay.
func (p *Player) SignalStateChange(change statechange.StateChange) {
	toggle, ok := change.(*MotorToggle)
	if !ok {
		return
	}
	now := p.sched.CurrentTime()
	p.advanceTo(now)
	p.motor = toggle.On
	p.updateLoadingState(now)
}

func (p *Player) StopReplay(clocks.EmuTime) {}

// GenerateSamples implements sound.Device: the deck's EAR-line output,
// nearest-neighbour resampled from the tape's own OutputFrequency grid to
// whatever rate the Mixer pulls at. This stands in for the original's
// proper bandlimited resampler - a reasonable simplification given that
// audio-in ADC fidelity is explicitly out of scope here.
func (p *Player) GenerateSamples(buf []int16, until clocks.EmuTime) {
	if p.tape == nil {
		clear(buf)
		return
	}
	start := p.position
	rolling := p.isRolling()
	p.advanceTo(until)
	if !rolling || len(buf) == 0 {
		clear(buf)
		return
	}
	span := p.position - start
	for i := range buf {
		if span <= 0 {
			buf[i] = 0
			continue
		}
		idx := start + i*span/len(buf)
		if idx < 0 || idx >= len(p.tape.Samples) {
			buf[i] = 0
			continue
		}
		buf[i] = int16(p.tape.Samples[idx]) * 256
	}
}

func clear(buf []int16) {
	for i := range buf {
		buf[i] = 0
	}
}

func (p *Player) CurrentVersion() int { return 1 }

// Serialize persists the deck's logical state - not the tape itself, which
// (like a disk image) is expected to already be reinserted by the time a
// snapshot is loaded.
func (p *Player) Serialize(ar serialize.Archive) error {
	if err := ar.BeginType("CassettePlayer", p.CurrentVersion()); err != nil {
		return err
	}
	state := uint8(p.state)
	if err := ar.Uint8("state", &state); err != nil {
		return err
	}
	if err := ar.Bool("motor", &p.motor); err != nil {
		return err
	}
	if err := ar.Bool("motorControl", &p.motorControl); err != nil {
		return err
	}
	position := uint32(p.position)
	if err := ar.Uint32("position", &position); err != nil {
		return err
	}

	if !ar.IsOutput() {
		p.state = State(state)
		p.position = int(position)
		now := p.sched.CurrentTime()
		p.clk = clocks.NewClock[clocks.HzCassette](now)
		if p.tape != nil {
			if p.position > len(p.tape.Samples) {
				p.position = len(p.tape.Samples)
			}
			p.updateLoadingState(now)
		}
	}
	return nil
}

var (
	_ device.MSXDevice      = (*Player)(nil)
	_ scheduler.Schedulable = (*Player)(nil)
	_ sound.Device          = (*Player)(nil)
	_ statechange.Listener  = (*Player)(nil)
)
