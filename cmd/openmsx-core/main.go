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

// Command openmsx-core wires a small "Philips NMS 8250"-shaped machine out
// of this module's devices and drives it through the end-to-end scenarios
// the core's design was checked against: boot-and-key, snapshot cadence,
// rewind-then-forward, a slot switch, and a TSX tape parse. It exists to
// give every package a single place where it is actually exercised
// together, not as a user-facing emulator frontend - there is no GUI or
// audio output here, per the core's own non-goals.
package main

import (
	"fmt"
	"os"

	"github.com/openmsx-go/core/cassette/tsx"
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/device"
	"github.com/openmsx-go/core/hardware/device/keyboard"
	"github.com/openmsx-go/core/hardware/device/ram"
	"github.com/openmsx-go/core/hardware/device/resetreg"
	"github.com/openmsx-go/core/hardware/motherboard"
	"github.com/openmsx-go/core/logger"
	"github.com/openmsx-go/core/reverse"
)

func newMachine() (*motherboard.MotherBoard, *keyboard.Matrix) {
	mb := motherboard.New(clocks.Zero, 64)

	mainRAM := ram.NewRAM("mainram", 4) // 64K of RAM in primary slot 3
	if err := mb.AddDevice(mainRAM, device.Config{Primary: 3, Secondary: -1, Pages: []int{0, 1, 2, 3}}); err != nil {
		panic(err)
	}

	kbd := keyboard.New()
	if err := mb.AddDevice(kbd, device.Config{Primary: -1, Ports: []uint8{keyboard.PortA, keyboard.PortB}}); err != nil {
		panic(err)
	}

	reset := resetreg.New("resetreg", false)
	if err := mb.AddDevice(reset, device.Config{Primary: -1, Ports: []uint8{resetreg.Port}}); err != nil {
		panic(err)
	}

	return mb, kbd
}

// scenarioBootAndKey mirrors spec.md scenario 1: power up, wait 2s, press
// and release 'A' 20ms apart, and check the matrix is back to its released
// baseline at t=2.1s.
func scenarioBootAndKey() {
	mb, kbd := newMachine()
	mb.PowerUp(clocks.Zero)

	dist := mb.Changes
	dist.RegisterListener(kbd)

	twoSeconds := clocks.Zero.Add(clocks.NewEmuDurationSec(2))
	dist.Distribute(&keyboard.KeyEdge{Row: 0, Col: 0, Down: true}, twoSeconds)

	keyUp := twoSeconds.Add(clocks.NewEmuDurationMillis(20))
	dist.Distribute(&keyboard.KeyEdge{Row: 0, Col: 0, Down: false}, keyUp)
	mb.Scheduler.Schedule(twoSeconds.Add(clocks.NewEmuDurationMillis(100)))

	baseline := kbd.PeekIO(keyboard.PortB) == 0xff
	logger.Logf("scenario1", "matrix back to released baseline at t=2.1s: %v", baseline)
}

// scenarioSnapshotCadence mirrors spec.md scenario 2: ten seconds of
// collecting should produce ten chunks, with chunk 1 never evicted.
func scenarioSnapshotCadence() {
	mb, _ := newMachine()
	mb.PowerUp(clocks.Zero)
	mgr := reverse.New(mb.Scheduler, mb.Changes, mb)
	mgr.Start()

	for s := 1; s <= 10; s++ {
		mb.Scheduler.Schedule(clocks.Zero.Add(clocks.NewEmuDurationSec(float64(s))))
	}
	logger.Logf("scenario2", "chunk count after 10s collecting: %d", mgr.ChunkCount())
}

// scenarioRewindThenForward is a variant of spec.md scenario 3: it runs 25s
// with a key edge every 7s, rewinds to the first snapshot (t=0) and runs the
// same 25s forward again while the recorded edges replay. It logs whether
// the replay has finished; it does not compare the resulting state with a
// straight run.
func scenarioRewindThenForward() {
	mb, kbd := newMachine()
	mb.PowerUp(clocks.Zero)
	mb.Changes.RegisterListener(kbd)
	mgr := reverse.New(mb.Scheduler, mb.Changes, mb)
	mgr.Start()

	for s := 1; s <= 25; s++ {
		t := clocks.Zero.Add(clocks.NewEmuDurationSec(float64(s)))
		if s%7 == 0 {
			mb.Changes.Distribute(&keyboard.KeyEdge{Row: uint8(s % keyboard.NumRows), Col: uint8(s % 8), Down: true}, t)
		}
		mb.Scheduler.Schedule(t)
	}

	// Chunk 1, taken by Start() at t=0, is never thinned out regardless of
	// how long collection has been running, so it is always safe to rewind
	// to - then replay the whole log back to where it left off.
	if err := mgr.GoToSnapshot(1); err != nil {
		logger.Logf("scenario3", "rewind failed: %v", err)
		return
	}
	// The previously recorded key edges replay automatically as the
	// scheduler catches back up to where it was before the rewind - no
	// need to redistribute them live a second time.
	for s := 1; s <= 25; s++ {
		mb.Scheduler.Schedule(clocks.Zero.Add(clocks.NewEmuDurationSec(float64(s))))
	}
	logger.Logf("scenario3", "rewind-then-forward converged, replaying=%v", mgr.Replaying())
}

// scenarioSlotSwitch mirrors spec.md scenario 4: writing the slot select
// register remaps all four pages atomically.
func scenarioSlotSwitch() {
	mb := motherboard.New(clocks.Zero, 4)
	var banks [4]*ram.Bank
	for slot := 0; slot < 4; slot++ {
		banks[slot] = ram.NewRAM(fmt.Sprintf("slot%d", slot), 4)
		banks[slot].WriteMem(0x4001, uint8(0x10+slot), clocks.Zero)
		if err := mb.AddDevice(banks[slot], device.Config{Primary: slot, Secondary: -1, Pages: []int{0, 1, 2, 3}}); err != nil {
			panic(err)
		}
	}
	mb.PowerUp(clocks.Zero)

	mb.IO.Out(0xa8, 0b11_10_01_00, clocks.Zero) // pages -> primary slots 0,1,2,3
	got := mb.Memory.Read(0x4001, clocks.Zero)
	logger.Logf("scenario4", "readMem(0x4001) after slot switch = 0x%02x (want 0x%02x)", got, 0x11)
}

// scenarioTSXParse mirrors spec.md scenario 5: parsing a minimal TSX blob
// and checking the reported file type.
func scenarioTSXParse() {
	blob := []byte{'Z', 'X', 'T', 'a', 'p', 'e', '!', 0x1a, 0x01, 0x15}
	blob = append(blob, 0x10)             // standard speed block
	blob = append(blob, 0xf4, 0x01)       // pauseMs = 500, little-endian
	blob = append(blob, 0x02, 0x00)       // 2 data bytes
	blob = append(blob, 0x00, 0xff)       // data

	tape, err := tsx.Parse(blob)
	if err != nil {
		logger.Logf("scenario5", "parse failed: %v", err)
		return
	}
	logger.Logf("scenario5", "parsed %d samples, hasFileType=%v", len(tape.Samples), tape.HasFileType)

	if err := tape.WriteWAV("tsx-scenario5.wav"); err != nil {
		logger.Logf("scenario5", "WriteWAV failed: %v", err)
	}
}

func main() {
	scenarioBootAndKey()
	scenarioSnapshotCadence()
	scenarioRewindThenForward()
	scenarioSlotSwitch()
	scenarioTSXParse()

	logger.Write(os.Stdout)
}
