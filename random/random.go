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

// Package random supplies device-facing pseudo-randomness (power-up RAM
// pattern, PSG noise-channel LFSR seed, ...) that is rewindable: a device
// that asks for the "same" random value at the same EmuTime, whether running
// forward for the first time or replaying after a rewind, gets the same
// answer. Ordinary math/rand is unsuitable here because its stream position
// depends on call order, not on EmuTime - two runs that reach the same
// instant via different paths (one straight through, one via a rewind) would
// otherwise diverge.
package random

import (
	"time"

	"github.com/openmsx-go/core/hardware/clocks"
)

// TimeSource is the EmuTime-supplying collaborator a Random is seeded
// against - normally a *scheduler.Scheduler.
type TimeSource interface {
	CurrentTime() clocks.EmuTime
}

// Random produces values that are a pure function of (seed, EmuTime, call
// index), so the same point in emulated time always yields the same value
// regardless of how it was reached.
type Random struct {
	ts TimeSource

	// ZeroSeed disables the wall-clock entropy captured at construction,
	// making the whole sequence deterministic. Exists for tests and for
	// TAS-style fully-deterministic recordings.
	ZeroSeed bool

	seed uint64
}

// NewRandom creates a Random seeded from the current wall-clock time, tied
// to ts for its notion of "when".
func NewRandom(ts TimeSource) *Random {
	return &Random{ts: ts, seed: uint64(time.Now().UnixNano())}
}

// Rewindable returns a byte that depends only on the Random's seed, the
// current EmuTime of its TimeSource, and i - never on how many times
// Rewindable has previously been called.
func (r *Random) Rewindable(i int) uint8 {
	seed := r.seed
	if r.ZeroSeed {
		seed = 0
	}
	h := splitmix64(seed)
	h = splitmix64(h ^ r.ts.CurrentTime().Ticks())
	h = splitmix64(h ^ uint64(i))
	return uint8(h)
}

// splitmix64 is the well-known fixed-point mixing function; it has no
// relation to math/rand's algorithm so seeding it does not perturb any
// global random state.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
