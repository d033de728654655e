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

// Package clocks defines the master clock, the immutable EmuTime/EmuDuration
// value types built on top of it, and the Clock[F] strided view used by
// devices that tick at some fixed sub-frequency of the master clock (the
// TurboR E6 timer, the default audio rate, ...).
//
// The MSX master clock runs at 3.579545 MHz - the same crystal frequency
// used to generate the NTSC colour subcarrier, shared by the Z80 and the
// VDP.
package clocks

import (
	"fmt"
	"math/bits"
)

// MasterClockHz is the frequency of the MSX master clock: one T-state is
// one tick at this frequency.
const MasterClockHz = 3579545

// EmuTime is an immutable, totally ordered timestamp measured in master
// clock ticks since power-up. The zero value equals Zero.
type EmuTime struct {
	ticks uint64
}

// Zero is the system epoch (power-up).
var Zero = EmuTime{ticks: 0}

// Infinity compares greater than any finite EmuTime. Used as a sentinel for
// "never fires".
var Infinity = EmuTime{ticks: ^uint64(0)}

// Dummy is a placeholder EmuTime for call sites that need a value but whose
// actual time does not matter (e.g. constructing a device before it is
// plumbed into a running MotherBoard). It must never be compared against a
// real EmuTime for scheduling decisions.
var Dummy = EmuTime{ticks: 0}

// Add returns t + d.
func (t EmuTime) Add(d EmuDuration) EmuTime {
	return EmuTime{ticks: t.ticks + d.ticks}
}

// Sub returns t - u as an EmuDuration. Panics if u is later than t - the
// duration between two times is, by construction, never meant to be
// negative; callers unsure of ordering should compare first.
func (t EmuTime) Sub(u EmuTime) EmuDuration {
	if u.ticks > t.ticks {
		panic("clocks: EmuTime.Sub: argument is later than receiver")
	}
	return EmuDuration{ticks: t.ticks - u.ticks}
}

// SaturateSubtract returns max(Zero, t-d).
func (t EmuTime) SaturateSubtract(d EmuDuration) EmuTime {
	if d.ticks >= t.ticks {
		return Zero
	}
	return EmuTime{ticks: t.ticks - d.ticks}
}

// Before reports whether t comes strictly before u.
func (t EmuTime) Before(u EmuTime) bool { return t.ticks < u.ticks }

// After reports whether t comes strictly after u.
func (t EmuTime) After(u EmuTime) bool { return t.ticks > u.ticks }

// Equal reports whether t and u represent the same instant.
func (t EmuTime) Equal(u EmuTime) bool { return t.ticks == u.ticks }

// Compare returns -1, 0 or +1 as t is before, equal to, or after u.
func (t EmuTime) Compare(u EmuTime) int {
	switch {
	case t.ticks < u.ticks:
		return -1
	case t.ticks > u.ticks:
		return 1
	default:
		return 0
	}
}

// Ticks returns the raw master-clock tick count. Exported for
// serialization; not meant for arithmetic by callers outside this package.
func (t EmuTime) Ticks() uint64 { return t.ticks }

// EmuTimeFromTicks reconstructs an EmuTime from a raw master-clock tick
// count, for use by the serialization substrate.
func EmuTimeFromTicks(ticks uint64) EmuTime { return EmuTime{ticks: ticks} }

func (t EmuTime) String() string {
	return fmt.Sprintf("%s since power-up", NewEmuDurationTicks(t.ticks))
}

// EmuDuration is an immutable span of master clock ticks.
type EmuDuration struct {
	ticks uint64
}

// NewEmuDurationSec constructs a duration from a number of seconds.
func NewEmuDurationSec(seconds float64) EmuDuration {
	if seconds < 0 {
		seconds = 0
	}
	return EmuDuration{ticks: uint64(seconds*MasterClockHz + 0.5)}
}

// NewEmuDurationMillis constructs a duration from a number of milliseconds.
func NewEmuDurationMillis(ms int64) EmuDuration {
	if ms < 0 {
		ms = 0
	}
	return EmuDuration{ticks: uint64(ms) * MasterClockHz / 1000}
}

// NewEmuDurationTicks constructs a duration directly from master-clock
// ticks.
func NewEmuDurationTicks(ticks uint64) EmuDuration {
	return EmuDuration{ticks: ticks}
}

// Ticks returns the raw master-clock tick count.
func (d EmuDuration) Ticks() uint64 { return d.ticks }

// Mul returns d scaled by a non-negative integer factor.
func (d EmuDuration) Mul(factor uint64) EmuDuration {
	return EmuDuration{ticks: d.ticks * factor}
}

// Add returns d + e.
func (d EmuDuration) Add(e EmuDuration) EmuDuration {
	return EmuDuration{ticks: d.ticks + e.ticks}
}

// Sub returns d - e, saturating at zero.
func (d EmuDuration) Sub(e EmuDuration) EmuDuration {
	if e.ticks >= d.ticks {
		return EmuDuration{}
	}
	return EmuDuration{ticks: d.ticks - e.ticks}
}

// Div returns d / e as a floating point ratio.
func (d EmuDuration) Div(e EmuDuration) float64 {
	if e.ticks == 0 {
		return 0
	}
	return float64(d.ticks) / float64(e.ticks)
}

// Seconds converts the duration to seconds. Intended for UI/display
// boundaries only - never used internally for scheduling decisions.
func (d EmuDuration) Seconds() float64 {
	return float64(d.ticks) / MasterClockHz
}

func (d EmuDuration) String() string {
	return fmt.Sprintf("%gs", d.Seconds())
}

// Frequency is implemented by the zero-sized marker types that instantiate
// Clock[F]. Keeping the frequency as a type parameter (rather than a struct
// field) lets the compiler specialise Clock[F]'s hot-path arithmetic per
// frequency, mirroring a compile-time-fixed template parameter.
type Frequency interface {
	Hz() uint64
}

// HzMaster ticks at the master clock rate itself.
type HzMaster struct{}

func (HzMaster) Hz() uint64 { return MasterClockHz }

// HzE6Timer ticks at the TurboR E6 timer rate.
type HzE6Timer struct{}

func (HzE6Timer) Hz() uint64 { return 255681 }

// HzAudio44100 ticks at the default audio sample rate.
type HzAudio44100 struct{}

func (HzAudio44100) Hz() uint64 { return 44100 }

// HzCassette ticks at the TSX/TZX PCM sample rate.
type HzCassette struct{}

func (HzCassette) Hz() uint64 { return 58900 }

// HzSeconds ticks once per second; used by the ReverseManager for its
// one-second snapshot cadence.
type HzSeconds struct{}

func (HzSeconds) Hz() uint64 { return 1 }

// Clock is a strided, grid-aligned view onto EmuTime at a fixed frequency
// F. Advancing the clock always rounds down to the nearest grid point;
// GetTicksTill never rounds up. The frequency is fixed at compile time via
// the type parameter so period computation is not a runtime branch.
type Clock[F Frequency] struct {
	// gridTicks is the number of F-periods elapsed since EmuTime Zero, as
	// of the last Advance. Storing the grid-relative count (rather than
	// the EmuTime directly) means repeated Advance calls never accumulate
	// rounding error even when MasterClockHz is not an exact multiple of
	// F.Hz().
	gridTicks uint64
}

// NewClock creates a Clock aligned to the grid point at or before t.
func NewClock[F Frequency](t EmuTime) Clock[F] {
	var c Clock[F]
	c.Advance(t)
	return c
}

func (c Clock[F]) hz() uint64 {
	var f F
	return f.Hz()
}

// toGrid converts an absolute master-clock tick count to the number of
// whole F-periods that have elapsed, via a full 128-bit multiply+divide so
// that arbitrarily large tick counts never overflow.
func (c Clock[F]) toGrid(masterTicks uint64) uint64 {
	hi, lo := bits.Mul64(masterTicks, c.hz())
	q, _ := bits.Div64(hi, lo, MasterClockHz)
	return q
}

// fromGrid is the inverse of toGrid: the master-clock tick count of the
// start of F-period n, i.e. the first tick for which toGrid reports n.
func (c Clock[F]) fromGrid(n uint64) uint64 {
	hi, lo := bits.Mul64(n, MasterClockHz)
	q, r := bits.Div64(hi, lo, c.hz())
	if r != 0 {
		q++
	}
	return q
}

// Advance sets the clock's state to t rounded down to the F-grid. Two
// advances with the same t are idempotent. Invariant: state never moves
// backwards.
func (c *Clock[F]) Advance(t EmuTime) {
	g := c.toGrid(t.Ticks())
	if g < c.gridTicks {
		return
	}
	c.gridTicks = g
}

// AddTicks advances the clock by exactly n ticks of its own frequency F.
func (c *Clock[F]) AddTicks(n uint64) {
	c.gridTicks += n
}

// Time returns the EmuTime of the clock's current grid point.
func (c Clock[F]) Time() EmuTime {
	return EmuTime{ticks: c.fromGrid(c.gridTicks)}
}

// GetTicksTill returns the number of whole F-ticks in [state, t). Never
// rounds up: if t falls strictly between two grid points the partial tick
// is dropped.
func (c Clock[F]) GetTicksTill(t EmuTime) uint64 {
	g := c.toGrid(t.Ticks())
	if g <= c.gridTicks {
		return 0
	}
	return g - c.gridTicks
}

// GridTicks returns the raw elapsed-period count, for serialization.
func (c Clock[F]) GridTicks() uint64 { return c.gridTicks }

// SetGridTicks restores a clock's state from a serialized elapsed-period
// count.
func (c *Clock[F]) SetGridTicks(n uint64) { c.gridTicks = n }
