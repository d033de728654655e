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

// Package sound is the pull-based audio mixing contract: rather than every
// sound chip (PSG, SCC, ...) pushing samples as it generates them, the
// Mixer asks each one to fill a buffer up to a given EmuTime only when an
// output sink (a WAV capture, an audio callback) actually needs more data.
// This keeps sound generation perfectly in step with the rest of the
// emulation even when running faster or slower than real time.
package sound

import (
	"math"
	"os"

	"github.com/openmsx-go/core/hardware/clocks"
)

// Device is implemented by anything that contributes mono PCM samples to
// the mix - a PSG channel, the cassette input monitor, ...
type Device interface {
	Name() string
	// GenerateSamples fills buf with exactly len(buf) samples of output
	// ending at until. Implementations must be able to answer for any
	// until, including one earlier than their last call, since a rewind can
	// ask for the same stretch of time twice.
	GenerateSamples(buf []int16, until clocks.EmuTime)
}

// Mixer sums every registered Device's output into a single mono stream at
// HzAudio44100.
type Mixer struct {
	clk     clocks.Clock[clocks.HzAudio44100]
	devices []Device
}

// NewMixer creates a Mixer whose clock starts at t.
func NewMixer(t clocks.EmuTime) *Mixer {
	return &Mixer{clk: clocks.NewClock[clocks.HzAudio44100](t)}
}

// AddDevice registers d as a contributor to the mix.
func (m *Mixer) AddDevice(d Device) {
	m.devices = append(m.devices, d)
}

// Pull advances the mixer's clock to until and returns the samples
// generated in between, already summed and clipped. Returns nil if until
// does not reach the next sample boundary.
func (m *Mixer) Pull(until clocks.EmuTime) []int16 {
	n := int(m.clk.GetTicksTill(until))
	if n == 0 {
		return nil
	}
	mix := make([]int16, n)
	scratch := make([]int16, n)
	for _, d := range m.devices {
		d.GenerateSamples(scratch, until)
		for i, s := range scratch {
			mix[i] = clampInt16(int32(mix[i]) + int32(s))
		}
	}
	m.clk.AddTicks(uint64(n))
	return mix
}

// CaptureWAV pulls the mix from the Mixer's current position up to until
// and writes it to path as a 16-bit mono WAV file via WAVCapture - the only
// practical way to inspect a SoundDevice's output without a running
// machine's audio sink attached.
func (m *Mixer) CaptureWAV(path string, until clocks.EmuTime) error {
	samples := m.Pull(until)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	capture := NewWAVCapture(f)
	if err := capture.Write(samples); err != nil {
		return err
	}
	return capture.Close()
}

func clampInt16(v int32) int16 {
	const max = math.MaxInt16
	const min = math.MinInt16
	switch {
	case v > max:
		return max
	case v < min:
		return min
	default:
		return int16(v)
	}
}
