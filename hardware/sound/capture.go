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

package sound

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/openmsx-go/core/hardware/clocks"
)

var sampleRateHz = int(clocks.HzAudio44100{}.Hz())

// WAVCapture writes whatever a Mixer.Pull produces to a standard PCM WAV
// file, for dumping the mixed audio to disk.
type WAVCapture struct {
	enc *wav.Encoder
}

// NewWAVCapture wraps w in a mono, 16-bit, 44100Hz WAV encoder.
func NewWAVCapture(w io.WriteSeeker) *WAVCapture {
	return &WAVCapture{enc: wav.NewEncoder(w, sampleRateHz, 16, 1, 1)}
}

// Write appends samples as a single chunk to the WAV file.
func (c *WAVCapture) Write(samples []int16) error {
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRateHz},
		Data:           data,
		SourceBitDepth: 16,
	}
	return c.enc.Write(buf)
}

// Close flushes the WAV header/footer. Must be called exactly once, after
// the last Write.
func (c *WAVCapture) Close() error {
	return c.enc.Close()
}
