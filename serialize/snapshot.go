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

package serialize

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/openmsx-go/core/crunched"
	"github.com/openmsx-go/core/emuerr"
)

// VersionAtLeast is the inline check a Serialize method makes, right after
// BeginType, to decide whether an old-format field is present in the stream
// being read: `if serialize.VersionAtLeast(ar, "Keyboard", 2) { ... }`. On an
// output archive it always reports true, since output always writes the
// current version.
func VersionAtLeast(ar Archive, typeName string, min int) bool {
	if ar.IsOutput() {
		return true
	}
	return ar.TypeVersion(typeName) >= min
}

// SaveSnapshot serializes obj to the compact Mem form and hands the result
// to crunched's run-length compressor - this is what the ReverseManager
// calls once a second to take a rewind point; crunched's RLE does
// particularly well on emulated RAM/VRAM, which is mostly runs of zero or of
// a repeated fill pattern.
func SaveSnapshot(obj Serializable) crunched.Data {
	ar := NewMemOutputArchive()
	if err := obj.Serialize(ar); err != nil {
		// a snapshot of state that was itself constructed by a prior,
		// successful Serialize call should never fail to walk again - if it
		// does, the in-memory state is already inconsistent.
		emuerr.PanicStateInconsistency("serialize: snapshot of live state failed: " + err.Error())
	}
	raw := ar.Bytes()
	d := crunched.NewQuick(len(raw))
	copy(*d.Data(), raw)
	return d.Snapshot()
}

// LoadSnapshot is the inverse of SaveSnapshot: construct allocates the root
// object, whose Serialize method then repopulates it from data.
func LoadSnapshot(data crunched.Data, construct func() Serializable) (Serializable, error) {
	raw := *data.Data()
	ar := NewMemInputArchive(raw)
	obj := construct()
	if err := obj.Serialize(ar); err != nil {
		return nil, err
	}
	return obj, nil
}

// SaveStateFile serializes obj to the self-describing XML form and
// gzip-compresses it, ready to write to a .oms savestate file.
func SaveStateFile(obj Serializable) ([]byte, error) {
	ar := NewXMLOutputArchive()
	if err := obj.Serialize(ar); err != nil {
		return nil, err
	}
	raw, err := ar.Bytes()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadStateFile is the inverse of SaveStateFile.
func LoadStateFile(data []byte, construct func() Serializable) (Serializable, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, emuerr.SerializationError("not a valid savestate file: %v", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, emuerr.SerializationError("truncated savestate file: %v", err)
	}

	ar, err := NewXMLInputArchive(raw)
	if err != nil {
		return nil, err
	}
	obj := construct()
	if err := obj.Serialize(ar); err != nil {
		return nil, err
	}
	return obj, nil
}
