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
	"encoding/binary"

	"github.com/openmsx-go/core/emuerr"
)

// MemArchive is the compact binary form used for the ReverseManager's
// periodic in-memory snapshots: field names are not written, only values, in
// exactly the order Serialize methods call them in. It is symmetric - the
// same MemArchive value, constructed in input or output mode, drives both
// directions of a given type's Serialize method.
type MemArchive struct {
	output bool
	buf    *bytes.Buffer // nil on input

	// versions maps typeName -> the version written (output) or read
	// (input) by the most recent BeginType call for that type.
	versions map[string]int

	// refs maps a Serializable identity to the id assigned to it, on
	// output; and an id to the already-constructed object, on input.
	nextRefID int
	refIDs    map[Serializable]int
	refObjs   map[int]Serializable
}

// NewMemOutputArchive creates a MemArchive that accumulates a byte stream.
func NewMemOutputArchive() *MemArchive {
	return &MemArchive{
		output:   true,
		buf:      &bytes.Buffer{},
		versions: make(map[string]int),
		refIDs:   make(map[Serializable]int),
	}
}

// Bytes returns the accumulated output. Valid only on an output archive.
func (a *MemArchive) Bytes() []byte {
	return a.buf.Bytes()
}

// NewMemInputArchive creates a MemArchive that reads back a stream produced
// by NewMemOutputArchive.
func NewMemInputArchive(data []byte) *MemArchive {
	return &MemArchive{
		output:   false,
		buf:      bytes.NewBuffer(data),
		versions: make(map[string]int),
		refObjs:  make(map[int]Serializable),
	}
}

func (a *MemArchive) IsOutput() bool { return a.output }

func (a *MemArchive) TypeVersion(typeName string) int { return a.versions[typeName] }

func (a *MemArchive) BeginType(typeName string, currentVersion int) error {
	if a.output {
		if err := a.Uint32("", ptr32(uint32(currentVersion))); err != nil {
			return err
		}
		a.versions[typeName] = currentVersion
		return nil
	}
	var v uint32
	if err := a.Uint32("", &v); err != nil {
		return err
	}
	a.versions[typeName] = int(v)
	return nil
}

func ptr32(v uint32) *uint32 { return &v }

func (a *MemArchive) Bool(_ string, v *bool) error {
	var b uint8
	if a.output {
		if *v {
			b = 1
		}
		return a.writeByte(b)
	}
	bb, err := a.readByte()
	if err != nil {
		return err
	}
	*v = bb != 0
	return nil
}

func (a *MemArchive) Int8(_ string, v *int8) error {
	if a.output {
		return a.writeByte(uint8(*v))
	}
	b, err := a.readByte()
	*v = int8(b)
	return err
}

func (a *MemArchive) Uint8(_ string, v *uint8) error {
	if a.output {
		return a.writeByte(*v)
	}
	b, err := a.readByte()
	*v = b
	return err
}

func (a *MemArchive) Int16(name string, v *int16) error {
	return a.fixed(name, 2, a.output, func(b []byte) {
		binary.LittleEndian.PutUint16(b, uint16(*v))
	}, func(b []byte) {
		*v = int16(binary.LittleEndian.Uint16(b))
	})
}

func (a *MemArchive) Uint16(name string, v *uint16) error {
	return a.fixed(name, 2, a.output, func(b []byte) {
		binary.LittleEndian.PutUint16(b, *v)
	}, func(b []byte) {
		*v = binary.LittleEndian.Uint16(b)
	})
}

func (a *MemArchive) Int32(name string, v *int32) error {
	return a.fixed(name, 4, a.output, func(b []byte) {
		binary.LittleEndian.PutUint32(b, uint32(*v))
	}, func(b []byte) {
		*v = int32(binary.LittleEndian.Uint32(b))
	})
}

func (a *MemArchive) Uint32(name string, v *uint32) error {
	return a.fixed(name, 4, a.output, func(b []byte) {
		binary.LittleEndian.PutUint32(b, *v)
	}, func(b []byte) {
		*v = binary.LittleEndian.Uint32(b)
	})
}

func (a *MemArchive) Int64(name string, v *int64) error {
	return a.fixed(name, 8, a.output, func(b []byte) {
		binary.LittleEndian.PutUint64(b, uint64(*v))
	}, func(b []byte) {
		*v = int64(binary.LittleEndian.Uint64(b))
	})
}

func (a *MemArchive) Uint64(name string, v *uint64) error {
	return a.fixed(name, 8, a.output, func(b []byte) {
		binary.LittleEndian.PutUint64(b, *v)
	}, func(b []byte) {
		*v = binary.LittleEndian.Uint64(b)
	})
}

func (a *MemArchive) String(_ string, v *string) error {
	if a.output {
		n := uint32(len(*v))
		if err := a.Uint32("", &n); err != nil {
			return err
		}
		a.buf.WriteString(*v)
		return nil
	}
	var n uint32
	if err := a.Uint32("", &n); err != nil {
		return err
	}
	b := make([]byte, n)
	if _, err := a.buf.Read(b); err != nil {
		return emuerr.SerializationError("truncated string field: %v", err)
	}
	*v = string(b)
	return nil
}

func (a *MemArchive) Bytes(_ string, v *[]byte) error {
	if a.output {
		n := uint32(len(*v))
		if err := a.Uint32("", &n); err != nil {
			return err
		}
		a.buf.Write(*v)
		return nil
	}
	var n uint32
	if err := a.Uint32("", &n); err != nil {
		return err
	}
	b := make([]byte, n)
	if _, err := a.buf.Read(b); err != nil {
		return emuerr.SerializationError("truncated blob field: %v", err)
	}
	*v = b
	return nil
}

func (a *MemArchive) Enum(_ string, v *int, table EnumTable) error {
	if a.output {
		if _, err := table.nameOf(*v); err != nil {
			return err
		}
		u := uint32(*v)
		return a.Uint32("", &u)
	}
	var u uint32
	if err := a.Uint32("", &u); err != nil {
		return err
	}
	if _, err := table.nameOf(int(u)); err != nil {
		return err
	}
	*v = int(u)
	return nil
}

func (a *MemArchive) Object(_ string, v Serializable) error {
	return v.Serialize(a)
}

func (a *MemArchive) Ref(_ string, target *Serializable, construct func() Serializable) error {
	if a.output {
		if *target == nil {
			var zero uint32
			return a.Uint32("", &zero)
		}
		id, seen := a.refIDs[*target]
		if !seen {
			a.nextRefID++
			id = a.nextRefID
			a.refIDs[*target] = id
		}
		u := uint32(id)
		if err := a.Uint32("", &u); err != nil {
			return err
		}
		if !seen {
			return (*target).Serialize(a)
		}
		return nil
	}

	var u uint32
	if err := a.Uint32("", &u); err != nil {
		return err
	}
	if u == 0 {
		*target = nil
		return nil
	}
	id := int(u)
	if obj, ok := a.refObjs[id]; ok {
		*target = obj
		return nil
	}
	obj := construct()
	a.refObjs[id] = obj
	*target = obj
	return obj.Serialize(a)
}

func (a *MemArchive) Len(_ string, n *int) error {
	if a.output {
		u := uint32(*n)
		return a.Uint32("", &u)
	}
	var u uint32
	if err := a.Uint32("", &u); err != nil {
		return err
	}
	*n = int(u)
	return nil
}

func (a *MemArchive) writeByte(b uint8) error {
	a.buf.WriteByte(b)
	return nil
}

func (a *MemArchive) readByte() (uint8, error) {
	b, err := a.buf.ReadByte()
	if err != nil {
		return 0, emuerr.SerializationError("truncated stream: %v", err)
	}
	return b, nil
}

func (a *MemArchive) fixed(_ string, size int, output bool, encode func([]byte), decode func([]byte)) error {
	if output {
		b := make([]byte, size)
		encode(b)
		a.buf.Write(b)
		return nil
	}
	b := make([]byte, size)
	if _, err := a.buf.Read(b); err != nil {
		return emuerr.SerializationError("truncated fixed-width field: %v", err)
	}
	decode(b)
	return nil
}

var _ Archive = (*MemArchive)(nil)
