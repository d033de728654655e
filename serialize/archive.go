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

// Package serialize is the savestate/replay substrate: every stateful
// component walks its own fields through an Archive, the same walk serving
// both directions (save and load) and both concrete forms (a compact binary
// Mem archive for snapshots taken every second by the ReverseManager, and a
// self-describing XML archive for on-disk savestates).
//
// The walk is written once per type, by hand, the same way openMSX's C++
// `serialize(Archive&, unsigned version)` template method is written once
// and instantiated for both its binary and XML archive classes - there is no
// reflection-driven automatic marshalling here, deliberately: a field that
// is renamed or reordered in memory must not silently change what gets
// written to disk.
package serialize

import "fmt"

// Serializable is implemented by anything that can walk its own state
// through an Archive. CurrentVersion reports the version the type's
// Serialize method currently produces; it is consulted on save, and
// compared against the version recorded in the stream on load so Serialize
// can branch on Archive.VersionAtLeast.
type Serializable interface {
	Serialize(ar Archive) error
	CurrentVersion() int
}

// EnumTable maps an enum's small-int values to stable names, used by the XML
// archive (which writes the name) and by version migration (which may need
// to look a name up by value or vice versa).
type EnumTable map[int]string

func (t EnumTable) nameOf(v int) (string, error) {
	if name, ok := t[v]; ok {
		return name, nil
	}
	return "", fmt.Errorf("serialize: no name registered for enum value %d", v)
}

func (t EnumTable) valueOf(name string) (int, error) {
	for v, n := range t {
		if n == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("serialize: no enum value registered for name %q", name)
}

// Archive is implemented by MemArchive and XMLArchive. Every method is
// named after what it serializes, not after the direction, so a
// Serializable's Serialize method reads identically whether it is being
// saved or loaded.
type Archive interface {
	// IsOutput reports whether the archive is being written to (true) or
	// read from (false).
	IsOutput() bool

	// TypeVersion returns the version number recorded for typeName in the
	// stream being read. On an output archive it always returns the version
	// most recently passed to BeginType.
	TypeVersion(typeName string) int

	// BeginType must be called once, before any field of an instance of
	// typeName is serialized, so the archive can record (on output) or
	// recall (on input) that type's version. currentVersion is ignored on
	// input.
	BeginType(typeName string, currentVersion int) error

	// Bool, Int8..Uint64, String and Bytes serialize a single named
	// primitive field in place.
	Bool(name string, v *bool) error
	Int8(name string, v *int8) error
	Uint8(name string, v *uint8) error
	Int16(name string, v *int16) error
	Uint16(name string, v *uint16) error
	Int32(name string, v *int32) error
	Uint32(name string, v *uint32) error
	Int64(name string, v *int64) error
	Uint64(name string, v *uint64) error
	String(name string, v *string) error
	// Bytes serializes a blob: raw in the Mem archive, hex-encoded in XML.
	Bytes(name string, v *[]byte) error

	// Enum serializes *v against table: a small int in the Mem archive, the
	// matching name as a string in XML.
	Enum(name string, v *int, table EnumTable) error

	// Object serializes a nested value in place, with no identity tracking
	// - every Object call writes/reads a fresh, independent copy.
	Object(name string, v Serializable) error

	// Ref serializes *target by pointer identity: repeated references to
	// the same object (including cycles) collapse to a single stored copy
	// plus a back-reference. target must point at a Serializable-typed
	// variable; construct is called only while loading, the first time a
	// given identity is encountered, to obtain a zero value to populate. A
	// nil *target serializes as "no object".
	Ref(name string, target *Serializable, construct func() Serializable) error

	// Len begins a length-prefixed collection. On output n must already
	// hold the element count; on input it is filled in from the stream.
	Len(name string, n *int) error
}

// SerializeSlice walks a slice of Serializable elements, using construct to
// allocate each element while loading (elem is already the freshly
// allocated value on output, so construct is not consulted there).
func SerializeSlice[T Serializable](ar Archive, name string, slice *[]T, construct func() T) error {
	n := len(*slice)
	if err := ar.Len(name, &n); err != nil {
		return err
	}
	if !ar.IsOutput() {
		*slice = make([]T, n)
		for i := range *slice {
			(*slice)[i] = construct()
		}
	}
	for i := range *slice {
		if err := ar.Object(fmt.Sprintf("%s[%d]", name, i), (*slice)[i]); err != nil {
			return err
		}
	}
	return nil
}
