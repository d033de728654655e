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
	"encoding/hex"
	"encoding/xml"
	"strconv"

	"github.com/openmsx-go/core/emuerr"
)

// xmlNode is a minimal, dynamically-tagged element tree. Tag names are a
// fixed small vocabulary (archive/t/o/r/f) rather than the field name
// itself, since field names (e.g. "events[3]") are not always valid XML
// identifiers; the field name instead travels as the "name" attribute, which
// Archive methods cross-check on load.
type xmlNode struct {
	tag       string
	attrs     map[string]string
	text      string
	children  []*xmlNode
	nextChild int
}

func newNode(tag string, attrs map[string]string) *xmlNode {
	return &xmlNode{tag: tag, attrs: attrs}
}

// XMLArchive is the self-describing savestate form: every field is tagged
// with its name and, for object/ref boundaries, its type and version, so a
// human (or a migration routine) can read the file without the code that
// produced it.
type XMLArchive struct {
	output   bool
	stack    []*xmlNode
	versions map[string]int
	refIDs   map[Serializable]int
	refObjs  map[int]Serializable
	nextRef  int
}

// NewXMLOutputArchive creates an XMLArchive that builds a document in
// memory; call Bytes after driving a Serializable through it.
func NewXMLOutputArchive() *XMLArchive {
	root := newNode("archive", nil)
	return &XMLArchive{
		output:   true,
		stack:    []*xmlNode{root},
		versions: make(map[string]int),
		refIDs:   make(map[Serializable]int),
	}
}

// Bytes renders the document built so far as indented XML.
func (a *XMLArchive) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := writeNode(enc, a.stack[0]); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewXMLInputArchive parses a document produced by an XMLArchive in output
// mode.
func NewXMLInputArchive(data []byte) (*XMLArchive, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	root, err := readNode(dec)
	if err != nil {
		return nil, emuerr.SerializationError("malformed XML savestate: %v", err)
	}
	return &XMLArchive{
		output:   false,
		stack:    []*xmlNode{root},
		versions: make(map[string]int),
		refObjs:  make(map[int]Serializable),
	}, nil
}

func (a *XMLArchive) current() *xmlNode { return a.stack[len(a.stack)-1] }

func (a *XMLArchive) pushOutput(tag string, attrs map[string]string) *xmlNode {
	n := newNode(tag, attrs)
	cur := a.current()
	cur.children = append(cur.children, n)
	a.stack = append(a.stack, n)
	return n
}

func (a *XMLArchive) consumeChild(tag, name string) (*xmlNode, error) {
	cur := a.current()
	if cur.nextChild >= len(cur.children) {
		return nil, emuerr.SerializationError("expected field %q, found end of element", name)
	}
	n := cur.children[cur.nextChild]
	cur.nextChild++
	if n.tag != tag {
		return nil, emuerr.SerializationError("expected <%s> for field %q, found <%s>", tag, name, n.tag)
	}
	if n.attrs["name"] != "" && n.attrs["name"] != name {
		return nil, emuerr.SerializationError("expected field %q, found %q", name, n.attrs["name"])
	}
	return n, nil
}

func (a *XMLArchive) pop() { a.stack = a.stack[:len(a.stack)-1] }

func (a *XMLArchive) IsOutput() bool { return a.output }

func (a *XMLArchive) TypeVersion(typeName string) int { return a.versions[typeName] }

func (a *XMLArchive) BeginType(typeName string, currentVersion int) error {
	if a.output {
		a.pushOutput("t", map[string]string{"type": typeName, "version": strconv.Itoa(currentVersion)})
		a.versions[typeName] = currentVersion
		return nil
	}
	n, err := a.consumeChild("t", typeName)
	if err != nil {
		return err
	}
	if n.attrs["type"] != typeName {
		return emuerr.SerializationError("expected type %q, found %q", typeName, n.attrs["type"])
	}
	v, err := strconv.Atoi(n.attrs["version"])
	if err != nil {
		return emuerr.SerializationError("malformed version attribute for type %q: %v", typeName, err)
	}
	a.versions[typeName] = v
	a.stack = append(a.stack, n)
	return nil
}

func (a *XMLArchive) leafOut(name, text string) {
	a.pushOutput("f", map[string]string{"name": name})
	a.current().text = text
	a.pop()
}

func (a *XMLArchive) leafIn(name string) (string, error) {
	n, err := a.consumeChild("f", name)
	if err != nil {
		return "", err
	}
	return n.text, nil
}

func (a *XMLArchive) Bool(name string, v *bool) error {
	if a.output {
		a.leafOut(name, strconv.FormatBool(*v))
		return nil
	}
	s, err := a.leafIn(name)
	if err != nil {
		return err
	}
	*v, err = strconv.ParseBool(s)
	return err
}

func (a *XMLArchive) Int8(name string, v *int8) error {
	return a.intField(name, 8, true, func(n int64) { *v = int8(n) }, func() int64 { return int64(*v) })
}
func (a *XMLArchive) Uint8(name string, v *uint8) error {
	return a.uintField(name, func(n uint64) { *v = uint8(n) }, func() uint64 { return uint64(*v) })
}
func (a *XMLArchive) Int16(name string, v *int16) error {
	return a.intField(name, 16, true, func(n int64) { *v = int16(n) }, func() int64 { return int64(*v) })
}
func (a *XMLArchive) Uint16(name string, v *uint16) error {
	return a.uintField(name, func(n uint64) { *v = uint16(n) }, func() uint64 { return uint64(*v) })
}
func (a *XMLArchive) Int32(name string, v *int32) error {
	return a.intField(name, 32, true, func(n int64) { *v = int32(n) }, func() int64 { return int64(*v) })
}
func (a *XMLArchive) Uint32(name string, v *uint32) error {
	return a.uintField(name, func(n uint64) { *v = uint32(n) }, func() uint64 { return uint64(*v) })
}
func (a *XMLArchive) Int64(name string, v *int64) error {
	return a.intField(name, 64, true, func(n int64) { *v = n }, func() int64 { return *v })
}
func (a *XMLArchive) Uint64(name string, v *uint64) error {
	return a.uintField(name, func(n uint64) { *v = n }, func() uint64 { return *v })
}

func (a *XMLArchive) intField(name string, _ int, _ bool, set func(int64), get func() int64) error {
	if a.output {
		a.leafOut(name, strconv.FormatInt(get(), 10))
		return nil
	}
	s, err := a.leafIn(name)
	if err != nil {
		return err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return emuerr.SerializationError("field %q: %v", name, err)
	}
	set(n)
	return nil
}

func (a *XMLArchive) uintField(name string, set func(uint64), get func() uint64) error {
	if a.output {
		a.leafOut(name, strconv.FormatUint(get(), 10))
		return nil
	}
	s, err := a.leafIn(name)
	if err != nil {
		return err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return emuerr.SerializationError("field %q: %v", name, err)
	}
	set(n)
	return nil
}

func (a *XMLArchive) String(name string, v *string) error {
	if a.output {
		a.leafOut(name, *v)
		return nil
	}
	s, err := a.leafIn(name)
	if err != nil {
		return err
	}
	*v = s
	return nil
}

func (a *XMLArchive) Bytes(name string, v *[]byte) error {
	if a.output {
		a.leafOut(name, hex.EncodeToString(*v))
		return nil
	}
	s, err := a.leafIn(name)
	if err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return emuerr.SerializationError("field %q: malformed hex blob: %v", name, err)
	}
	*v = b
	return nil
}

func (a *XMLArchive) Enum(name string, v *int, table EnumTable) error {
	if a.output {
		n, err := table.nameOf(*v)
		if err != nil {
			return err
		}
		a.leafOut(name, n)
		return nil
	}
	s, err := a.leafIn(name)
	if err != nil {
		return err
	}
	n, err := table.valueOf(s)
	if err != nil {
		return emuerr.SerializationError("field %q: %v", name, err)
	}
	*v = n
	return nil
}

func (a *XMLArchive) Object(name string, v Serializable) error {
	if a.output {
		a.pushOutput("o", map[string]string{"name": name})
		if err := v.Serialize(a); err != nil {
			return err
		}
		a.pop() // the "t" element BeginType pushed
		a.pop() // the "o" wrapper
		return nil
	}
	n, err := a.consumeChild("o", name)
	if err != nil {
		return err
	}
	a.stack = append(a.stack, n)
	if err := v.Serialize(a); err != nil {
		return err
	}
	a.pop() // "t"
	a.pop() // "o"
	return nil
}

func (a *XMLArchive) Ref(name string, target *Serializable, construct func() Serializable) error {
	if a.output {
		if *target == nil {
			a.pushOutput("r", map[string]string{"name": name, "id": "0"})
			a.pop()
			return nil
		}
		id, seen := a.refIDs[*target]
		if !seen {
			a.nextRef++
			id = a.nextRef
			a.refIDs[*target] = id
		}
		a.pushOutput("r", map[string]string{"name": name, "id": strconv.Itoa(id)})
		if !seen {
			if err := (*target).Serialize(a); err != nil {
				return err
			}
			a.pop() // "t"
		}
		a.pop() // "r"
		return nil
	}

	n, err := a.consumeChild("r", name)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(n.attrs["id"])
	if err != nil {
		return emuerr.SerializationError("field %q: malformed ref id: %v", name, err)
	}
	if id == 0 {
		*target = nil
		return nil
	}
	if obj, ok := a.refObjs[id]; ok {
		*target = obj
		return nil
	}
	obj := construct()
	a.refObjs[id] = obj
	a.stack = append(a.stack, n)
	if err := obj.Serialize(a); err != nil {
		return err
	}
	a.pop() // "t"
	a.pop() // "r"
	*target = obj
	return nil
}

func (a *XMLArchive) Len(name string, n *int) error {
	if a.output {
		a.leafOut(name, strconv.Itoa(*n))
		return nil
	}
	s, err := a.leafIn(name)
	if err != nil {
		return err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return emuerr.SerializationError("field %q: %v", name, err)
	}
	*n = v
	return nil
}

var _ Archive = (*XMLArchive)(nil)

func writeNode(enc *xml.Encoder, n *xmlNode) error {
	start := xml.StartElement{Name: xml.Name{Local: n.tag}}
	for k, v := range n.attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: k}, Value: v})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.text != "" {
		if err := enc.EncodeToken(xml.CharData(n.text)); err != nil {
			return err
		}
	}
	for _, c := range n.children {
		if err := writeNode(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: start.Name})
}

func readNode(dec *xml.Decoder) (*xmlNode, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		return readNodeBody(dec, start)
	}
}

func readNodeBody(dec *xml.Decoder, start xml.StartElement) (*xmlNode, error) {
	n := newNode(start.Name.Local, map[string]string{})
	for _, attr := range start.Attr {
		n.attrs[attr.Name.Local] = attr.Value
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := readNodeBody(dec, t)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
		case xml.CharData:
			n.text += string(t)
		case xml.EndElement:
			return n, nil
		}
	}
}

