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

// Package bus defines the DeviceBus concept: the single point through which
// the CPU, and every chip that shares the address space with it, accesses
// memory and I/O. MemoryBus maps the 64K address space through the four
// primary slots (each optionally expanded into four secondary slots) down to
// the device that currently answers for a given address; IOBus maps the
// 256-entry port space, where MSX convention lets more than one device
// listen on the same port (reads AND-combine, writes broadcast).
package bus

import (
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/device"
)

// CPUBus is the interface the Z80 core (an external collaborator) drives:
// every memory access in the system goes through exactly these three calls.
type CPUBus interface {
	Read(addr uint16, t clocks.EmuTime) uint8
	Write(addr uint16, data uint8, t clocks.EmuTime)
	Peek(addr uint16) uint8
}

// DebuggerBus exposes the same address space without the side effects a
// live Read/Write can have (bank switches, PPI strobe toggles, ...) - used
// by tooling that wants to inspect memory without perturbing it.
type DebuggerBus interface {
	Peek(addr uint16) uint8
	Poke(addr uint16, value uint8)
}

const pageSize = 0x4000 // MSX pages are 16K; four pages span the 64K address space
const numPages = 4
const numPrimarySlots = 4
const numSecondarySlots = 4

// slotKey identifies one of the up-to-16 (primary, secondary) slot pairs a
// page can be switched to. Secondary is -1 for a primary slot that was never
// expanded.
type slotKey struct {
	primary   int
	secondary int
}

// MemoryBus is the DeviceBus's memory half: a 4x4 grid of slots, each
// holding up to four page-mapped devices, plus the expansion-register and
// primary-slot-select state that decides which (primary, secondary, page)
// triple backs each of the four live pages right now.
//
// Invariant (spec.md §4.4): for any address, exactly one device answers a
// read or a write - MemoryBus.device always resolves to a single slot, never
// zero or several, since an unmapped page falls back to the bus's own
// "unmapped" device.
type MemoryBus struct {
	// devices[primary][secondary][page] is nil if nothing is mapped there.
	// secondary index 0 is used directly for primary slots that are not
	// expanded.
	devices [numPrimarySlots][numSecondarySlots][numPages]device.MSXDevice

	// expanded[primary] reports whether that primary slot has secondary
	// slot switching enabled (port 0xA8 bit layout mirrored into address
	// 0xFFFF of an expanded slot).
	expanded [numPrimarySlots]bool

	// primarySelect is the last byte written to port 0xA8: two bits per
	// page, selecting that page's current primary slot.
	primarySelect uint8

	// secondarySelect[primary] is the last byte written to the expansion
	// register of that primary slot (address 0xFFFF when mapped into the
	// active page), valid only if expanded[primary].
	secondarySelect [numPrimarySlots]uint8

	unmapped device.MSXDevice
}

// NewMemoryBus creates an empty MemoryBus; every address reads as
// device.UnmappedValue until MapDevice is called.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{unmapped: unmappedDevice{}}
}

type unmappedDevice struct{ device.Unmapped }

func (unmappedDevice) Name() string { return "unmapped" }

// MapDevice installs dev at every (primary, secondary, page) triple named
// by cfg. Secondary -1 means "this primary slot is not expanded"; mapping
// any device with Secondary >= 0 into a primary slot marks that slot
// expanded from then on.
func (b *MemoryBus) MapDevice(dev device.MSXDevice, cfg device.Config) {
	if cfg.Primary < 0 {
		return // I/O-only device, nothing to map into the address space
	}
	sec := cfg.Secondary
	if sec < 0 {
		sec = 0
	} else {
		b.expanded[cfg.Primary] = true
	}
	for _, page := range cfg.Pages {
		b.devices[cfg.Primary][sec][page] = dev
	}
}

// WriteSlotSelect handles a write to port 0xA8, switching which primary
// slot backs each of the four pages.
func (b *MemoryBus) WriteSlotSelect(value uint8) {
	b.primarySelect = value
}

// WriteExpansionRegister handles a write to address 0xFFFF when it falls in
// an expanded primary slot - MSX convention reuses the top memory address of
// an expanded slot as that slot's own secondary-slot select register.
func (b *MemoryBus) WriteExpansionRegister(primary int, value uint8) {
	b.secondarySelect[primary] = value
}

// ReadExpansionRegister returns the inverted bits of the slot's secondary
// select, per the expansion-register read-back convention (unset bits read
// as 1).
func (b *MemoryBus) ReadExpansionRegister(primary int) uint8 {
	return ^b.secondarySelect[primary]
}

const expansionRegisterAddr uint16 = 0xffff

// expansionPrimaryAt reports the primary slot whose expansion register
// address 0xFFFF currently addresses, if any - that one address takes
// priority over whatever device the page is otherwise mapped to.
func (b *MemoryBus) expansionPrimaryAt(addr uint16) (int, bool) {
	if addr != expansionRegisterAddr {
		return 0, false
	}
	page := int(addr / pageSize)
	primary := int((b.primarySelect >> (page * 2)) & 0x03)
	if !b.expanded[primary] {
		return 0, false
	}
	return primary, true
}

func (b *MemoryBus) resolve(addr uint16) (device.MSXDevice, uint16) {
	page := int(addr / pageSize)
	primary := int((b.primarySelect >> (page * 2)) & 0x03)
	secondary := 0
	if b.expanded[primary] {
		secondary = int((b.secondarySelect[primary] >> (page * 2)) & 0x03)
	}
	dev := b.devices[primary][secondary][page]
	if dev == nil {
		return b.unmapped, addr
	}
	return dev, addr
}

func (b *MemoryBus) Read(addr uint16, t clocks.EmuTime) uint8 {
	if primary, ok := b.expansionPrimaryAt(addr); ok {
		return b.ReadExpansionRegister(primary)
	}
	dev, a := b.resolve(addr)
	return dev.ReadMem(a, t)
}

func (b *MemoryBus) Write(addr uint16, data uint8, t clocks.EmuTime) {
	if primary, ok := b.expansionPrimaryAt(addr); ok {
		b.WriteExpansionRegister(primary, data)
		return
	}
	dev, a := b.resolve(addr)
	dev.WriteMem(a, data, t)
}

func (b *MemoryBus) Peek(addr uint16) uint8 {
	if primary, ok := b.expansionPrimaryAt(addr); ok {
		return b.ReadExpansionRegister(primary)
	}
	dev, a := b.resolve(addr)
	return dev.PeekMem(a)
}

func (b *MemoryBus) Poke(addr uint16, value uint8) {
	if primary, ok := b.expansionPrimaryAt(addr); ok {
		b.WriteExpansionRegister(primary, value)
		return
	}
	dev, a := b.resolve(addr)
	dev.WriteMem(a, value, clocks.Dummy)
}

// ReadCacheLine returns the 256-byte-aligned backing slice for the device
// currently mapped at addr, or nil if the mapped device cannot be accessed
// without going through Read/Write (the CPU core's fast path falls back to
// Read/Write in that case). The expansion register address is never
// cacheable.
func (b *MemoryBus) ReadCacheLine(addr uint16) []byte {
	if _, ok := b.expansionPrimaryAt(addr); ok {
		return nil
	}
	dev, a := b.resolve(addr)
	return dev.GetReadCacheLine(a)
}

func (b *MemoryBus) WriteCacheLine(addr uint16) []byte {
	if _, ok := b.expansionPrimaryAt(addr); ok {
		return nil
	}
	dev, a := b.resolve(addr)
	return dev.GetWriteCacheLine(a)
}

var _ CPUBus = (*MemoryBus)(nil)
var _ DebuggerBus = (*MemoryBus)(nil)

// IOBus is the DeviceBus's I/O half: up to 256 ports, each of which zero or
// more devices can be registered against. A read AND-combines every
// registered device's response (mirroring the MSX's open-collector I/O
// bus); a write is broadcast to every registered device. Ports no device
// has registered against read as device.UnmappedValue.
type IOBus struct {
	readers [256][]device.MSXDevice
	writers [256][]device.MSXDevice
}

// NewIOBus creates an empty IOBus.
func NewIOBus() *IOBus {
	return &IOBus{}
}

// RegisterReader makes dev a participant in reads of port.
func (b *IOBus) RegisterReader(port uint8, dev device.MSXDevice) {
	b.readers[port] = append(b.readers[port], dev)
}

// RegisterWriter makes dev a participant in writes to port.
func (b *IOBus) RegisterWriter(port uint8, dev device.MSXDevice) {
	b.writers[port] = append(b.writers[port], dev)
}

func (b *IOBus) In(port uint8, t clocks.EmuTime) uint8 {
	readers := b.readers[port]
	if len(readers) == 0 {
		return device.UnmappedValue
	}
	result := uint8(0xff)
	for _, dev := range readers {
		result &= dev.ReadIO(port, t)
	}
	return result
}

func (b *IOBus) Out(port uint8, data uint8, t clocks.EmuTime) {
	for _, dev := range b.writers[port] {
		dev.WriteIO(port, data, t)
	}
}

func (b *IOBus) PeekIn(port uint8) uint8 {
	readers := b.readers[port]
	if len(readers) == 0 {
		return device.UnmappedValue
	}
	result := uint8(0xff)
	for _, dev := range readers {
		result &= dev.PeekIO(port)
	}
	return result
}
