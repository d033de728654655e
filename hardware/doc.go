// Package hardware is the base package for the emulation core. Its
// sub-packages together form a complete, UI-less MSX machine: clocks and
// scheduler drive time, bus and slots route every CPU memory and I/O access
// to the device that owns it, device defines the contract every peripheral
// implements, motherboard is the composition root that owns and wires all of
// the above, statechange is the record/replay substrate, and sound is the
// pull-based audio mixing contract.
package hardware
