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

// Package motherboard is the composition root: the single owner of every
// device, the memory and I/O buses, the scheduler, the state-change
// distributor and the sound mixer. Nothing outside MotherBoard holds a
// device pointer directly - this is how the cyclic ownership a real MSX's
// devices have (the PPI talks to the bus, the bus dispatches back into the
// PPI) is resolved without reference cycles between Go values: everyone
// reaches everyone else through the MotherBoard.
package motherboard

import (
	"fmt"
	"io"

	"github.com/bradleyjkemp/memviz"

	"github.com/openmsx-go/core/emuerr"
	"github.com/openmsx-go/core/hardware/bus"
	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/device"
	"github.com/openmsx-go/core/hardware/scheduler"
	"github.com/openmsx-go/core/hardware/slots"
	"github.com/openmsx-go/core/hardware/sound"
	"github.com/openmsx-go/core/hardware/statechange"
	"github.com/openmsx-go/core/serialize"
)

// boundDevice pairs an owned device with the Config it was added under, kept
// around so DumpGraph can show placement alongside identity.
type boundDevice struct {
	Device device.MSXDevice
	Config device.Config
}

// MotherBoard owns the whole machine: every device, the buses that dispatch
// to them, the scheduler driving time forward and the cross-cutting
// StateChangeDistributor and SoundMixer every device can reach.
type MotherBoard struct {
	Memory *bus.MemoryBus
	IO     *bus.IOBus
	Slots  *slots.Register

	Scheduler *scheduler.Scheduler
	Changes   *statechange.Distributor
	Mixer     *sound.Mixer

	devices []boundDevice
	byName  map[string]device.MSXDevice
}

// New builds an empty machine: buses, the primary slot select register and
// the scheduler/distributor/mixer all starting from t. Devices are added
// afterwards with AddDevice.
func New(t clocks.EmuTime, pushQueueSize int) *MotherBoard {
	mem := bus.NewMemoryBus()
	io := bus.NewIOBus()
	reg := slots.NewRegister(mem)
	io.RegisterReader(slots.Port0xA8, reg)
	io.RegisterWriter(slots.Port0xA8, reg)

	return &MotherBoard{
		Memory:    mem,
		IO:        io,
		Slots:     reg,
		Scheduler: scheduler.New(t),
		Changes:   statechange.New(pushQueueSize),
		Mixer:     sound.NewMixer(t),
		byName:    make(map[string]device.MSXDevice),
	}
}

// AddDevice registers dev with the machine: mapping it into the memory bus
// if cfg declares a slot placement, and onto every I/O port cfg lists. A
// device that also implements statechange.Listener or sound.Device is
// registered there too, so most devices only need a single AddDevice call
// to be fully wired in.
func (mb *MotherBoard) AddDevice(dev device.MSXDevice, cfg device.Config) error {
	name := cfg.Name
	if name == "" {
		name = dev.Name()
	}
	if _, exists := mb.byName[name]; exists {
		return emuerr.ConfigurationError("motherboard: a device named %q is already present", name)
	}

	if cfg.Primary >= 0 {
		mb.Memory.MapDevice(dev, cfg)
	}
	for _, port := range cfg.Ports {
		mb.IO.RegisterReader(port, dev)
		mb.IO.RegisterWriter(port, dev)
	}
	if l, ok := dev.(statechange.Listener); ok {
		mb.Changes.RegisterListener(l)
	}
	if s, ok := dev.(sound.Device); ok {
		mb.Mixer.AddDevice(s)
	}

	mb.devices = append(mb.devices, boundDevice{Device: dev, Config: cfg})
	mb.byName[name] = dev
	return nil
}

// Device looks a device up by the name it was added under (cfg.Name, or
// dev.Name() if cfg.Name was empty).
func (mb *MotherBoard) Device(name string) (device.MSXDevice, bool) {
	d, ok := mb.byName[name]
	return d, ok
}

// PowerUp resets the slot select register and powers up every device, in
// the order they were added.
func (mb *MotherBoard) PowerUp(t clocks.EmuTime) {
	mb.Slots.Reset(t)
	for _, b := range mb.devices {
		b.Device.PowerUp(t)
	}
}

// Reset resets the slot select register and every device, without tearing
// anything down - equivalent to the user pressing the machine's reset
// button.
func (mb *MotherBoard) Reset(t clocks.EmuTime) {
	mb.Slots.Reset(t)
	for _, b := range mb.devices {
		b.Device.Reset(t)
	}
}

// PowerDown powers down every device, in reverse of the order they were
// added, mirroring typical resource-teardown ordering.
func (mb *MotherBoard) PowerDown(t clocks.EmuTime) {
	for i := len(mb.devices) - 1; i >= 0; i-- {
		mb.devices[i].Device.PowerDown(t)
	}
}

// DrainInput distributes every StateChange queued via Changes.Push since the
// last call. Intended to be called once per scheduler quantum by whatever
// drives the CPU loop.
func (mb *MotherBoard) DrainInput() {
	mb.Changes.DrainPushed()
}

// DumpGraph renders the device ownership graph - which devices this
// MotherBoard owns and how they're configured - as Graphviz dot, for
// diagnosing slot/connector wiring mistakes at machine-construction time.
func (mb *MotherBoard) DumpGraph(w io.Writer) error {
	type graphDevice struct {
		Name   string
		Config device.Config
	}
	snapshot := make([]graphDevice, len(mb.devices))
	for i, b := range mb.devices {
		snapshot[i] = graphDevice{Name: fmt.Sprintf("%T", b.Device), Config: b.Config}
	}
	memviz.Map(w, &snapshot)
	return nil
}

func (mb *MotherBoard) CurrentVersion() int { return 1 }

// Serialize walks the slot select register and every owned device, in the
// order they were added. Unlike the original C++ (which reconstructs a
// brand new MSXMotherBoard from a machine description before loading into
// it), loading here always restores into this already-constructed
// MotherBoard: device identity and wiring come from AddDevice, not from the
// snapshot, since machine-description parsing is out of scope.
func (mb *MotherBoard) Serialize(ar serialize.Archive) error {
	if err := ar.BeginType("MotherBoard", mb.CurrentVersion()); err != nil {
		return err
	}
	if err := ar.Object("slots", mb.Slots); err != nil {
		return err
	}
	for i, b := range mb.devices {
		if err := ar.Object(fmt.Sprintf("device[%d]", i), b.Device); err != nil {
			return err
		}
	}
	return nil
}

var _ serialize.Serializable = (*MotherBoard)(nil)
