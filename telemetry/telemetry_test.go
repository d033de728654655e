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

package telemetry_test

import (
	"testing"

	"github.com/openmsx-go/core/hardware/clocks"
	"github.com/openmsx-go/core/hardware/scheduler"
	"github.com/openmsx-go/core/hardware/statechange"
	"github.com/openmsx-go/core/reverse"
	"github.com/openmsx-go/core/serialize"
	"github.com/openmsx-go/core/telemetry"
	"github.com/openmsx-go/core/test"
)

type blank struct{}

func (blank) SignalStateChange(statechange.StateChange) {}
func (blank) StopReplay(clocks.EmuTime)                 {}
func (blank) CurrentVersion() int                       { return 1 }
func (blank) Serialize(ar serialize.Archive) error {
	return ar.BeginType("blank", 1)
}

var _ serialize.Serializable = blank{}

func TestCountersReflectSchedulerAndReverseManagerState(t *testing.T) {
	sched := scheduler.New(clocks.Zero)
	dist := statechange.New(4)
	rev := reverse.New(sched, dist, blank{})
	rev.Start()

	srv := telemetry.NewServer(sched, rev, "127.0.0.1:0", "127.0.0.1:0")
	counters := srv.Counters()

	test.ExpectEquality(t, counters.CollectCount, 1)
	test.ExpectEquality(t, counters.ChunkCount, 1)
	test.ExpectEquality(t, counters.ReplayLag, 0)
	test.ExpectEquality(t, counters.PendingSyncPoints, sched.Pending())
}
