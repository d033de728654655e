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

// Package telemetry exposes a running core's internal bookkeeping to an
// embedding application over HTTP, without coupling the core to any
// particular UI. It is a process health/metrics surface, not part of the
// emulated machine.
package telemetry

import (
	"encoding/json"
	"net/http"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"

	"github.com/openmsx-go/core/hardware/scheduler"
	"github.com/openmsx-go/core/reverse"
)

// Counters is a point-in-time snapshot of the scheduler and reverse
// manager's internal state.
type Counters struct {
	PendingSyncPoints int `json:"pendingSyncPoints"`
	CollectCount      int `json:"collectCount"`
	ChunkCount        int `json:"chunkCount"`
	ReplayLag         int `json:"replayLag"`
}

// Server serves statsview's live Go-runtime dashboard at dashboardAddr, and
// this core's own scheduler/reverse-manager counters as JSON at
// countersAddr + "/debug/core/counters" - statsview's dashboard only knows
// about runtime.MemStats-shaped series, so the emulator-specific counters
// get their own small endpoint alongside it.
type Server struct {
	sched *scheduler.Scheduler
	rev   *reverse.Manager

	countersAddr string
	mgr          *statsview.Manager
}

// NewServer prepares a Server reporting on sched and rev. dashboardAddr is
// where statsview's own live chart listens; countersAddr is where this
// core's JSON counters are served.
func NewServer(sched *scheduler.Scheduler, rev *reverse.Manager, dashboardAddr, countersAddr string) *Server {
	viewer.SetConfiguration(viewer.WithAddr(dashboardAddr))
	return &Server{sched: sched, rev: rev, countersAddr: countersAddr}
}

// Counters takes a snapshot of the current counters.
func (s *Server) Counters() Counters {
	return Counters{
		PendingSyncPoints: s.sched.Pending(),
		CollectCount:      s.rev.CollectCount(),
		ChunkCount:        s.rev.ChunkCount(),
		ReplayLag:         s.rev.ReplayLag(),
	}
}

// Start launches the statsview dashboard and blocks serving the counters
// endpoint. Run it in its own goroutine.
func (s *Server) Start() error {
	s.mgr = statsview.New()
	go s.mgr.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/core/counters", s.serveCounters)
	return http.ListenAndServe(s.countersAddr, mux)
}

func (s *Server) serveCounters(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Counters())
}

// Stop shuts the statsview dashboard down. The counters endpoint has no
// graceful shutdown of its own - it is expected to die with the process.
func (s *Server) Stop() {
	if s.mgr != nil {
		s.mgr.Stop()
	}
}
