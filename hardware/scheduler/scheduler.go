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

// Package scheduler implements the priority queue of deferred events that
// drives the whole emulation forward. The CPU (an external collaborator -
// see spec.md) is the master driver: it calls Schedule(until) whenever it
// has advanced its own clock, and the Scheduler feeds it every device
// callback due at or before that time, in strict fire-time order with FIFO
// tie-breaking.
//
// The scheduler is deliberately single-threaded and cooperative: there is
// no locking anywhere in this package because only the emulation thread is
// ever allowed to touch it.
package scheduler

import (
	"container/heap"

	"github.com/openmsx-go/core/emuerr"
	"github.com/openmsx-go/core/hardware/clocks"
)

// UserData lets a single Schedulable multiplex several kinds of event
// through one SetSyncPoint/ExecuteUntil pair.
type UserData uint32

// Schedulable is the mix-in contract implemented by anything that wants to
// be woken at a future EmuTime. Implementers must call
// Scheduler.RemoveSyncPoint(self) before they are destroyed/discarded; the
// scheduler only ever holds a reference, never ownership.
type Schedulable interface {
	// ExecuteUntil is invoked by the Scheduler at the time previously
	// passed to SetSyncPoint. fire is always the exact time requested
	// (the Scheduler never delays a sync point past the time it asked to
	// be run at, since Schedule only processes entries with fire <=
	// until).
	ExecuteUntil(fire clocks.EmuTime, userData UserData)
}

// syncPoint is the (time, owner, userData) tuple of spec.md §3, plus an
// insertion sequence number used to break ties in fire-time order.
type syncPoint struct {
	fire     clocks.EmuTime
	owner    Schedulable
	userData UserData
	seq      uint64
}

type syncPointHeap []syncPoint

func (h syncPointHeap) Len() int { return len(h) }

func (h syncPointHeap) Less(i, j int) bool {
	if !h[i].fire.Equal(h[j].fire) {
		return h[i].fire.Before(h[j].fire)
	}
	// FIFO among equal fire times
	return h[i].seq < h[j].seq
}

func (h syncPointHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *syncPointHeap) Push(x any) {
	*h = append(*h, x.(syncPoint))
}

func (h *syncPointHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Scheduler is an ordered multiset of sync points plus the notion of "now".
//
// Invariants (spec.md §3):
//  1. every pending sync point's fire time is >= the time of the callback
//     currently executing (or >= "now" when nothing is executing);
//  2. no device holds a sync point referring to itself after its own
//     destruction - enforced by callers via RemoveSyncPoint, not by this
//     package.
type Scheduler struct {
	pq      syncPointHeap
	nextSeq uint64
	current clocks.EmuTime
}

// New creates a Scheduler whose initial notion of "now" is t.
func New(t clocks.EmuTime) *Scheduler {
	s := &Scheduler{current: t}
	heap.Init(&s.pq)
	return s
}

// CurrentTime returns the time last passed to the currently executing
// callback, or the scheduler's idea of "now" otherwise.
func (s *Scheduler) CurrentTime() clocks.EmuTime {
	return s.current
}

// Pending returns the number of outstanding sync points. Exposed for
// telemetry, not for scheduling decisions.
func (s *Scheduler) Pending() int {
	return len(s.pq)
}

// SetSyncPoint inserts a new sync point. fire must be >= CurrentTime();
// violating this is a programming error and fails hard (spec.md §4.2
// "Failure semantics") since the Scheduler never retries or recovers.
func (s *Scheduler) SetSyncPoint(fire clocks.EmuTime, owner Schedulable, userData UserData) {
	if fire.Before(s.current) {
		emuerr.PanicStateInconsistency("scheduler: SetSyncPoint with a fire time in the past")
	}
	heap.Push(&s.pq, syncPoint{
		fire:     fire,
		owner:    owner,
		userData: userData,
		seq:      s.nextSeq,
	})
	s.nextSeq++
}

// RemoveSyncPoint removes every pending sync point owned by owner. If one
// or more userData values are given, only sync points whose userData
// matches one of them are removed; with none given, every sync point
// belonging to owner is removed regardless of userData. O(n) - acceptable
// per spec.md §4.2. Removing a sync point that has already fired (and so
// is no longer pending) is a silent no-op, which is what makes it safe to
// call from inside a callback that is itself being dispatched by Schedule.
func (s *Scheduler) RemoveSyncPoint(owner Schedulable, userData ...UserData) {
	matches := func(sp syncPoint) bool {
		if sp.owner != owner {
			return false
		}
		if len(userData) == 0 {
			return true
		}
		for _, u := range userData {
			if sp.userData == u {
				return true
			}
		}
		return false
	}

	kept := s.pq[:0:0]
	for _, sp := range s.pq {
		if !matches(sp) {
			kept = append(kept, sp)
		}
	}
	s.pq = kept
	heap.Init(&s.pq)
}

// Rewind forcibly resets "now" back to t and discards every pending sync
// point. It exists solely for reverse.Manager.GoToSnapshot: restoring the
// machine to an earlier instant needs the scheduler's own clock to move
// back in step, which is otherwise forbidden by SetSyncPoint's invariant.
// Every device's previously-armed sync points are invalid once the clock
// jumps backward (they were computed against a timeline that no longer
// happened), so callers are expected to re-arm whatever they still need
// relative to t themselves.
func (s *Scheduler) Rewind(t clocks.EmuTime) {
	s.pq = s.pq[:0]
	s.current = t
}

// Schedule processes every pending sync point with fire <= until, in
// non-decreasing fire-time order with FIFO tie-breaking, then advances
// "now" to until. A callback that inserts a new sync point for exactly
// "now" (the fire time currently being processed) is guaranteed to run
// before Schedule returns, because the heap is re-examined after every
// callback - it still executes strictly after the callback that scheduled
// it, since that callback has already returned by the time the new entry
// can be popped.
func (s *Scheduler) Schedule(until clocks.EmuTime) {
	for len(s.pq) > 0 {
		next := s.pq[0]
		if next.fire.After(until) {
			break
		}
		heap.Pop(&s.pq)
		s.current = next.fire
		next.owner.ExecuteUntil(next.fire, next.userData)
	}
	if s.current.Before(until) {
		s.current = until
	}
}
