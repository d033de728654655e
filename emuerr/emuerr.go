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

// Package emuerr names the error taxonomy of the emulation core on top of
// the generic curated error-chain helper: ConfigurationError,
// StateInconsistency, SerializationError, ReplayDivergence and
// DeviceWarning. Each is a curated.Errorf pattern so curated.Is/curated.Has
// can classify an error chain by taxonomy member without a type switch.
//
// StateInconsistency is the one category that is never returned as a plain
// error: a scheduler or slot invariant violation indicates a bug in the
// emulation core itself, not a recoverable condition, so it is raised with
// PanicStateInconsistency and expected to propagate uncaught - the
// scheduler's hot path has no error-handling machinery at all.
package emuerr

import "github.com/openmsx-go/core/curated"

// Pattern constants used with curated.Is/curated.Has.
const (
	ConfigurationErrorPattern = "configuration error: %v"
	SerializationErrorPattern = "serialization error: %v"
	ReplayDivergencePattern   = "replay divergence: %v"
	DeviceWarningPattern      = "device warning: %v"
)

// ConfigurationError wraps a malformed machine description. Fatal at
// startup.
func ConfigurationError(detail string, args ...interface{}) error {
	return curated.Errorf(ConfigurationErrorPattern, curated.Errorf(detail, args...))
}

// SerializationError wraps a version-too-new, truncated-stream or
// bad-pointer-ID condition. Recoverable at the savestate/replay API: the
// new motherboard is constructed to completion before it ever replaces the
// live one, so this error never corrupts a running emulation.
func SerializationError(detail string, args ...interface{}) error {
	return curated.Errorf(SerializationErrorPattern, curated.Errorf(detail, args...))
}

// ReplayDivergence wraps a failure in a replayed event's side effect (for
// example inserting a disk image that is no longer present on disk). The
// ReverseManager logs and continues to the next event; it never aborts a
// replay because of one.
func ReplayDivergence(detail string, args ...interface{}) error {
	return curated.Errorf(ReplayDivergencePattern, curated.Errorf(detail, args...))
}

// DeviceWarning wraps a non-fatal device-reported condition (e.g. "tape
// position beyond end"). Surfaced through whatever CliComm-equivalent
// channel the embedder provides; never changes control flow.
func DeviceWarning(detail string, args ...interface{}) error {
	return curated.Errorf(DeviceWarningPattern, curated.Errorf(detail, args...))
}

// IsConfigurationError reports whether err is (or wraps, via curated.Has) a
// ConfigurationError.
func IsConfigurationError(err error) bool { return curated.Has(err, ConfigurationErrorPattern) }

// IsSerializationError reports whether err is (or wraps) a
// SerializationError.
func IsSerializationError(err error) bool { return curated.Has(err, SerializationErrorPattern) }

// IsReplayDivergence reports whether err is (or wraps) a ReplayDivergence.
func IsReplayDivergence(err error) bool { return curated.Has(err, ReplayDivergencePattern) }

// IsDeviceWarning reports whether err is (or wraps) a DeviceWarning.
func IsDeviceWarning(err error) bool { return curated.Has(err, DeviceWarningPattern) }

// StateInconsistency is the panic value raised when a scheduler or slot
// invariant is violated. It is never recovered by the core itself.
type StateInconsistency struct {
	Detail string
}

func (e StateInconsistency) Error() string {
	return "state inconsistency: " + e.Detail
}

// PanicStateInconsistency raises a StateInconsistency. Callers are
// components (the Scheduler, the bus) whose own invariants - not a device's
// - have been violated; there is no recovery path, by design.
func PanicStateInconsistency(detail string) {
	panic(StateInconsistency{Detail: detail})
}
