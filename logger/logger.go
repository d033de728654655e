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

// Package logger is the CliComm-equivalent message sink for the emulation
// core: a bounded ring of tag/detail entries that any component - the
// motherboard, the ReverseManager, a device - can append to without caring
// who (if anyone) is watching.
//
// Two entry points exist side by side, matching how the rest of the module
// actually wants to log:
//
//   - a permissioned Logger instance, created with NewLogger, whose callers
//     pass a Permission so noisy per-frame devices can be silenced without
//     touching their call sites;
//   - a package-level, always-on Logger for code (cmd/, tests) that has no
//     Logger instance of its own.
package logger

import (
	"fmt"
	"io"
	"sync"
)

// Permission is consulted once per Log call; AllowLogging returning false
// drops the entry before it is even formatted.
type Permission interface {
	AllowLogging() bool
}

type alwaysAllow struct{}

func (alwaysAllow) AllowLogging() bool { return true }

// Allow is the Permission that never suppresses a log entry.
var Allow Permission = alwaysAllow{}

type entry struct {
	tag    string
	detail string
}

// Logger is a bounded, FIFO ring of log entries. The zero value is not
// usable; construct with NewLogger.
type Logger struct {
	mu      sync.Mutex
	entries []entry
	max     int
}

// NewLogger creates a Logger that retains at most max entries, discarding
// the oldest once full.
func NewLogger(max int) *Logger {
	if max <= 0 {
		max = 1
	}
	return &Logger{max: max}
}

// Clear discards every retained entry.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}

// Log appends tag/detail if perm allows it. detail is formatted specially
// for error and fmt.Stringer values; anything else falls through to "%v".
func (l *Logger) Log(perm Permission, tag string, detail any) {
	if perm == nil || !perm.AllowLogging() {
		return
	}
	l.append(tag, formatDetail(detail))
}

// Logf is Log with the detail built from a format string.
func (l *Logger) Logf(perm Permission, tag string, format string, args ...any) {
	if perm == nil || !perm.AllowLogging() {
		return
	}
	l.append(tag, fmt.Sprintf(format, args...))
}

func formatDetail(detail any) string {
	switch v := detail.(type) {
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", detail)
	}
}

func (l *Logger) append(tag, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{tag: tag, detail: detail})
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// Write dumps every retained entry, oldest first, one per line, formatted as
// "tag: detail".
func (l *Logger) Write(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		fmt.Fprintf(w, "%s: %s\n", e.tag, e.detail)
	}
}

// Tail writes at most the last n entries, oldest-of-the-tail first.
func (l *Logger) Tail(w io.Writer, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	for _, e := range l.entries[start:] {
		fmt.Fprintf(w, "%s: %s\n", e.tag, e.detail)
	}
}

// central is the always-on, unpermissioned logger backing the package-level
// functions below.
var central = NewLogger(1000)

// Log appends to the package-level logger, always allowed.
func Log(tag string, detail any) { central.Log(Allow, tag, detail) }

// Logf appends a formatted entry to the package-level logger.
func Logf(tag string, format string, args ...any) { central.Logf(Allow, tag, format, args...) }

// Write dumps the package-level logger's full content.
func Write(w io.Writer) { central.Write(w) }

// Tail writes the last n entries of the package-level logger.
func Tail(w io.Writer, n int) { central.Tail(w, n) }

// Clear empties the package-level logger.
func Clear() { central.Clear() }
