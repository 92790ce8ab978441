// Package fsevent defines the FileEvent type shared by the real-time
// monitor, coalescer, and event queue.
package fsevent

import "time"

// Kind classifies a file-system change.
type Kind string

const (
	// Created indicates a new file appeared.
	Created Kind = "Created"
	// Modified indicates an existing file's content changed.
	Modified Kind = "Modified"
	// Renamed indicates a file was renamed; renames surface as Created on
	// the new path (spec.md §3).
	Renamed Kind = "Renamed"
	// Deleted indicates a file was removed. Deleted events are dropped at
	// the coalescer and never reach the queue.
	Deleted Kind = "Deleted"
)

// Event is a single file-system change, timestamped with a monotonic clock
// reading so that coalescing windows are immune to wall-clock adjustments.
type Event struct {
	// Path is the absolute path the event concerns.
	Path string
	// Kind classifies the change.
	Kind Kind
	// Timestamp is a monotonic timestamp (time.Now(), which carries a
	// monotonic reading on supported platforms).
	Timestamp time.Time
}
