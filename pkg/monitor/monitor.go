// Package monitor implements C9: it subscribes to OS file-change
// notifications for a set of roots, filters out configured exception paths,
// and forwards surviving changes to the event coalescer. The notification
// backend is github.com/fsnotify/fsnotify (see DESIGN.md for why this
// substitutes for the teacher's per-platform cgo watchers).
package monitor

import (
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/fsevent"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/logging"
)

// Sink is the downstream collector the monitor forwards surviving events
// to. *coalescer.Coalescer satisfies this.
type Sink interface {
	Add(path string, kind fsevent.Kind)
}

// Statistics holds the monitor's running counters, safe for concurrent
// reads via the accessor methods.
type Statistics struct {
	eventsSeen       atomic.Int64
	threatsBlocked   atomic.Int64
	filesQuarantined atomic.Int64
	scanErrors       atomic.Int64
	startedAt        atomic.Int64 // unix nanoseconds; 0 if not started
}

// EventsSeen returns the number of native events observed.
func (s *Statistics) EventsSeen() int64 { return s.eventsSeen.Load() }

// ThreatsBlocked returns the number of threats blocked.
func (s *Statistics) ThreatsBlocked() int64 { return s.threatsBlocked.Load() }

// FilesQuarantined returns the number of files moved to quarantine.
func (s *Statistics) FilesQuarantined() int64 { return s.filesQuarantined.Load() }

// ScanErrors returns the number of scan errors encountered.
func (s *Statistics) ScanErrors() int64 { return s.scanErrors.Load() }

// Uptime returns how long the monitor has been running, or zero if it has
// never started.
func (s *Statistics) Uptime() time.Duration {
	started := s.startedAt.Load()
	if started == 0 {
		return 0
	}
	return time.Since(time.Unix(0, started))
}

// RecordThreatBlocked increments the threats-blocked counter.
func (s *Statistics) RecordThreatBlocked() { s.threatsBlocked.Add(1) }

// RecordFileQuarantined increments the files-quarantined counter.
func (s *Statistics) RecordFileQuarantined() { s.filesQuarantined.Add(1) }

// RecordScanError increments the scan-errors counter.
func (s *Statistics) RecordScanError() { s.scanErrors.Add(1) }

// Monitor owns the OS file-change subscription for a configured root set.
type Monitor struct {
	roots      []string
	exceptions []string
	sink       Sink
	logger     *logging.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  chan struct{}
	done    chan struct{}
	started bool

	Stats Statistics
}

// New creates a Monitor for roots, excluding any path under (or equal to)
// one of exceptions, forwarding surviving events to sink.
func New(roots, exceptions []string, sink Sink, logger *logging.Logger) *Monitor {
	return &Monitor{
		roots:      roots,
		exceptions: exceptions,
		sink:       sink,
		logger:     logger,
	}
}

// Start subscribes to file-system notifications for every configured root
// and begins forwarding events. Start is idempotent: calling it again while
// already running is a no-op.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "unable to create file watcher")
	}

	for _, root := range m.roots {
		if err := watcher.Add(root); err != nil {
			m.logger.Warnf("unable to watch root %q: %v", root, err)
		}
	}

	m.watcher = watcher
	m.cancel = make(chan struct{})
	m.done = make(chan struct{})
	m.started = true
	m.Stats.startedAt.Store(time.Now().UnixNano())

	go m.run(watcher, m.cancel, m.done)

	return nil
}

// Stop unsubscribes from file-system notifications and joins the worker
// goroutine. Stop is idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	watcher := m.watcher
	m.started = false
	m.mu.Unlock()

	close(cancel)
	<-done
	must(watcher.Close(), m.logger)
}

func must(err error, logger *logging.Logger) {
	if err != nil {
		logger.Warnf("unable to close watcher: %v", err)
	}
}

func (m *Monitor) run(watcher *fsnotify.Watcher, cancel <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-cancel:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			m.handle(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warnf("watcher error: %v", err)
		}
	}
}

func (m *Monitor) handle(event fsnotify.Event) {
	m.Stats.eventsSeen.Add(1)

	if m.excluded(event.Name) {
		return
	}

	kind, ok := translate(event.Op)
	if !ok {
		return
	}

	m.sink.Add(event.Name, kind)
}

// translate converts an fsnotify operation mask into a FileEvent kind.
// Renames surface as Created on the new path, per spec.md §3; fsnotify
// reports the rename as a Rename on the old path and a Create on the new
// one. Rename is translated to Renamed here; the coalescer turns Renamed
// into Created and drops it when the old path no longer exists at flush,
// so the new path reaches the queue through the Create event.
func translate(op fsnotify.Op) (fsevent.Kind, bool) {
	switch {
	case op&fsnotify.Remove != 0:
		return fsevent.Deleted, true
	case op&fsnotify.Rename != 0:
		return fsevent.Renamed, true
	case op&fsnotify.Create != 0:
		return fsevent.Created, true
	case op&fsnotify.Write != 0, op&fsnotify.Chmod != 0:
		return fsevent.Modified, true
	default:
		return "", false
	}
}

// excluded reports whether path is excepted, matched by exact path or by any
// ancestor directory.
func (m *Monitor) excluded(path string) bool {
	for _, exception := range m.exceptions {
		if path == exception {
			return true
		}
		rel, err := filepath.Rel(exception, path)
		if err == nil && !strings.HasPrefix(rel, "..") && rel != "." {
			return true
		}
	}
	return false
}
