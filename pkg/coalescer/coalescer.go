// Package coalescer implements C8: debouncing of rapid repeat events for the
// same path, on a periodic flush tick run by a goroutine that the
// Coalescer owns and that Stop terminates.
package coalescer

import (
	"os"
	"sync"
	"time"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/eventqueue"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/fsevent"
)

// pending tracks the most recent kind seen for a path and when it was first
// seen in the current debounce window.
type pending struct {
	kind      fsevent.Kind
	firstSeen time.Time
}

// Coalescer debounces rapid repeats for the same path within a configurable
// window, then enqueues at most one event per path per window onto a
// downstream Queue, provided the file still exists at flush time.
type Coalescer struct {
	window time.Duration

	mu      sync.Mutex
	entries map[string]pending

	queue *eventqueue.Queue

	cancel chan struct{}
	done   chan struct{}

	existsFunc func(string) bool
}

// New creates a Coalescer that flushes entries older than window onto queue.
// The background flush loop is started immediately; call Stop to terminate
// it.
func New(window time.Duration, queue *eventqueue.Queue) *Coalescer {
	c := &Coalescer{
		window:     window,
		entries:    make(map[string]pending),
		queue:      queue,
		cancel:     make(chan struct{}),
		done:       make(chan struct{}),
		existsFunc: fileExists,
	}
	tick := window / 3
	if tick <= 0 {
		tick = time.Millisecond
	}
	go c.run(tick)
	return c
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Add records a change of the given kind for path. A later call for the
// same path within the same window overwrites the recorded kind — a later
// Modified wins over an earlier Created in the same window — without
// resetting the window's start time, so a continuous stream of edits still
// flushes periodically rather than being debounced forever.
func (c *Coalescer) Add(path string, kind fsevent.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[path]; ok {
		existing.kind = kind
		c.entries[path] = existing
		return
	}
	c.entries[path] = pending{kind: kind, firstSeen: time.Now()}
}

// PendingCount returns the number of paths currently awaiting flush.
func (c *Coalescer) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all pending entries without enqueuing them.
func (c *Coalescer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]pending)
}

// Stop terminates the background flush loop and waits for it to exit.
func (c *Coalescer) Stop() {
	select {
	case <-c.done:
		return
	default:
	}
	close(c.cancel)
	<-c.done
}

func (c *Coalescer) run(tick time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-c.cancel:
			return
		case <-ticker.C:
			c.flush()
		}
	}
}

// flush moves every entry whose age has reached the coalescing window onto
// the queue, dropping entries for paths that no longer exist. This absorbs
// churn from editor swap files that are created and deleted within a single
// window.
func (c *Coalescer) flush() {
	now := time.Now()

	c.mu.Lock()
	var ready []string
	for path, p := range c.entries {
		if now.Sub(p.firstSeen) >= c.window {
			ready = append(ready, path)
		}
	}
	entries := make(map[string]pending, len(ready))
	for _, path := range ready {
		entries[path] = c.entries[path]
		delete(c.entries, path)
	}
	c.mu.Unlock()

	for path, p := range entries {
		if p.kind == fsevent.Deleted {
			continue
		}
		if !c.existsFunc(path) {
			continue
		}
		kind := p.kind
		if kind == fsevent.Renamed {
			kind = fsevent.Created
		}
		c.queue.TryEnqueue(fsevent.Event{Path: path, Kind: kind, Timestamp: now})
	}
}
