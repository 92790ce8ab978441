// Package eventqueue implements C7: a bounded multi-producer, single
// consumer queue of coalesced file events. Both ends are non-blocking, per
// spec.md §4.7, so producers never stall the coalescer and consumers never
// stall the dispatcher.
package eventqueue

import (
	"sync"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/fsevent"
)

// Queue is a bounded MPSC queue of fsevent.Event.
type Queue struct {
	mu       sync.Mutex
	items    []fsevent.Event
	capacity int
}

// New creates a queue with the given bound on pending events.
func New(capacity int) *Queue {
	return &Queue{capacity: capacity}
}

// TryEnqueue attempts to add event to the queue, returning false without
// blocking if the queue is full. A failed enqueue drops the event; the
// coalescer must not rely on enqueue succeeding unconditionally.
func (q *Queue) TryEnqueue(event fsevent.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, event)
	return true
}

// TryDequeue removes and returns the oldest event, if any, without
// blocking.
func (q *Queue) TryDequeue() (fsevent.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return fsevent.Event{}, false
	}
	event := q.items[0]
	q.items = q.items[1:]
	return event, true
}

// Len returns the number of events currently pending.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
