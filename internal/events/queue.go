package events

import (
	"context"
	"errors"
	"sync"
)

// DefaultCapacity is the number of events the queue holds before Submit
// starts blocking.
const DefaultCapacity = 16

// ErrQueueClosed is returned by Submit once Close has been called.
var ErrQueueClosed = errors.New("event queue closed")

// Queue is a bounded FIFO between webhook intake (many concurrent producers)
// and the projector (a single consumer). A full queue blocks producers; it
// never drops events.
type Queue struct {
	ch   chan Event
	done chan struct{}

	// mu guards the producer side. Submitters hold it shared for the whole
	// send so Close can never close ch underneath them.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewQueue creates a queue holding at most capacity pending events.
// A non-positive capacity falls back to DefaultCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		ch:   make(chan Event, capacity),
		done: make(chan struct{}),
	}
}

// Submit enqueues evt, blocking while the queue is full. It returns ctx.Err()
// if ctx ends first, and ErrQueueClosed if the queue is or becomes closed.
func (q *Queue) Submit(ctx context.Context, evt Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrQueueClosed
	}
}

// Events returns the consuming end. It is closed after Close once every
// blocked submitter has returned.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Len reports the number of events waiting to be consumed.
func (q *Queue) Len() int { return len(q.ch) }

// Cap reports the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }

// Close stops accepting events. Events already queued remain readable.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
		q.mu.Lock()
		q.closed = true
		close(q.ch)
		q.mu.Unlock()
	})
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}
