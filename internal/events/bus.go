// Package events implements the broadcast bus the agent loop publishes its
// progress on. Observers (the text UI, the JSONL stream, tests) subscribe to
// a bounded channel each; a subscriber that falls behind loses events rather
// than blocking the producer.
package events

import (
	"sync"

	"github.com/nerverun/nerve/pkg/models"
)

// DefaultCapacity is the per-subscriber channel buffer. Once a subscriber's
// channel is full, new events addressed to it are discarded, so capacity
// bounds how far an observer may lag before losing events.
const DefaultCapacity = 256

// Bus is a multi-subscriber broadcast channel for agent events. Emit never
// blocks: events are delivered in publish order to every subscriber that
// keeps up and dropped for the ones that don't.
type Bus struct {
	mu       sync.Mutex
	subs     []chan models.Event
	capacity int
	closed   bool
}

// NewBus creates a bus whose subscribers get channels of the given capacity
// (DefaultCapacity if <= 0).
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{capacity: capacity}
}

// Subscribe registers a new observer and returns its receive channel. The
// channel is closed when the bus is closed.
func (b *Bus) Subscribe() <-chan models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan models.Event, b.capacity)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Emit broadcasts e to every subscriber without blocking. Ordering is
// preserved per producer because Emit serializes on the bus mutex and the
// agent loop is the single producer.
func (b *Bus) Emit(e models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber is not keeping up, drop rather than block
		}
	}
}

// Close closes every subscriber channel. Emit after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
