package eventbus

import (
	"sync"

	"github.com/dserban/dern/core/events"
)

// defaultBuffer is the per-subscriber queue depth. A subscriber that falls
// this far behind starts losing intermediate updates.
const defaultBuffer = 16

// EventBus is an in-process publish/subscribe fan-out for state-change
// events. Publishing never blocks: delivery to a subscriber whose queue is
// full is dropped, so a slow stream consumer can never stall a movement
// tick or another subscriber.
type EventBus interface {
	Publish(events.Event)
	Subscribe() <-chan events.Event
	Unsubscribe(<-chan events.Event)
	Close()
}

// Bus is the default EventBus implementation using fan-out channels.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan events.Event
	buffer int
	closed bool
}

// New creates a Bus with the default subscriber queue depth.
func New() *Bus { return &Bus{buffer: defaultBuffer} }

// NewBuffered creates a Bus whose subscriber queues hold n events.
func NewBuffered(n int) *Bus {
	if n < 1 {
		n = 1
	}
	return &Bus{buffer: n}
}

// Publish delivers e to every current subscriber, best effort per queue.
func (b *Bus) Publish(e events.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel. The channel
// is closed on Unsubscribe or when the bus shuts down.
func (b *Bus) Subscribe() <-chan events.Event {
	ch := make(chan events.Event, b.buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel. No event is
// delivered after Unsubscribe returns.
func (b *Bus) Unsubscribe(sub <-chan events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Close closes all subscriber channels and clears the registry.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.mu.Unlock()
}
