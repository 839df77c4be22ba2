package event

import (
	"sync"
	"sync/atomic"
)

// Bus fans mutation events out to subscribers.
//
// Publish is non-blocking: when a subscriber's buffer is full the event is
// dropped for that subscriber and the OnDrop callback (if any) is invoked.
// Editing gestures must never stall on a slow observer.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int64]*subscription
	nextID      atomic.Int64
	closed      atomic.Bool

	bufferSize int
	onDrop     func(evt Event)
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBufferSize sets the per-subscriber channel buffer (default 64).
func WithBufferSize(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithDropHandler registers a callback invoked when an event is dropped
// because a subscriber's buffer is full.
func WithDropHandler(fn func(evt Event)) BusOption {
	return func(b *Bus) {
		b.onDrop = fn
	}
}

// NewBus creates a new in-process event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subscribers: make(map[int64]*subscription),
		bufferSize:  64,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type subscription struct {
	ch    chan Event
	types map[Type]struct{} // nil = all types
}

// Subscription is a handle to an active subscription.
type Subscription struct {
	bus *Bus
	id  int64
	// C delivers events. Closed on Unsubscribe or bus Close.
	C <-chan Event
}

// Subscribe registers for the given event types. With no types, all events
// are delivered.
func (b *Bus) Subscribe(types ...Type) *Subscription {
	sub := &subscription{ch: make(chan Event, b.bufferSize)}
	if len(types) > 0 {
		sub.types = make(map[Type]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	id := b.nextID.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		close(sub.ch)
		return &Subscription{bus: b, id: id, C: sub.ch}
	}
	b.subscribers[id] = sub
	return &Subscription{bus: b, id: id, C: sub.ch}
}

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		delete(s.bus.subscribers, s.id)
		close(sub.ch)
	}
}

// Publish delivers evt to every matching subscriber without blocking.
func (b *Bus) Publish(evt Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if sub.types != nil {
			if _, ok := sub.types[evt.Type]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- evt:
		default:
			if b.onDrop != nil {
				b.onDrop(evt)
			}
		}
	}
}

// Close shuts down the bus and closes all subscriber channels.
// Publish after Close is a no-op.
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub.ch)
	}
}
