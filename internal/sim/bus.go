package sim

import (
	"context"
	"iter"
	"sync"

	"github.com/eapache/queue"
)

// Bus fans engine events out to subscribers.
//
// Publish appends to every live subscription's FIFO and returns without
// waiting for readers, so an engine can publish while holding its mutation
// lock. Delivery order per subscription equals Publish order.
//
// New subscribers only see events published after Subscribe returns.
type Bus[E any] struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription[E]
	nextID uint64
	closed bool
}

// NewBus creates a bus with no subscribers.
func NewBus[E any]() *Bus[E] {
	return &Bus[E]{subs: make(map[uint64]*Subscription[E])}
}

// Subscribe registers a new subscription.
// Subscribing to a closed bus returns a subscription that has already ended.
func (b *Bus[E]) Subscribe() *Subscription[E] {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &Subscription[E]{
		bus:    b,
		items:  queue.New(),
		signal: make(chan struct{}, 1),
	}
	if b.closed {
		s.end()
		return s
	}

	b.nextID++
	s.id = b.nextID
	b.subs[s.id] = s
	return s
}

// Publish delivers e to every live subscription.
func (b *Bus[E]) Publish(e E) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subs {
		s.push(e)
	}
}

// Len returns the number of live subscriptions.
func (b *Bus[E]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription. Already queued events remain readable.
func (b *Bus[E]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		s.end()
		delete(b.subs, id)
	}
}

func (b *Bus[E]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Subscription is one reader's ordered view of a Bus.
//
// The queue is unbounded so a slow reader never stalls the engine. Readers
// that stop reading should Unsubscribe to release queued events.
type Subscription[E any] struct {
	bus *Bus[E]
	id  uint64

	mu     sync.Mutex
	items  *queue.Queue
	ended  bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

func (s *Subscription[E]) push(e E) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.items.Add(e)

	// Non-blocking: a buffer of 1 coalesces multiple signals.
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// end marks the subscription finished and wakes any waiter.
// Callers must not hold s.mu.
func (s *Subscription[E]) end() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.ended = true
	close(s.signal)
}

// TryNext returns the oldest undelivered event without blocking.
func (s *Subscription[E]) TryNext() (E, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero E
	if s.items.Length() == 0 {
		return zero, false
	}
	return s.items.Remove().(E), true
}

// Next blocks until an event is available, the subscription ends, or ctx is done.
// After Unsubscribe, queued events are still returned; once drained Next
// returns ErrUnsubscribed.
func (s *Subscription[E]) Next(ctx context.Context) (E, error) {
	var zero E
	for {
		if e, ok := s.TryNext(); ok {
			return e, nil
		}

		s.mu.Lock()
		drained := s.ended && s.items.Length() == 0
		s.mu.Unlock()
		if drained {
			return zero, ErrUnsubscribed
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-s.signal:
		}
	}
}

// Events returns a lazy sequence of events. The sequence is finite only if the
// subscription is ended (Unsubscribe or Bus.Close) or ctx is done.
func (s *Subscription[E]) Events(ctx context.Context) iter.Seq[E] {
	return func(yield func(E) bool) {
		for {
			e, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Wait returns a channel that signals when events may be available.
// The channel is closed once the subscription ends.
func (s *Subscription[E]) Wait() <-chan struct{} {
	return s.signal
}

// Len returns the number of undelivered events.
func (s *Subscription[E]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Length()
}

// Unsubscribe detaches the subscription from its bus. Idempotent.
func (s *Subscription[E]) Unsubscribe() {
	if s.id != 0 {
		s.bus.remove(s.id)
	}
	s.end()
}
