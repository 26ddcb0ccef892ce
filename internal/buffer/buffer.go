package buffer

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/eapache/queue"

	"github.com/roach88/contend/internal/sim"
)

// DefaultCapacity is the buffer size used when none is configured.
const DefaultCapacity = 5

// Buffer is a fixed-capacity FIFO.
//
// Thread-safety: every method runs to completion under one mutex, so calls on
// the same Buffer are totally ordered. Events are published before the lock
// is released, so subscribers see them in that same order.
//
// INVARIANTS:
//   - 0 <= Len() <= Capacity() at all times
//   - the k-th consumed item is the k-th produced item (since the last reset)
type Buffer[T any] struct {
	mu       sync.Mutex
	capacity int
	items    *queue.Queue
	clock    *sim.Clock
	bus      *sim.Bus[Event[T]]
	logger   *slog.Logger
}

// Option configures a Buffer.
type Option func(*options)

type options struct {
	clock  *sim.Clock
	logger *slog.Logger
}

// WithClock stamps events with seqs from c instead of a private clock.
func WithClock(c *sim.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the buffer's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates an empty buffer holding at most capacity items.
// Returns sim.ErrInvalidCapacity if capacity is not positive.
func New[T any](capacity int, opts ...Option) (*Buffer[T], error) {
	if capacity <= 0 {
		return nil, sim.NewError(sim.CodeInvalidCapacity,
			fmt.Sprintf("capacity must be positive, got %d", capacity))
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = sim.NewClock()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Buffer[T]{
		capacity: capacity,
		items:    queue.New(),
		clock:    o.clock,
		bus:      sim.NewBus[Event[T]](),
		logger:   o.logger,
	}, nil
}

// Produce appends item to the tail.
// Returns sim.ErrFull, leaving the buffer unchanged, if it is at capacity.
func (b *Buffer[T]) Produce(item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.items.Length() >= b.capacity {
		b.logger.Debug("produce rejected", "size", b.items.Length(), "capacity", b.capacity)
		return sim.NewError(sim.CodeFull,
			fmt.Sprintf("buffer is full (%d/%d)", b.items.Length(), b.capacity))
	}

	b.items.Add(item)
	b.publish(EventProduced, item)
	return nil
}

// Consume removes and returns the head item.
// Returns sim.ErrEmpty if there is nothing to consume.
func (b *Buffer[T]) Consume() (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if b.items.Length() == 0 {
		b.logger.Debug("consume rejected", "size", 0)
		return zero, sim.NewError(sim.CodeEmpty, "buffer is empty")
	}

	item := b.items.Remove().(T)
	b.publish(EventConsumed, item)
	return item, nil
}

// Reset removes all items. Capacity is unchanged. Always succeeds.
func (b *Buffer[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = queue.New()
	var zero T
	b.publish(EventReset, zero)
}

// Snapshot returns a copy of the current items in FIFO order.
func (b *Buffer[T]) Snapshot() Snapshot[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := make([]T, b.items.Length())
	for i := range items {
		items[i] = b.items.Get(i).(T)
	}
	return Snapshot[T]{Items: items, Capacity: b.capacity}
}

// Len returns the number of buffered items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items.Length()
}

// Capacity returns the fixed capacity.
func (b *Buffer[T]) Capacity() int {
	return b.capacity
}

// Subscribe returns a subscription to events published from now on.
func (b *Buffer[T]) Subscribe() *sim.Subscription[Event[T]] {
	return b.bus.Subscribe()
}

// Close ends all subscriptions. The buffer itself remains usable.
func (b *Buffer[T]) Close() {
	b.bus.Close()
}

// publish stamps and emits an event. Callers must hold b.mu.
func (b *Buffer[T]) publish(kind EventKind, item T) {
	ev := Event[T]{
		Kind: kind,
		Item: item,
		Size: b.items.Length(),
		Seq:  b.clock.Next(),
	}
	b.logger.Debug("buffer event", "kind", kind, "size", ev.Size, "seq", ev.Seq)
	b.bus.Publish(ev)
}
