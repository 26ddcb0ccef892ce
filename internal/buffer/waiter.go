package buffer

import (
	"context"
	"errors"

	"github.com/roach88/contend/internal/sim"
)

// Waiter adds blocking produce/consume on top of a Buffer.
//
// The Buffer stays non-blocking; Waiter retries after every buffer event until
// the operation succeeds or ctx is done. It subscribes before each attempt so a
// state change between a rejection and the wait is never missed.
type Waiter[T any] struct {
	buf *Buffer[T]
}

// NewWaiter wraps buf.
func NewWaiter[T any](buf *Buffer[T]) *Waiter[T] {
	return &Waiter[T]{buf: buf}
}

// Produce appends item, waiting for space while the buffer is full.
func (w *Waiter[T]) Produce(ctx context.Context, item T) error {
	sub := w.buf.Subscribe()
	defer sub.Unsubscribe()

	for {
		err := w.buf.Produce(item)
		if !errors.Is(err, sim.ErrFull) {
			return err
		}
		if err := waitForChange(ctx, sub); err != nil {
			return err
		}
	}
}

// Consume removes the head item, waiting while the buffer is empty.
func (w *Waiter[T]) Consume(ctx context.Context) (T, error) {
	sub := w.buf.Subscribe()
	defer sub.Unsubscribe()

	for {
		item, err := w.buf.Consume()
		if !errors.Is(err, sim.ErrEmpty) {
			return item, err
		}
		if err := waitForChange(ctx, sub); err != nil {
			var zero T
			return zero, err
		}
	}
}

// waitForChange blocks until at least one buffer event arrives, then discards
// everything queued so the next attempt sees current state.
func waitForChange[T any](ctx context.Context, sub *sim.Subscription[Event[T]]) error {
	if _, err := sub.Next(ctx); err != nil {
		return err
	}
	for {
		if _, ok := sub.TryNext(); !ok {
			return nil
		}
	}
}
