package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/roach88/contend/internal/sim"
)

// Drain returns every event queued on sub without blocking.
func Drain[E any](sub *sim.Subscription[E]) []E {
	var out []E
	for {
		e, ok := sub.TryNext()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

// Collect waits for exactly n events on sub, failing the test after timeout.
func Collect[E any](t testing.TB, sub *sim.Subscription[E], n int, timeout time.Duration) []E {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out := make([]E, 0, n)
	for len(out) < n {
		e, err := sub.Next(ctx)
		if err != nil {
			t.Fatalf("collected %d of %d events: %v", len(out), n, err)
		}
		out = append(out, e)
	}
	return out
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
