package sim

import (
	"context"
	"time"
)

// Ticker decides when a Driver takes its next step.
//
// Wait blocks until the next tick or until ctx is done. Engines never consult
// a Ticker for correctness; it only paces automatic mode.
type Ticker interface {
	Wait(ctx context.Context) error
}

// IntervalTicker ticks on a wall-clock interval.
type IntervalTicker struct {
	t *time.Ticker
}

// NewIntervalTicker creates a ticker firing every d. d must be positive.
func NewIntervalTicker(d time.Duration) *IntervalTicker {
	return &IntervalTicker{t: time.NewTicker(d)}
}

// Wait blocks until the next interval elapses.
func (it *IntervalTicker) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-it.t.C:
		return nil
	}
}

// Stop releases the underlying timer.
func (it *IntervalTicker) Stop() {
	it.t.Stop()
}

// ImmediateTicker ticks as fast as the driver can step.
// Useful for headless runs and benchmarks.
type ImmediateTicker struct{}

// Wait returns immediately unless ctx is already done.
func (ImmediateTicker) Wait(ctx context.Context) error {
	return ctx.Err()
}

// ManualTicker ticks only when Step is called.
//
// Tests use it to advance a Driver one step at a time with no sleeps.
type ManualTicker struct {
	ch chan struct{}
}

// NewManualTicker creates a ticker that waits for Step.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan struct{})}
}

// Wait blocks until Step is called.
func (mt *ManualTicker) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-mt.ch:
		return nil
	}
}

// Step releases exactly one pending Wait, blocking until a waiter takes it
// or ctx is done.
func (mt *ManualTicker) Step(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case mt.ch <- struct{}{}:
		return nil
	}
}
