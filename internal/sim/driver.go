package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

// Stepper performs one unit of automatic work per tick.
type Stepper interface {
	Step(ctx context.Context) error
}

// StepFunc adapts a function to the Stepper interface.
type StepFunc func(ctx context.Context) error

// Step calls f(ctx).
func (f StepFunc) Step(ctx context.Context) error {
	return f(ctx)
}

// Driver runs a Stepper once per tick.
//
// Step outcomes that are *Error values (denials, rejections) are expected
// and only logged. Any other step error stops the driver.
type Driver struct {
	ticker   Ticker
	stepper  Stepper
	maxSteps int
	logger   *slog.Logger
	steps    atomic.Int64
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithMaxSteps stops the driver after n steps. Zero means unbounded.
func WithMaxSteps(n int) DriverOption {
	return func(d *Driver) {
		d.maxSteps = n
	}
}

// WithDriverLogger sets the driver's logger.
func WithDriverLogger(l *slog.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = l
	}
}

// NewDriver creates a driver pacing stepper with ticker.
func NewDriver(ticker Ticker, stepper Stepper, opts ...DriverOption) *Driver {
	d := &Driver{
		ticker:  ticker,
		stepper: stepper,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run blocks until ctx is done, the step limit is reached, or a step fails
// with a non-engine error. Reaching the step limit returns nil.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Info("driver starting", "max_steps", d.maxSteps)

	for {
		if d.maxSteps > 0 && d.steps.Load() >= int64(d.maxSteps) {
			d.logger.Info("driver stopping: step limit reached", "steps", d.steps.Load())
			return nil
		}

		if err := d.ticker.Wait(ctx); err != nil {
			d.logger.Info("driver stopping: context done", "steps", d.steps.Load())
			return err
		}

		n := d.steps.Add(1)
		if err := d.stepper.Step(ctx); err != nil {
			var se *Error
			if errors.As(err, &se) {
				d.logger.Debug("step outcome", "step", n, "code", se.Code, "actor", se.Actor)
				continue
			}
			return fmt.Errorf("step %d: %w", n, err)
		}
	}
}

// Steps returns the number of steps taken so far.
func (d *Driver) Steps() int64 {
	return d.steps.Load()
}
