package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/roach88/contend/internal/buffer"
	"github.com/roach88/contend/internal/config"
	"github.com/roach88/contend/internal/ring"
	"github.com/roach88/contend/internal/sim"
)

// MaxRandomItem bounds items produced without an explicit value: [0, MaxRandomItem).
const MaxRandomItem = 100

// itemStream separates the item generator from the Random policy when both
// are seeded from the same config seed.
const itemStream = 0x5bd1e995

// Engine hosts one buffer and one ring built from a config.
type Engine struct {
	buffer *buffer.Buffer[int64]
	ring   *ring.Ring
	runID  string
	logger *slog.Logger

	mu    sync.Mutex
	cfg   config.Config
	auto  *ring.Auto
	items func() int64
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger *slog.Logger
	runIDs RunIDGenerator
	items  func() int64
}

// WithLogger sets the logger for the engine and both engines it owns.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRunIDGenerator sets the source of the engine's run id.
// Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(o *options) {
		o.runIDs = g
	}
}

// WithItemSource replaces the generator used by produce commands that carry
// no item. Default: a PCG seeded from cfg.Policy.Seed yielding [0, MaxRandomItem).
func WithItemSource(fn func() int64) Option {
	return func(o *options) {
		o.items = fn
	}
}

// New builds an Engine from cfg.
//
// Capacity and actor count errors are the *sim.Error values returned by the
// underlying constructors. An unknown policy kind is an ordinary error.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.runIDs == nil {
		o.runIDs = UUIDv7Generator{}
	}
	if o.items == nil {
		rng := rand.New(rand.NewPCG(cfg.Policy.Seed, itemStream))
		o.items = func() int64 { return rng.Int64N(MaxRandomItem) }
	}

	buf, err := buffer.New[int64](cfg.BufferCapacity, buffer.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	r, err := ring.New(cfg.ActorCount, ring.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		buffer: buf,
		ring:   r,
		runID:  o.runIDs.Generate(),
		logger: o.logger,
		cfg:    cfg,
		items:  o.items,
	}

	policy, err := NewPolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	if policy != nil {
		e.auto = ring.NewAuto(r, policy, o.logger)
	}
	return e, nil
}

// NewPolicy builds the policy named by pc. PolicyNone yields a nil policy.
func NewPolicy(pc config.PolicyConfig) (ring.Policy, error) {
	switch pc.Kind {
	case "", config.PolicyNone:
		return nil, nil
	case config.PolicyRoundRobin:
		return ring.NewRoundRobin(), nil
	case config.PolicyRandom:
		return ring.NewRandom(pc.Seed), nil
	case config.PolicyOldestFirst:
		return ring.OldestFirst(), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", pc.Kind)
	}
}

// Buffer returns the engine's bounded buffer.
func (e *Engine) Buffer() *buffer.Buffer[int64] {
	return e.buffer
}

// Ring returns the engine's resource ring.
func (e *Engine) Ring() *ring.Ring {
	return e.ring
}

// RunID returns the id under which this engine's events are journaled.
func (e *Engine) RunID() string {
	return e.runID
}

// Config returns the current configuration.
func (e *Engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Automatic reports whether a policy is installed.
func (e *Engine) Automatic() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.auto != nil
}

// SetPolicy installs the policy named by pc for automatic runs.
// Switching back to PolicyNone is refused: a running driver needs a policy.
func (e *Engine) SetPolicy(pc config.PolicyConfig) error {
	policy, err := NewPolicy(pc)
	if err != nil {
		return err
	}
	if policy == nil {
		return fmt.Errorf("cannot switch to policy %q", config.PolicyNone)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.auto == nil {
		e.auto = ring.NewAuto(e.ring, policy, e.logger)
	} else {
		e.auto.SetPolicy(policy)
	}
	e.cfg.Policy = pc
	return nil
}

// Reconfigure applies the parts of cfg that can change on a live engine:
// the policy and reset_on_stop. Capacity and actor count are fixed at
// construction; differing values are logged and ignored.
func (e *Engine) Reconfigure(cfg config.Config) error {
	current := e.Config()
	if cfg.BufferCapacity != current.BufferCapacity || cfg.ActorCount != current.ActorCount {
		e.logger.Warn("capacity and actor count changes need a restart",
			"buffer_capacity", cfg.BufferCapacity,
			"actor_count", cfg.ActorCount,
		)
	}
	if cfg.Policy != current.Policy && cfg.Automatic() {
		if err := e.SetPolicy(cfg.Policy); err != nil {
			return fmt.Errorf("reconfigure: %w", err)
		}
	}

	e.mu.Lock()
	e.cfg.ResetOnStop = cfg.ResetOnStop
	e.mu.Unlock()

	e.logger.Info("engine reconfigured", "policy", cfg.Policy.Kind, "reset_on_stop", cfg.ResetOnStop)
	return nil
}

// Run drives the ring with the installed policy, one Toggle per tick.
//
// Run stops when cfg.Steps toggles have run (if non-zero), when ctx ends,
// or when a step fails with a non-engine error. A context end is a normal
// stop and returns nil. When reset_on_stop is set the ring is reset after
// the driver stops, whatever the reason.
func (e *Engine) Run(ctx context.Context, ticker sim.Ticker) (int64, error) {
	e.mu.Lock()
	auto, cfg := e.auto, e.cfg
	e.mu.Unlock()
	if auto == nil {
		return 0, fmt.Errorf("no automatic policy configured")
	}

	d := sim.NewDriver(ticker, auto,
		sim.WithMaxSteps(cfg.Steps),
		sim.WithDriverLogger(e.logger),
	)
	err := d.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}

	if e.Config().ResetOnStop {
		e.ring.Reset()
		e.logger.Info("ring reset on stop")
	}
	return d.Steps(), err
}

// Close ends every subscription on both engines.
func (e *Engine) Close() {
	e.buffer.Close()
	e.ring.Close()
}

func (e *Engine) nextItem() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.items()
}
