package ring

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/contend/internal/sim"
)

// Auto drives a Ring with a Policy. It implements sim.Stepper.
//
// Each Step picks one actor and toggles it. Denials are returned as
// *sim.Error values, which sim.Driver treats as expected outcomes.
type Auto struct {
	ring   *Ring
	logger *slog.Logger

	mu     sync.Mutex
	policy Policy
}

// NewAuto creates an automatic stepper for r using p.
func NewAuto(r *Ring, p Policy, logger *slog.Logger) *Auto {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Auto{ring: r, policy: p, logger: logger}
}

// SetPolicy swaps the policy. The next Step uses p.
func (a *Auto) SetPolicy(p Policy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.policy = p
	a.logger.Info("automatic policy changed", "policy", fmt.Sprintf("%T", p))
}

// Step picks an actor and toggles it.
func (a *Auto) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	id := a.policy.Pick(a.ring.Snapshot())
	a.mu.Unlock()

	kind, err := a.ring.Toggle(id)
	if err != nil {
		if sim.CodeOf(err) == sim.CodeInvalidActorID {
			// A policy returning an out-of-range id is a programming error.
			return fmt.Errorf("policy picked actor %d: %v", id, err)
		}
		return err
	}
	a.logger.Debug("automatic step", "actor", id, "kind", kind)
	return nil
}
