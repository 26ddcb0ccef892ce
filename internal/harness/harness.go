package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/contend/internal/buffer"
	"github.com/roach88/contend/internal/engine"
	"github.com/roach88/contend/internal/ring"
	"github.com/roach88/contend/internal/sim"
	"github.com/roach88/contend/internal/testutil"
)

// Harness executes one scenario against a fresh engine.
type Harness struct {
	engine    *engine.Engine
	bufferSub *sim.Subscription[buffer.Event[int64]]
	ringSub   *sim.Subscription[ring.Event]
	result    *Result
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build an engine from the scenario config with a fixed run id
//  2. Execute each step, recording the command and the events it caused
//  3. Drive the ring for auto_steps toggles, if set
//  4. Capture final snapshots and evaluate assertions
//
// The returned error covers harness failures only. Failed expectations and
// assertions are reported through Result.Pass and Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	cfg := scenario.Config
	cfg.Steps = scenario.AutoSteps
	cfg.ResetOnStop = false

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng, err := engine.New(cfg,
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Close()

	h := &Harness{
		engine:    eng,
		bufferSub: eng.Buffer().Subscribe(),
		ringSub:   eng.Ring().Subscribe(),
		result:    NewResult(),
		logger:    logger,
	}
	defer h.bufferSub.Unsubscribe()
	defer h.ringSub.Unsubscribe()

	if err := h.executeSteps(scenario.Steps); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	if scenario.AutoSteps > 0 {
		if _, err := eng.Run(context.Background(), sim.ImmediateTicker{}); err != nil {
			return nil, fmt.Errorf("automatic run failed: %w", err)
		}
		h.collectEvents()
	}

	h.result.Buffer = eng.Buffer().Snapshot()
	h.result.Ring = eng.Ring().Snapshot()

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func (h *Harness) executeSteps(steps []Step) error {
	for i, step := range steps {
		cmd, err := engine.ParseCommand(step.Do)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}

		res := h.engine.Execute(cmd)
		h.result.AddCommandTrace(cmd, res)
		h.collectEvents()

		if step.Expect != nil {
			for _, msg := range checkExpect(step.Expect, res) {
				h.result.AddError(fmt.Sprintf("steps[%d] %q: %s", i, step.Do, msg))
			}
		}
	}
	return nil
}

// collectEvents moves every queued event into the trace. A single command
// touches one engine, so draining buffer then ring keeps causal order.
func (h *Harness) collectEvents() {
	for {
		ev, ok := h.bufferSub.TryNext()
		if !ok {
			break
		}
		h.result.AddBufferTrace(ev)
	}
	for {
		ev, ok := h.ringSub.TryNext()
		if !ok {
			break
		}
		h.result.AddRingTrace(ev)
	}
}

func checkExpect(want *Expect, got engine.Result) []string {
	var errs []string
	if string(got.Status) != want.Status {
		errs = append(errs, fmt.Sprintf("expected status %s, got %s (%s)", want.Status, got.Status, got.Message))
	}
	if want.Code != "" && string(got.Code) != want.Code {
		errs = append(errs, fmt.Sprintf("expected code %s, got %q", want.Code, got.Code))
	}
	if want.Item != nil {
		switch {
		case got.Item == nil:
			errs = append(errs, fmt.Sprintf("expected item %d, got none", *want.Item))
		case *got.Item != *want.Item:
			errs = append(errs, fmt.Sprintf("expected item %d, got %d", *want.Item, *got.Item))
		}
	}
	if want.Size != nil {
		switch {
		case got.Size == nil:
			errs = append(errs, fmt.Sprintf("expected size %d, got none", *want.Size))
		case *got.Size != *want.Size:
			errs = append(errs, fmt.Sprintf("expected size %d, got %d", *want.Size, *got.Size))
		}
	}
	return errs
}
