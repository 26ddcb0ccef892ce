package harness

import (
	"github.com/roach88/contend/internal/buffer"
	"github.com/roach88/contend/internal/engine"
	"github.com/roach88/contend/internal/ring"
)

// Trace entry types.
const (
	TraceCommand     = "command"
	TraceEngineEvent = "event"
)

// TraceEvent is one entry in a scenario trace: either a command and its
// result, or an event published by the buffer or the ring.
type TraceEvent struct {
	Type string `json:"type"`

	// Command entries.
	Command string `json:"command,omitempty"`
	Status  string `json:"status,omitempty"`
	Code    string `json:"code,omitempty"`

	// Event entries.
	Source string `json:"source,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Seq    int64  `json:"seq,omitempty"`

	Actor *int   `json:"actor,omitempty"`
	Item  *int64 `json:"item,omitempty"`
	Size  *int   `json:"size,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds commands and events in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final state, captured after the last step.
	Buffer buffer.Snapshot[int64] `json:"buffer"`
	Ring   ring.Snapshot          `json:"ring"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddCommandTrace records a command and its result.
func (r *Result) AddCommandTrace(cmd engine.Command, res engine.Result) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    TraceCommand,
		Command: cmd.String(),
		Status:  string(res.Status),
		Code:    string(res.Code),
		Actor:   res.Actor,
		Item:    res.Item,
		Size:    res.Size,
	})
}

// AddBufferTrace records a buffer event.
func (r *Result) AddBufferTrace(ev buffer.Event[int64]) {
	te := TraceEvent{
		Type:   TraceEngineEvent,
		Source: "buffer",
		Kind:   string(ev.Kind),
		Seq:    ev.Seq,
		Size:   &ev.Size,
	}
	if ev.Kind != buffer.EventReset {
		te.Item = &ev.Item
	}
	r.Trace = append(r.Trace, te)
}

// AddRingTrace records a ring event.
func (r *Result) AddRingTrace(ev ring.Event) {
	te := TraceEvent{
		Type:   TraceEngineEvent,
		Source: "ring",
		Kind:   string(ev.Kind),
		Seq:    ev.Seq,
	}
	if ev.Actor >= 0 {
		te.Actor = &ev.Actor
	}
	r.Trace = append(r.Trace, te)
}
