package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/contend/internal/buffer"
	"github.com/roach88/contend/internal/ring"
	"github.com/roach88/contend/internal/sim"
)

// Op names a command.
type Op string

const (
	OpProduce     Op = "produce"
	OpConsume     Op = "consume"
	OpResetBuffer Op = "reset-buffer"
	OpActivate    Op = "activate"
	OpRelease     Op = "release"
	OpToggle      Op = "toggle"
	OpResetRing   Op = "reset-ring"
	OpSnapshot    Op = "snapshot"
	OpCheck       Op = "check"
)

// Status is the outcome of a command.
type Status string

const (
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusActivated Status = "activated"
	StatusDenied    Status = "denied"
	StatusReleased  Status = "released"
	StatusNoOp      Status = "noop"
	StatusOK        Status = "ok"
	StatusViolation Status = "violation"
	StatusInvalid   Status = "invalid"
)

// CodeInvalidCommand marks a command that could not be dispatched.
const CodeInvalidCommand sim.Code = "INVALID_COMMAND"

// Command is one request to an Engine.
type Command struct {
	Op    Op     `json:"op"`
	Item  *int64 `json:"item,omitempty"`
	Actor *int   `json:"actor,omitempty"`
}

// String renders the command in shell syntax.
func (c Command) String() string {
	var b strings.Builder
	switch c.Op {
	case OpResetBuffer:
		b.WriteString("reset buffer")
	case OpResetRing:
		b.WriteString("reset ring")
	default:
		b.WriteString(string(c.Op))
	}
	if c.Item != nil {
		fmt.Fprintf(&b, " %d", *c.Item)
	}
	if c.Actor != nil {
		fmt.Fprintf(&b, " %d", *c.Actor)
	}
	return b.String()
}

// Result is the response to a Command.
type Result struct {
	Op      Op       `json:"op"`
	Status  Status   `json:"status"`
	Code    sim.Code `json:"code,omitempty"`
	Message string   `json:"message,omitempty"`

	// Item is the produced or consumed item.
	Item *int64 `json:"item,omitempty"`

	// Actor is the actor addressed by a ring command.
	Actor *int `json:"actor,omitempty"`

	// Size is the buffer length after a buffer command.
	Size *int `json:"size,omitempty"`

	Buffer *buffer.Snapshot[int64] `json:"buffer,omitempty"`
	Ring   *ring.Snapshot          `json:"ring,omitempty"`
}

// OK reports whether the command changed state or read it successfully.
func (r Result) OK() bool {
	switch r.Status {
	case StatusAccepted, StatusActivated, StatusReleased, StatusOK:
		return true
	}
	return false
}

// ParseCommand parses shell syntax:
//
//	produce [item]
//	consume
//	activate <actor>
//	release <actor>
//	toggle <actor>
//	reset buffer|ring
//	snapshot
//	check
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errors.New("empty command")
	}

	op, args := fields[0], fields[1:]
	switch Op(op) {
	case OpProduce:
		if len(args) > 1 {
			return Command{}, fmt.Errorf("produce takes at most one item")
		}
		cmd := Command{Op: OpProduce}
		if len(args) == 1 {
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return Command{}, fmt.Errorf("produce: invalid item %q", args[0])
			}
			cmd.Item = &n
		}
		return cmd, nil

	case OpConsume, OpSnapshot, OpCheck, OpResetBuffer, OpResetRing:
		if len(args) != 0 {
			return Command{}, fmt.Errorf("%s takes no arguments", op)
		}
		return Command{Op: Op(op)}, nil

	case OpActivate, OpRelease, OpToggle:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%s takes exactly one actor id", op)
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("%s: invalid actor id %q", op, args[0])
		}
		return Command{Op: Op(op), Actor: &id}, nil

	case "reset":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("reset takes buffer or ring")
		}
		switch args[0] {
		case "buffer":
			return Command{Op: OpResetBuffer}, nil
		case "ring":
			return Command{Op: OpResetRing}, nil
		}
		return Command{}, fmt.Errorf("reset: unknown target %q", args[0])
	}

	return Command{}, fmt.Errorf("unknown command %q", op)
}

// Execute dispatches cmd. It never panics on bad input: malformed commands
// yield StatusInvalid with CodeInvalidCommand.
func (e *Engine) Execute(cmd Command) Result {
	res := Result{Op: cmd.Op}

	switch cmd.Op {
	case OpProduce:
		item := e.itemFor(cmd)
		res.Item = &item
		if err := e.buffer.Produce(item); err != nil {
			return withError(res, StatusRejected, err)
		}
		res.Status = StatusAccepted
		res.Size = ptr(e.buffer.Len())

	case OpConsume:
		item, err := e.buffer.Consume()
		if err != nil {
			return withError(res, StatusRejected, err)
		}
		res.Status = StatusAccepted
		res.Item = &item
		res.Size = ptr(e.buffer.Len())

	case OpResetBuffer:
		e.buffer.Reset()
		res.Status = StatusOK
		res.Size = ptr(0)

	case OpActivate, OpRelease, OpToggle:
		if cmd.Actor == nil {
			return invalid(res, fmt.Sprintf("%s requires an actor", cmd.Op))
		}
		res.Actor = cmd.Actor
		return e.executeRing(cmd.Op, *cmd.Actor, res)

	case OpResetRing:
		e.ring.Reset()
		res.Status = StatusOK

	case OpSnapshot:
		b := e.buffer.Snapshot()
		r := e.ring.Snapshot()
		res.Status = StatusOK
		res.Buffer = &b
		res.Ring = &r

	case OpCheck:
		if err := e.ring.Check(); err != nil {
			res.Status = StatusViolation
			res.Message = err.Error()
			return res
		}
		res.Status = StatusOK

	default:
		return invalid(res, fmt.Sprintf("unknown op %q", cmd.Op))
	}

	return res
}

func (e *Engine) executeRing(op Op, id int, res Result) Result {
	switch op {
	case OpActivate:
		if err := e.ring.RequestActivate(id); err != nil {
			return withError(res, StatusDenied, err)
		}
		res.Status = StatusActivated

	case OpRelease:
		if err := e.ring.Release(id); err != nil {
			return withError(res, StatusNoOp, err)
		}
		res.Status = StatusReleased

	case OpToggle:
		kind, err := e.ring.Toggle(id)
		if err != nil {
			return withError(res, StatusDenied, err)
		}
		if kind == ring.EventReleased {
			res.Status = StatusReleased
		} else {
			res.Status = StatusActivated
		}
	}
	return res
}

func (e *Engine) itemFor(cmd Command) int64 {
	if cmd.Item != nil {
		return *cmd.Item
	}
	return e.nextItem()
}

// withError fills in an engine outcome. An invalid actor id is reported as
// StatusInvalid regardless of the op.
func withError(res Result, status Status, err error) Result {
	code := sim.CodeOf(err)
	if code == sim.CodeInvalidActorID {
		status = StatusInvalid
	}
	res.Status = status
	res.Code = code
	res.Message = err.Error()
	return res
}

func invalid(res Result, msg string) Result {
	res.Status = StatusInvalid
	res.Code = CodeInvalidCommand
	res.Message = msg
	return res
}

func ptr[T any](v T) *T {
	return &v
}
