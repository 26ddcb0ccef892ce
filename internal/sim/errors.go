package sim

import (
	"errors"
	"fmt"
)

// Code categorizes engine outcomes.
type Code string

const (
	// CodeFull indicates a produce against a buffer at capacity.
	CodeFull Code = "FULL"

	// CodeEmpty indicates a consume against an empty buffer.
	CodeEmpty Code = "EMPTY"

	// CodeResourceHeld indicates at least one adjacent resource is held by a neighbor.
	CodeResourceHeld Code = "RESOURCE_HELD"

	// CodeNotActive indicates a release of an actor that holds nothing.
	CodeNotActive Code = "NOT_ACTIVE"

	// CodeAlreadyActive indicates an activation request from an actor that is already Active.
	CodeAlreadyActive Code = "ALREADY_ACTIVE"

	// CodeInvalidActorID indicates an actor id outside 0..n-1.
	CodeInvalidActorID Code = "INVALID_ACTOR_ID"

	// CodeInvalidCapacity indicates a non-positive buffer capacity.
	CodeInvalidCapacity Code = "INVALID_CAPACITY"

	// CodeInvalidActorCount indicates a ring with fewer than two actors.
	CodeInvalidActorCount Code = "INVALID_ACTOR_COUNT"

	// CodeUnsubscribed indicates a read from a subscription that has ended.
	CodeUnsubscribed Code = "UNSUBSCRIBED"
)

// Sentinels for errors.Is matching. Comparison is by Code only, so a
// returned error carrying extra context still matches its sentinel.
var (
	ErrFull              = NewError(CodeFull, "buffer is full")
	ErrEmpty             = NewError(CodeEmpty, "buffer is empty")
	ErrResourceHeld      = NewError(CodeResourceHeld, "adjacent resource held")
	ErrNotActive         = NewError(CodeNotActive, "actor is not active")
	ErrAlreadyActive     = NewError(CodeAlreadyActive, "actor is already active")
	ErrInvalidActorID    = NewError(CodeInvalidActorID, "invalid actor id")
	ErrInvalidCapacity   = NewError(CodeInvalidCapacity, "capacity must be positive")
	ErrInvalidActorCount = NewError(CodeInvalidActorCount, "actor count must be at least 2")
	ErrUnsubscribed      = NewError(CodeUnsubscribed, "subscription ended")
)

// Error is a recoverable engine outcome.
//
// Error values are results, not failures of the engine: the operation that
// returned one left all engine state as it was before the call.
type Error struct {
	// Code identifies the outcome category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Actor is the actor id the outcome refers to, or -1 when not applicable.
	Actor int

	// Details contains additional context (e.g. which resource was held).
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Actor >= 0 {
		return fmt.Sprintf("%s: %s (actor=%d)", e.Code, e.Message, e.Actor)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the Code of err, or "" if err is nil or not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// NewError creates an Error not tied to an actor.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Actor: -1}
}

// NewActorError creates an Error scoped to a specific actor.
func NewActorError(code Code, actor int, message string) *Error {
	return &Error{Code: code, Message: message, Actor: actor}
}
