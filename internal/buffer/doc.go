// Package buffer implements a bounded FIFO shared between producers and consumers.
//
// The Buffer never blocks. Produce against a full buffer returns sim.ErrFull and
// Consume against an empty one returns sim.ErrEmpty; neither drops, overwrites,
// or partially mutates anything. Callers that want "wait until space" semantics
// wrap the buffer in a Waiter, which retries on buffer events and honors
// context cancellation.
//
// Fairness between multiple producers or consumers is not enforced here. The
// buffer sees only a totally ordered stream of calls; whoever calls first wins.
package buffer
