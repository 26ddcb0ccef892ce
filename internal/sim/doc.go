// Package sim holds the pieces shared by the contention engines.
//
// ARCHITECTURE:
//
// Logical Clock:
// Every state change on an engine instance is stamped with a seq from that
// instance's Clock. Seq values order events; wall-clock time never does.
//
// Event Bus:
// Engines publish one event per successful mutation while still holding their
// mutation lock, so each subscriber observes events in mutation order.
// Publishing never blocks: every subscription owns an unbounded FIFO.
//
// Tickers and Driver:
// A Driver advances a Stepper once per tick. Tickers decide when a tick
// happens (wall-clock interval, manual stepping in tests, or immediately),
// which keeps engine logic independent of real timers.
//
// Errors:
// Expected outcomes (Full, Empty, ResourceHeld, ...) are *Error values with a
// Code. They are returned, never panicked, and never leave an engine in a
// partially mutated state.
package sim
