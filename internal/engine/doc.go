// Package engine is the façade hosts use to drive a simulation.
//
// An Engine owns one bounded buffer of int64 items and one resource ring,
// both sized from a config.Config. It exposes them three ways:
//
//   - Direct access via Buffer() and Ring() for Go callers.
//   - Execute(Command) Result, a JSON-friendly request/response pair used
//     by the shell command and the scenario harness.
//   - Run(ctx, ticker), which drives the ring with the configured policy
//     until the step limit, a context end, or a non-engine error.
//
// The two engines inside share nothing. Each has its own clock, so event
// sequence numbers are ordered per engine only.
//
// Record attaches a journal.Journal: every event both engines publish is
// written under the engine's run id until the Recorder is stopped.
//
// Thread-safety model:
//   - Execute, Buffer(), Ring(), Snapshot(): safe from any goroutine
//   - Run: one automatic run at a time
//   - SetPolicy / Reconfigure: safe while Run is active
package engine
