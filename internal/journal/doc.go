// Package journal records simulation runs and their events in SQLite.
//
// A journal is an export: runs are written while a simulation executes and
// read back by the trace command. Nothing is ever replayed into an engine.
//
// Event rows are content-addressed. The id of an event is the canonical hash
// of (run, source, seq), so writing the same event twice is a no-op.
package journal
