package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/contend/internal/buffer"
	"github.com/roach88/contend/internal/journal"
	"github.com/roach88/contend/internal/ring"
	"github.com/roach88/contend/internal/sim"
)

// Recorder copies engine events into a journal until stopped.
//
// Write failures are logged and counted; they never interrupt the simulation.
type Recorder struct {
	journal *journal.Journal
	runID   string
	logger  *slog.Logger

	bufferSub *sim.Subscription[buffer.Event[int64]]
	ringSub   *sim.Subscription[ring.Event]

	wg      sync.WaitGroup
	written atomic.Int64
	failed  atomic.Int64
}

// Record writes the run row for e and starts copying every subsequent event
// from both engines into j. Events published before Record are not journaled.
//
// Cancelling ctx does not stop the recorder; Stop does, after the events
// already published have been written.
func (e *Engine) Record(ctx context.Context, j *journal.Journal) (*Recorder, error) {
	if err := j.WriteRun(ctx, e.runID, e.Config()); err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}

	rec := &Recorder{
		journal:   j,
		runID:     e.runID,
		logger:    e.logger,
		bufferSub: e.buffer.Subscribe(),
		ringSub:   e.ring.Subscribe(),
	}

	ctx = context.WithoutCancel(ctx)
	rec.wg.Add(2)
	go func() {
		defer rec.wg.Done()
		drain(ctx, rec, rec.bufferSub, journal.SourceBuffer, func(ev buffer.Event[int64]) (int64, string) {
			return ev.Seq, string(ev.Kind)
		})
	}()
	go func() {
		defer rec.wg.Done()
		drain(ctx, rec, rec.ringSub, journal.SourceRing, func(ev ring.Event) (int64, string) {
			return ev.Seq, string(ev.Kind)
		})
	}()

	e.logger.Info("recording run", "run_id", e.runID)
	return rec, nil
}

func drain[E any](ctx context.Context, rec *Recorder, sub *sim.Subscription[E], source journal.Source, meta func(E) (int64, string)) {
	for ev := range sub.Events(ctx) {
		seq, kind := meta(ev)
		if _, err := rec.journal.WriteEvent(ctx, rec.runID, source, seq, kind, ev); err != nil {
			rec.failed.Add(1)
			rec.logger.Error("journal write failed",
				"run_id", rec.runID,
				"source", source,
				"seq", seq,
				"error", err,
			)
			continue
		}
		rec.written.Add(1)
	}
}

// Stop unsubscribes, waits for pending events to be written, and returns
// the number of events written.
func (r *Recorder) Stop() int64 {
	r.bufferSub.Unsubscribe()
	r.ringSub.Unsubscribe()
	r.wg.Wait()
	r.logger.Info("recording stopped",
		"run_id", r.runID,
		"written", r.written.Load(),
		"failed", r.failed.Load(),
	)
	return r.written.Load()
}

// RunID returns the run being recorded.
func (r *Recorder) RunID() string {
	return r.runID
}

// Failed returns the number of events that could not be written.
func (r *Recorder) Failed() int64 {
	return r.failed.Load()
}
