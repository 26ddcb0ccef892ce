package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/contend/internal/canon"
)

// Source names the engine that emitted an event.
type Source string

const (
	SourceBuffer Source = "buffer"
	SourceRing   Source = "ring"
)

// Run is one recorded simulation run.
type Run struct {
	ID         string          `json:"id"`
	Config     json.RawMessage `json:"config"`
	ConfigHash string          `json:"config_hash"`

	// Events is filled in by ListRuns.
	Events int `json:"events"`
}

// Record is one journaled engine event.
type Record struct {
	ID      string          `json:"id"`
	RunID   string          `json:"run_id"`
	Source  Source          `json:"source"`
	Seq     int64           `json:"seq"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// EventID computes the content-addressed id of an event.
func EventID(runID string, source Source, seq int64) (string, error) {
	return canon.Hash(canon.DomainEvent, map[string]any{
		"run_id": runID,
		"source": string(source),
		"seq":    seq,
	})
}

// WriteRun inserts a run row. The config is stored as canonical JSON.
// Uses ON CONFLICT(id) DO NOTHING so recording the same run twice is harmless.
func (j *Journal) WriteRun(ctx context.Context, id string, cfg any) error {
	cfgJSON, err := canon.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	cfgHash, err := canon.Hash(canon.DomainRun, cfg)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO runs (id, config, config_hash)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, string(cfgJSON), cfgHash)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteEvent inserts one event. The payload is stored as canonical JSON.
//
// Uses ON CONFLICT DO NOTHING: a duplicate (run, source, seq) is silently
// ignored. The run must already exist (foreign key constraint).
func (j *Journal) WriteEvent(ctx context.Context, runID string, source Source, seq int64, kind string, payload any) (Record, error) {
	id, err := EventID(runID, source, seq)
	if err != nil {
		return Record{}, fmt.Errorf("write event: %w", err)
	}
	payloadJSON, err := canon.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("write event: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO events (id, run_id, source, seq, kind, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, id, runID, string(source), seq, kind, string(payloadJSON))
	if err != nil {
		return Record{}, fmt.Errorf("write event: %w", err)
	}

	return Record{
		ID:      id,
		RunID:   runID,
		Source:  source,
		Seq:     seq,
		Kind:    kind,
		Payload: payloadJSON,
	}, nil
}
