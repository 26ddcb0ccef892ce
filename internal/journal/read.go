package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned by ReadRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// ReadRun returns a single run.
func (j *Journal) ReadRun(ctx context.Context, id string) (Run, error) {
	var r Run
	var cfg string
	err := j.db.QueryRowContext(ctx, `
		SELECT r.id, r.config, r.config_hash, COUNT(e.id)
		FROM runs r LEFT JOIN events e ON e.run_id = r.id
		WHERE r.id = ?
		GROUP BY r.id
	`, id).Scan(&r.ID, &cfg, &r.ConfigHash, &r.Events)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	r.Config = []byte(cfg)
	return r, nil
}

// ListRuns returns every run ordered by id. Run ids are UUIDv7, so this is
// creation order.
func (j *Journal) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.query(ctx, `
		SELECT r.id, r.config, r.config_hash, COUNT(e.id)
		FROM runs r LEFT JOIN events e ON e.run_id = r.id
		GROUP BY r.id
		ORDER BY r.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var cfg string
		if err := rows.Scan(&r.ID, &cfg, &r.ConfigHash, &r.Events); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		r.Config = []byte(cfg)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ReadEvents returns the events of a run, optionally filtered to one source.
// Ordering is deterministic: seq, then source, then id.
func (j *Journal) ReadEvents(ctx context.Context, runID string, source Source) ([]Record, error) {
	query := `
		SELECT id, run_id, source, seq, kind, payload
		FROM events
		WHERE run_id = ?`
	args := []any{runID}
	if source != "" {
		query += ` AND source = ?`
		args = append(args, string(source))
	}
	query += `
		ORDER BY seq ASC, source ASC, id ASC`

	rows, err := j.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var src, payload string
		if err := rows.Scan(&r.ID, &r.RunID, &src, &r.Seq, &r.Kind, &payload); err != nil {
			return nil, fmt.Errorf("read events: %w", err)
		}
		r.Source = Source(src)
		r.Payload = []byte(payload)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return records, nil
}
