package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/contend/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Source   string // optional - filter to one engine
}

// TraceResult holds the events of one recorded run.
type TraceResult struct {
	RunID    string           `json:"run_id"`
	Config   json.RawMessage  `json:"config"`
	Timeline []journal.Record `json:"timeline"`
	Stats    TraceStats       `json:"stats"`
}

// TraceStats holds summary statistics for a trace.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	Buffer      int            `json:"buffer"`
	Ring        int            `json:"ring"`
	ByKind      map[string]int `json:"by_kind"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show events recorded in a journal",
		Long: `Read a SQLite journal written by run --journal or shell --journal.

Without --run, lists the recorded runs. With --run, prints that run's
events ordered by sequence number.

Examples:
  contend trace --db run.db
  contend trace --db run.db --run 01928f3e-...
  contend trace --db run.db --run 01928f3e-... --source ring --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace (lists runs when empty)")
	cmd.Flags().StringVar(&opts.Source, "source", "", "filter to one source: buffer or ring")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	source := journal.Source(opts.Source)
	switch source {
	case "", journal.SourceBuffer, journal.SourceRing:
	default:
		_ = formatter.Error(ErrCodeInvalidParams, fmt.Sprintf("unknown source %q", opts.Source), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown source %q: must be buffer or ring", opts.Source))
	}

	// Open would create an empty journal; a missing file is a usage error.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeJournal, "journal not found", opts.Database)
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, "failed to open journal", err.Error())
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	if opts.RunID == "" {
		return listRuns(ctx, j, formatter)
	}

	run, err := j.ReadRun(ctx, opts.RunID)
	if errors.Is(err, journal.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	records, err := j.ReadEvents(ctx, run.ID, source)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := TraceResult{
		RunID:    run.ID,
		Config:   run.Config,
		Timeline: records,
		Stats:    traceStats(records),
	}
	if result.Timeline == nil {
		result.Timeline = []journal.Record{}
	}

	if formatter.JSON() {
		return encodeJSON(formatter, CLIResponse{Status: "ok", Data: result, RunID: run.ID})
	}
	return outputTraceText(cmd, result)
}

func listRuns(ctx context.Context, j *journal.Journal, formatter *OutputFormatter) error {
	runs, err := j.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if runs == nil {
		runs = []journal.Run{}
	}
	if formatter.JSON() {
		return formatter.Success(runs, "")
	}

	if len(runs) == 0 {
		return formatter.Success(nil, "No runs recorded.")
	}
	w := formatter.Writer
	fmt.Fprintf(w, "%-36s  %6s  %s\n", "RUN", "EVENTS", "CONFIG HASH")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %6d  %s\n", r.ID, r.Events, shortHash(r.ConfigHash))
	}
	return nil
}

func traceStats(records []journal.Record) TraceStats {
	stats := TraceStats{
		TotalEvents: len(records),
		ByKind:      make(map[string]int),
	}
	for _, r := range records {
		switch r.Source {
		case journal.SourceBuffer:
			stats.Buffer++
		case journal.SourceRing:
			stats.Ring++
		}
		stats.ByKind[string(r.Source)+"."+r.Kind]++
	}
	return stats
}

func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Config: %s\n\n", result.Config)

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No events recorded.")
		return nil
	}

	fmt.Fprintln(w, "Timeline:")
	for _, r := range result.Timeline {
		fmt.Fprintf(w, "  [%4d] %-6s %-10s %s\n", r.Seq, r.Source, r.Kind, r.Payload)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d events (%d buffer, %d ring)\n", result.Stats.TotalEvents, result.Stats.Buffer, result.Stats.Ring)

	kinds := make([]string, 0, len(result.Stats.ByKind))
	for k := range result.Stats.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-20s %d\n", k, result.Stats.ByKind[k])
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
