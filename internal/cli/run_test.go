package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contend/internal/journal"
	"github.com/roach88/contend/internal/testutil"
)

func newTestRunCommand(format, runID string) (*bytes.Buffer, *RunOptions) {
	return &bytes.Buffer{}, &RunOptions{
		RootOptions: &RootOptions{Format: format},
		RunIDs:      testutil.NewFixedRunIDGenerator(runID),
	}
}

func executeRun(t *testing.T, opts *RunOptions, buf *bytes.Buffer, args ...string) error {
	t.Helper()
	cmd := newRunCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestRunRequiresPolicy(t *testing.T) {
	buf, opts := newTestRunCommand("text", "run-1")

	err := executeRun(t, opts, buf, "--steps", "5")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "needs a policy")
}

func TestRunWatchRequiresConfig(t *testing.T) {
	buf, opts := newTestRunCommand("text", "run-1")

	err := executeRun(t, opts, buf, "--policy", "round-robin", "--watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--watch requires --config")
}

func TestRunInvalidOverride(t *testing.T) {
	buf, opts := newTestRunCommand("text", "run-1")

	err := executeRun(t, opts, buf, "--policy", "round-robin", "--actors", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRunRoundRobinJSON(t *testing.T) {
	buf, opts := newTestRunCommand("json", "run-rr")

	err := executeRun(t, opts, buf, "--policy", "round-robin", "--steps", "40", "--tick", "0s")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-rr", resp.Data.RunID)
	assert.Equal(t, "round-robin", resp.Data.Policy)
	assert.Equal(t, int64(40), resp.Data.Steps)
	require.Len(t, resp.Data.Actors, 5)
	for _, a := range resp.Data.Actors {
		assert.Equal(t, 2, a.Activations, "actor %d", a.ID)
	}
	assert.Empty(t, resp.Data.Starved)
}

func TestRunTextPrintsEventsAndSummary(t *testing.T) {
	buf, opts := newTestRunCommand("text", "run-text")

	err := executeRun(t, opts, buf, "--policy", "round-robin", "--steps", "3", "--tick", "0s", "--actors", "3")
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "actor 0 activated")
	assert.Contains(t, output, "Run run-text: 3 steps with round-robin")
	assert.Contains(t, output, "ACTIVATIONS")
}

func TestRunConfigFileWithFlagOverride(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), "sim.yaml", `
actor_count: 4
policy:
  kind: random
  seed: 9
steps: 100
tick: 0s
`)
	buf, opts := newTestRunCommand("json", "run-cfg")

	err := executeRun(t, opts, buf, "--config", cfgPath, "--steps", "12")
	require.NoError(t, err)

	var resp struct {
		Data RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "random", resp.Data.Policy)
	assert.Equal(t, int64(12), resp.Data.Steps, "--steps overrides the file")
	assert.Len(t, resp.Data.Actors, 4)
}

func TestRunResetOnStop(t *testing.T) {
	buf, opts := newTestRunCommand("json", "run-reset")

	err := executeRun(t, opts, buf, "--policy", "round-robin", "--steps", "7", "--tick", "0s", "--reset-on-stop")
	require.NoError(t, err)

	var resp struct {
		Data RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	for _, a := range resp.Data.Actors {
		assert.Equal(t, "thinking", a.State)
		assert.Zero(t, a.Activations)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	buf, opts := newTestRunCommand("json", "run-cancel")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	cmd := newRunCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--policy", "random", "--tick", "5ms"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err, "cancellation is a clean stop")
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after context cancellation")
	}

	var resp struct {
		Data RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Positive(t, resp.Data.Steps)
}

func TestRunWritesJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "run.db")
	buf, opts := newTestRunCommand("json", "run-journal")

	err := executeRun(t, opts, buf, "--policy", "round-robin", "--steps", "10", "--tick", "0s", "--journal", dbPath)
	require.NoError(t, err)

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	run, err := j.ReadRun(t.Context(), "run-journal")
	require.NoError(t, err)
	assert.Positive(t, run.Events)
	assert.Contains(t, string(run.Config), `"round-robin"`)

	records, err := j.ReadEvents(t.Context(), "run-journal", journal.SourceRing)
	require.NoError(t, err)
	assert.Len(t, records, run.Events, "a ring-only run journals ring events only")
}
