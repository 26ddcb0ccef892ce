package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contend/internal/engine"
	"github.com/roach88/contend/internal/journal"
	"github.com/roach88/contend/internal/testutil"
)

func runShellCmd(t *testing.T, format string, input string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewShellCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestShell_BufferSession(t *testing.T) {
	input := `
# capacity two
produce 1
produce 2
produce 3
consume
consume
consume
`
	out, err := runShellCmd(t, "text", input, "--capacity", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "produce 1: accepted item=1 size=1", lines[0])
	assert.Equal(t, "produce 2: accepted item=2 size=2", lines[1])
	assert.Contains(t, lines[2], "produce 3: rejected")
	assert.Contains(t, lines[2], "FULL")
	assert.Equal(t, "consume: accepted item=1 size=1", lines[3])
	assert.Equal(t, "consume: accepted item=2 size=0", lines[4])
	assert.Contains(t, lines[5], "EMPTY")
}

func TestShell_RingSessionJSON(t *testing.T) {
	input := "activate 0\nactivate 1\nrelease 0\nactivate 9\nbogus\n"
	out, err := runShellCmd(t, "json", input, "--actors", "5")
	require.NoError(t, err)

	var results []engine.Result
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var r engine.Result
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		results = append(results, r)
	}
	require.Len(t, results, 5)

	assert.Equal(t, engine.StatusActivated, results[0].Status)
	assert.Equal(t, engine.StatusDenied, results[1].Status)
	assert.Equal(t, "RESOURCE_HELD", string(results[1].Code))
	assert.Equal(t, engine.StatusReleased, results[2].Status)
	assert.Equal(t, engine.StatusInvalid, results[3].Status)
	assert.Equal(t, "INVALID_ACTOR_ID", string(results[3].Code))
	assert.Equal(t, engine.StatusInvalid, results[4].Status)
	assert.Equal(t, engine.CodeInvalidCommand, results[4].Code)
}

func TestShell_QuitStopsReading(t *testing.T) {
	out, err := runShellCmd(t, "text", "produce 1\nquit\nproduce 2\n")
	require.NoError(t, err)
	assert.Contains(t, out, "produce 1: accepted")
	assert.NotContains(t, out, "produce 2")
}

func TestShell_Snapshot(t *testing.T) {
	out, err := runShellCmd(t, "text", "produce 4\nactivate 1\nsnapshot\n", "--actors", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "buffer [4] (1/5)")
	assert.Contains(t, out, "actor 1 active")
	assert.Contains(t, out, "actor 0 thinking")
}

func TestShell_InvalidConfig(t *testing.T) {
	_, err := runShellCmd(t, "text", "", "--capacity", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestShell_Journal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shell.db")

	cmd := newShellCommand(&ShellOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunIDs:      testutil.NewFixedRunIDGenerator("shell-run"),
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("produce 1\nconsume\nactivate 0\n"))
	cmd.SetArgs([]string{"--journal", dbPath})
	require.NoError(t, cmd.Execute())

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	records, err := j.ReadEvents(t.Context(), "shell-run", "")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, journal.SourceBuffer, records[0].Source)
	assert.Equal(t, "produced", records[0].Kind)
	assert.Equal(t, journal.SourceRing, records[1].Source)
	assert.Equal(t, "activated", records[1].Kind)
	assert.Equal(t, "consumed", records[2].Kind)
}
