package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_RepoScenarios(t *testing.T) {
	files, err := FindScenarios(filepath.Join("..", "..", "testdata", "scenarios"), "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(f)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass)
		})
	}
}

func TestGoldenBytes_Canonical(t *testing.T) {
	s := &Scenario{Name: "tiny", RunID: "r"}
	r := NewResult()
	r.AddError("ignored by golden output")
	r.Trace = append(r.Trace, TraceEvent{Type: TraceCommand, Command: "check", Status: "ok"})

	data, err := GoldenBytes(s, r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"run_id":"r","scenario_name":"tiny","trace":[{"command":"check","status":"ok","type":"command"}]}`,
		string(data))
}
