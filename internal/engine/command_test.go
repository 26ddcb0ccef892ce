package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contend/internal/config"
	"github.com/roach88/contend/internal/ring"
	"github.com/roach88/contend/internal/sim"
	"github.com/roach88/contend/internal/testutil"
)

func exec(t *testing.T, e *Engine, line string) Result {
	t.Helper()
	cmd, err := ParseCommand(line)
	require.NoError(t, err, line)
	return e.Execute(cmd)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"produce", Command{Op: OpProduce}},
		{"produce 7", Command{Op: OpProduce, Item: testutil.Ptr(int64(7))}},
		{"produce -3", Command{Op: OpProduce, Item: testutil.Ptr(int64(-3))}},
		{"consume", Command{Op: OpConsume}},
		{"  activate   2 ", Command{Op: OpActivate, Actor: testutil.Ptr(2)}},
		{"release 0", Command{Op: OpRelease, Actor: testutil.Ptr(0)}},
		{"toggle 4", Command{Op: OpToggle, Actor: testutil.Ptr(4)}},
		{"reset buffer", Command{Op: OpResetBuffer}},
		{"reset ring", Command{Op: OpResetRing}},
		{"reset-ring", Command{Op: OpResetRing}},
		{"snapshot", Command{Op: OpSnapshot}},
		{"check", Command{Op: OpCheck}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	for _, line := range []string{
		"",
		"   ",
		"fly",
		"produce x",
		"produce 1 2",
		"consume now",
		"activate",
		"activate one",
		"release 1 2",
		"reset",
		"reset everything",
	} {
		_, err := ParseCommand(line)
		assert.Error(t, err, "%q", line)
	}
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "produce 7", Command{Op: OpProduce, Item: testutil.Ptr(int64(7))}.String())
	assert.Equal(t, "activate 2", Command{Op: OpActivate, Actor: testutil.Ptr(2)}.String())
	assert.Equal(t, "reset buffer", Command{Op: OpResetBuffer}.String())
	assert.Equal(t, "consume", Command{Op: OpConsume}.String())
}

func TestExecute_BufferScenario(t *testing.T) {
	e := newEngine(t, testConfig(2, 5))

	r := exec(t, e, "produce 1")
	assert.Equal(t, StatusAccepted, r.Status)
	assert.Equal(t, 1, *r.Size)

	assert.Equal(t, StatusAccepted, exec(t, e, "produce 2").Status)

	r = exec(t, e, "produce 3")
	assert.Equal(t, StatusRejected, r.Status)
	assert.Equal(t, sim.CodeFull, r.Code)
	assert.False(t, r.OK())

	r = exec(t, e, "consume")
	assert.Equal(t, StatusAccepted, r.Status)
	assert.Equal(t, int64(1), *r.Item)

	assert.Equal(t, StatusAccepted, exec(t, e, "produce 3").Status)
	assert.Equal(t, []int64{2, 3}, e.Buffer().Snapshot().Items)
}

func TestExecute_ConsumeEmpty(t *testing.T) {
	e := newEngine(t, testConfig(2, 5))

	r := exec(t, e, "consume")
	assert.Equal(t, StatusRejected, r.Status)
	assert.Equal(t, sim.CodeEmpty, r.Code)
	assert.Nil(t, r.Item)
}

func TestExecute_RingScenario(t *testing.T) {
	e := newEngine(t, testConfig(5, 5))

	assert.Equal(t, StatusActivated, exec(t, e, "activate 0").Status)

	r := exec(t, e, "activate 1")
	assert.Equal(t, StatusDenied, r.Status)
	assert.Equal(t, sim.CodeResourceHeld, r.Code)
	assert.Equal(t, 1, *r.Actor)

	assert.Equal(t, StatusActivated, exec(t, e, "activate 2").Status)
	assert.Equal(t, StatusReleased, exec(t, e, "release 0").Status)

	// Actor 2 still holds resource 1.
	assert.Equal(t, StatusDenied, exec(t, e, "activate 1").Status)
	assert.Equal(t, StatusReleased, exec(t, e, "release 2").Status)
	assert.Equal(t, StatusActivated, exec(t, e, "activate 1").Status)

	assert.Equal(t, StatusOK, exec(t, e, "check").Status)
}

func TestExecute_ReleaseTwice(t *testing.T) {
	e := newEngine(t, testConfig(5, 5))

	exec(t, e, "activate 3")
	assert.Equal(t, StatusReleased, exec(t, e, "release 3").Status)

	r := exec(t, e, "release 3")
	assert.Equal(t, StatusNoOp, r.Status)
	assert.Equal(t, sim.CodeNotActive, r.Code)
}

func TestExecute_Toggle(t *testing.T) {
	e := newEngine(t, testConfig(5, 5))

	assert.Equal(t, StatusActivated, exec(t, e, "toggle 1").Status)
	assert.Equal(t, StatusDenied, exec(t, e, "toggle 2").Status)
	assert.Equal(t, StatusReleased, exec(t, e, "toggle 1").Status)
}

func TestExecute_InvalidActor(t *testing.T) {
	e := newEngine(t, testConfig(5, 5))

	for _, line := range []string{"activate 5", "release -1", "toggle 99"} {
		r := exec(t, e, line)
		assert.Equal(t, StatusInvalid, r.Status, line)
		assert.Equal(t, sim.CodeInvalidActorID, r.Code, line)
	}

	r := e.Execute(Command{Op: OpActivate})
	assert.Equal(t, StatusInvalid, r.Status)
	assert.Equal(t, CodeInvalidCommand, r.Code)

	r = e.Execute(Command{Op: "dance"})
	assert.Equal(t, StatusInvalid, r.Status)
	assert.Equal(t, CodeInvalidCommand, r.Code)
}

func TestExecute_ResetAndSnapshot(t *testing.T) {
	e := newEngine(t, testConfig(3, 5))

	exec(t, e, "produce 4")
	exec(t, e, "activate 0")

	r := exec(t, e, "snapshot")
	require.Equal(t, StatusOK, r.Status)
	assert.Equal(t, []int64{4}, r.Buffer.Items)
	assert.Equal(t, 3, r.Buffer.Capacity)
	assert.Equal(t, ring.StateActive, r.Ring.Actors[0].State)

	assert.Equal(t, StatusOK, exec(t, e, "reset buffer").Status)
	assert.Equal(t, StatusOK, exec(t, e, "reset ring").Status)

	r = exec(t, e, "snapshot")
	assert.Empty(t, r.Buffer.Items)
	assert.Empty(t, r.Ring.InState(ring.StateActive))
}

func TestExecute_ProduceWithoutItemUsesItemSource(t *testing.T) {
	e := newEngine(t, testConfig(3, 5), WithItemSource(func() int64 { return 42 }))

	r := exec(t, e, "produce")
	assert.Equal(t, StatusAccepted, r.Status)
	assert.Equal(t, int64(42), *r.Item)
}

func TestExecute_RandomItemsAreSeeded(t *testing.T) {
	cfg := testConfig(50, 5)
	cfg.Policy.Seed = 11

	items := func() []int64 {
		e, err := New(cfg, WithRunIDGenerator(NewFixedGenerator("x")))
		require.NoError(t, err)
		defer e.Close()
		var out []int64
		for i := 0; i < 50; i++ {
			r := e.Execute(Command{Op: OpProduce})
			require.Equal(t, StatusAccepted, r.Status)
			out = append(out, *r.Item)
		}
		return out
	}

	a, b := items(), items()
	assert.Equal(t, a, b)
	for _, v := range a {
		assert.GreaterOrEqual(t, v, int64(0))
		assert.Less(t, v, int64(MaxRandomItem))
	}
}

func TestResult_JSON(t *testing.T) {
	e := newEngine(t, config.Default())

	data, err := json.Marshal(exec(t, e, "consume"))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"op": "consume",
		"status": "rejected",
		"code": "EMPTY",
		"message": "EMPTY: buffer is empty"
	}`, string(data))
}
