package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobin_Cycles(t *testing.T) {
	snap := newRing(t, 3).Snapshot()
	p := NewRoundRobin()

	var got []int
	for i := 0; i < 7; i++ {
		got = append(got, p.Pick(snap))
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, got)
}

func TestRandom_SameSeedSameSequence(t *testing.T) {
	snap := newRing(t, 5).Snapshot()
	a, b := NewRandom(42), NewRandom(42)

	for i := 0; i < 100; i++ {
		pa, pb := a.Pick(snap), b.Pick(snap)
		require.Equal(t, pa, pb)
		require.GreaterOrEqual(t, pa, 0)
		require.Less(t, pa, 5)
	}
}

func TestPriority_HighestScoreLowestIDOnTie(t *testing.T) {
	snap := newRing(t, 4).Snapshot()

	p := Priority(func(a Actor, _ Snapshot) int64 {
		if a.ID == 2 {
			return 10
		}
		return 1
	})
	assert.Equal(t, 2, p.Pick(snap))

	flat := Priority(func(Actor, Snapshot) int64 { return 0 })
	assert.Equal(t, 0, flat.Pick(snap))
}

func TestOldestFirst_PrefersLeastRecentlyTouched(t *testing.T) {
	r := newRing(t, 5)
	require.NoError(t, r.RequestActivate(0)) // seq 1
	require.NoError(t, r.RequestActivate(2)) // seq 2

	assert.Equal(t, 1, OldestFirst().Pick(r.Snapshot()), "actor 1 untouched, lowest untouched id")
}
