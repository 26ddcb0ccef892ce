package ring

import (
	"math/rand/v2"
)

// Policy chooses which actor automatic mode acts on next.
//
// Pick receives the current snapshot and returns an actor id. Policies may
// keep internal state; Auto serializes calls to Pick.
type Policy interface {
	Pick(s Snapshot) int
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(s Snapshot) int

// Pick calls f(s).
func (f PolicyFunc) Pick(s Snapshot) int {
	return f(s)
}

// RoundRobin visits actors 0, 1, ..., n-1 and wraps around.
type RoundRobin struct {
	next int
}

// NewRoundRobin creates a round-robin policy starting at actor 0.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Pick returns the next actor in ring order.
func (p *RoundRobin) Pick(s Snapshot) int {
	id := p.next % s.Size()
	p.next = id + 1
	return id
}

// Random picks actors uniformly at random from a seeded source.
// The same seed always yields the same sequence of picks.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a random policy seeded with seed.
func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Pick returns a uniformly random actor id.
func (p *Random) Pick(s Snapshot) int {
	return p.rng.IntN(s.Size())
}

// PriorityFunc scores an actor; higher scores are picked first.
type PriorityFunc func(a Actor, s Snapshot) int64

// Priority picks the highest-scoring actor, breaking ties by lowest id.
func Priority(fn PriorityFunc) Policy {
	return PolicyFunc(func(s Snapshot) int {
		best := 0
		bestScore := fn(s.Actors[0], s)
		for _, a := range s.Actors[1:] {
			if score := fn(a, s); score > bestScore {
				best, bestScore = a.ID, score
			}
		}
		return best
	})
}

// OldestFirst picks the actor whose last event is oldest.
//
// Every activation, denial and release moves an actor to the back of the
// line, so an Active actor is always picked (and releases) before anyone
// gets a second turn, and no actor is skipped indefinitely.
func OldestFirst() Policy {
	return Priority(func(a Actor, _ Snapshot) int64 {
		return -a.LastSeq
	})
}
