// Package ring arbitrates exclusive adjacent resources for actors in a cycle.
//
// N actors sit in a ring with one resource between each adjacent pair. Actor i
// needs resources[i] and resources[(i-1+n)%n] at the same time to become
// Active (the dining philosophers problem, with actors as philosophers and
// resources as forks).
//
// ATOMIC ACQUISITION:
// RequestActivate checks and takes both resources in one step under the ring
// mutex. No caller can observe an actor holding one resource while waiting on
// the other, so the circular wait behind the classic deadlock cannot form.
// This holds for every policy and every interleaving of callers; it does not
// depend on scheduling order.
//
// STATE MACHINE (per actor):
//
//	Thinking --activate--> Active   (both resources free)
//	Thinking --activate--> Waiting  (a neighbor holds one)
//	Waiting  --activate--> Active | Waiting
//	Active   --release-->  Thinking
//
// There is no terminal state.
//
// AUTOMATIC MODE:
// Auto picks an actor per step with a Policy (RoundRobin, Random, Priority)
// and toggles it: release if Active, otherwise request activation. Fairness
// and starvation are properties of the chosen policy, which can be swapped
// while running.
package ring
