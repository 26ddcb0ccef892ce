package ring

import (
	"fmt"
	"strings"
)

// State is an actor's position in the state machine.
type State string

const (
	StateThinking State = "thinking"
	StateWaiting  State = "waiting"
	StateActive   State = "active"
)

// Free marks a resource not held by any actor.
const Free = -1

// DefaultActorCount is the ring size used when none is configured.
const DefaultActorCount = 5

// Actor is a ring participant.
type Actor struct {
	ID    int   `json:"id"`
	State State `json:"state"`

	// LastSeq is the seq of the most recent event concerning this actor,
	// or 0 if none since creation or reset.
	LastSeq int64 `json:"last_seq"`

	// Activations counts successful RequestActivate calls.
	Activations int `json:"activations"`

	// Denials counts RequestActivate calls refused with ResourceHeld.
	Denials int `json:"denials"`
}

// Resource is an exclusive slot between two ring-adjacent actors.
type Resource struct {
	ID     int `json:"id"`
	Holder int `json:"holder"` // actor id, or Free
}

// Held reports whether some actor holds the resource.
func (r Resource) Held() bool {
	return r.Holder != Free
}

// ResourcesOf returns the two resources actor id needs in a ring of n actors:
// left is resources[(id-1+n)%n], right is resources[id].
func ResourcesOf(id, n int) (left, right int) {
	return (id - 1 + n) % n, id
}

// Snapshot is a read-only copy of ring state.
type Snapshot struct {
	Actors    []Actor    `json:"actors"`
	Resources []Resource `json:"resources"`
}

// Size returns the number of actors.
func (s Snapshot) Size() int {
	return len(s.Actors)
}

// InState returns the ids of actors in state st, ascending.
func (s Snapshot) InState(st State) []int {
	var ids []int
	for _, a := range s.Actors {
		if a.State == st {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Starved returns the ids of actors with fewer than min activations.
func (s Snapshot) Starved(min int) []int {
	var ids []int
	for _, a := range s.Actors {
		if a.Activations < min {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Check verifies the mutual-exclusion invariants:
//   - every held resource is held by one of its two adjacent actors
//   - an actor holds its resources iff it is Active
//   - no two ring-adjacent actors are both Active
func (s Snapshot) Check() error {
	n := len(s.Actors)
	if len(s.Resources) != n {
		return fmt.Errorf("ring has %d actors but %d resources", n, len(s.Resources))
	}

	var violations []string
	for _, res := range s.Resources {
		if !res.Held() {
			continue
		}
		h := res.Holder
		if h < 0 || h >= n {
			violations = append(violations, fmt.Sprintf("resource %d held by unknown actor %d", res.ID, h))
			continue
		}
		left, right := ResourcesOf(h, n)
		if res.ID != left && res.ID != right {
			violations = append(violations, fmt.Sprintf("resource %d held by non-adjacent actor %d", res.ID, h))
		}
		if s.Actors[h].State != StateActive {
			violations = append(violations, fmt.Sprintf("resource %d held by %s actor %d", res.ID, s.Actors[h].State, h))
		}
	}

	for _, a := range s.Actors {
		if a.State != StateActive {
			continue
		}
		left, right := ResourcesOf(a.ID, n)
		if s.Resources[left].Holder != a.ID || s.Resources[right].Holder != a.ID {
			violations = append(violations, fmt.Sprintf("active actor %d does not hold resources %d and %d", a.ID, left, right))
		}
		next := (a.ID + 1) % n
		if s.Actors[next].State == StateActive {
			violations = append(violations, fmt.Sprintf("adjacent actors %d and %d both active", a.ID, next))
		}
	}

	if len(violations) > 0 {
		return fmt.Errorf("ring invariant violated: %s", strings.Join(violations, "; "))
	}
	return nil
}

// EventKind identifies a ring state change.
type EventKind string

const (
	// EventActivated is emitted when an actor acquires both resources.
	EventActivated EventKind = "activated"
	// EventDenied is emitted when an activation request is refused; the actor is now Waiting.
	EventDenied EventKind = "denied"
	// EventReleased is emitted when an Active actor frees both resources.
	EventReleased EventKind = "released"
	// EventReset is emitted after the ring returns to its initial state.
	EventReset EventKind = "reset"
)

// Event describes one ring state change.
type Event struct {
	Kind EventKind `json:"kind"`

	// Actor is the actor concerned, or -1 for EventReset.
	Actor int `json:"actor"`

	// Left and Right are the actor's resources, or -1 for EventReset.
	Left  int `json:"left"`
	Right int `json:"right"`

	// Seq orders events from the same ring.
	Seq int64 `json:"seq"`
}
