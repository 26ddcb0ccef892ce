package ring

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/contend/internal/sim"
)

// Ring is the contention arbiter for actorCount actors.
//
// Thread-safety: every method runs to completion under one mutex. Events are
// published before the lock is released, so each subscriber sees them in
// mutation order.
//
// INVARIANTS (verified by Snapshot.Check):
//   - a resource is held by at most one actor
//   - an Active actor holds exactly its two adjacent resources
//   - no other actor holds anything
type Ring struct {
	mu        sync.Mutex
	actors    []Actor
	resources []Resource
	clock     *sim.Clock
	bus       *sim.Bus[Event]
	logger    *slog.Logger
}

// Option configures a Ring.
type Option func(*options)

type options struct {
	clock  *sim.Clock
	logger *slog.Logger
}

// WithClock stamps events with seqs from c instead of a private clock.
func WithClock(c *sim.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the ring's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a ring of actorCount Thinking actors and free resources.
// Returns sim.ErrInvalidActorCount if actorCount < 2.
func New(actorCount int, opts ...Option) (*Ring, error) {
	if actorCount < 2 {
		return nil, sim.NewError(sim.CodeInvalidActorCount,
			fmt.Sprintf("actor count must be at least 2, got %d", actorCount))
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = sim.NewClock()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Ring{
		actors:    make([]Actor, actorCount),
		resources: make([]Resource, actorCount),
		clock:     o.clock,
		bus:       sim.NewBus[Event](),
		logger:    o.logger,
	}
	r.initialize()
	return r, nil
}

// initialize sets every actor Thinking and every resource Free.
// Callers must hold r.mu (or own r exclusively).
func (r *Ring) initialize() {
	for i := range r.actors {
		r.actors[i] = Actor{ID: i, State: StateThinking}
		r.resources[i] = Resource{ID: i, Holder: Free}
	}
}

// Size returns the number of actors.
func (r *Ring) Size() int {
	return len(r.actors)
}

// RequestActivate atomically acquires both of id's resources.
//
// If both are free, the actor becomes Active and holds them. Otherwise the
// actor becomes Waiting, no resource changes hands, and an error with
// sim.CodeResourceHeld is returned. An already Active actor gets
// sim.CodeAlreadyActive and nothing changes.
func (r *Ring) RequestActivate(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validate(id); err != nil {
		return err
	}
	return r.activate(id)
}

// Release frees both of id's resources and returns it to Thinking.
// Returns sim.CodeNotActive, changing nothing, if the actor is not Active.
func (r *Ring) Release(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validate(id); err != nil {
		return err
	}
	return r.release(id)
}

// Toggle releases id if it is Active and requests activation otherwise,
// as one atomic step. Automatic mode drives actors through Toggle.
func (r *Ring) Toggle(id int) (EventKind, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validate(id); err != nil {
		return "", err
	}
	if r.actors[id].State == StateActive {
		return EventReleased, r.release(id)
	}
	if err := r.activate(id); err != nil {
		return EventDenied, err
	}
	return EventActivated, nil
}

// Reset returns every actor to Thinking and frees every resource.
// Counters are cleared. Always succeeds.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.initialize()
	r.publish(Event{Kind: EventReset, Actor: -1, Left: -1, Right: -1})
}

// Snapshot returns a copy of the current actor and resource state.
func (r *Ring) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	actors := make([]Actor, len(r.actors))
	copy(actors, r.actors)
	resources := make([]Resource, len(r.resources))
	copy(resources, r.resources)
	return Snapshot{Actors: actors, Resources: resources}
}

// Check verifies ring invariants against current state.
func (r *Ring) Check() error {
	return r.Snapshot().Check()
}

// Subscribe returns a subscription to events published from now on.
func (r *Ring) Subscribe() *sim.Subscription[Event] {
	return r.bus.Subscribe()
}

// Close ends all subscriptions. The ring itself remains usable.
func (r *Ring) Close() {
	r.bus.Close()
}

func (r *Ring) validate(id int) error {
	if id < 0 || id >= len(r.actors) {
		return &sim.Error{
			Code:    sim.CodeInvalidActorID,
			Message: fmt.Sprintf("actor id %d out of range [0,%d)", id, len(r.actors)),
			Actor:   -1,
		}
	}
	return nil
}

// activate is the check-and-acquire step. Callers must hold r.mu.
func (r *Ring) activate(id int) error {
	a := &r.actors[id]
	if a.State == StateActive {
		return sim.NewActorError(sim.CodeAlreadyActive, id, "actor is already active")
	}

	left, right := ResourcesOf(id, len(r.actors))
	if r.resources[left].Held() || r.resources[right].Held() {
		blocked := left
		if !r.resources[left].Held() {
			blocked = right
		}
		holder := r.resources[blocked].Holder

		a.State = StateWaiting
		a.Denials++
		a.LastSeq = r.publish(Event{Kind: EventDenied, Actor: id, Left: left, Right: right})

		r.logger.Debug("activation denied", "actor", id, "resource", blocked, "holder", holder)
		return &sim.Error{
			Code:    sim.CodeResourceHeld,
			Message: fmt.Sprintf("resource %d held by actor %d", blocked, holder),
			Actor:   id,
			Details: map[string]string{
				"resource": fmt.Sprintf("%d", blocked),
				"holder":   fmt.Sprintf("%d", holder),
			},
		}
	}

	r.resources[left].Holder = id
	r.resources[right].Holder = id
	a.State = StateActive
	a.Activations++
	a.LastSeq = r.publish(Event{Kind: EventActivated, Actor: id, Left: left, Right: right})

	r.logger.Debug("actor activated", "actor", id, "left", left, "right", right)
	return nil
}

// release frees an Active actor's resources. Callers must hold r.mu.
func (r *Ring) release(id int) error {
	a := &r.actors[id]
	if a.State != StateActive {
		return sim.NewActorError(sim.CodeNotActive, id,
			fmt.Sprintf("actor is %s, not active", a.State))
	}

	left, right := ResourcesOf(id, len(r.actors))
	r.resources[left].Holder = Free
	r.resources[right].Holder = Free
	a.State = StateThinking
	a.LastSeq = r.publish(Event{Kind: EventReleased, Actor: id, Left: left, Right: right})

	r.logger.Debug("actor released", "actor", id)
	return nil
}

// publish stamps ev with the next seq and emits it. Callers must hold r.mu.
func (r *Ring) publish(ev Event) int64 {
	ev.Seq = r.clock.Next()
	r.bus.Publish(ev)
	return ev.Seq
}
