package buffer

// EventKind identifies a buffer mutation.
type EventKind string

const (
	// EventProduced is emitted after an item is appended.
	EventProduced EventKind = "produced"
	// EventConsumed is emitted after the head item is removed.
	EventConsumed EventKind = "consumed"
	// EventReset is emitted after the buffer is cleared.
	EventReset EventKind = "reset"
)

// Event describes one successful buffer mutation.
type Event[T any] struct {
	Kind EventKind `json:"kind"`

	// Item is the produced or consumed item. Zero for EventReset.
	Item T `json:"item"`

	// Size is the number of items after the mutation.
	Size int `json:"size"`

	// Seq orders events from the same buffer.
	Seq int64 `json:"seq"`
}

// Snapshot is a read-only copy of buffer state.
type Snapshot[T any] struct {
	Items    []T `json:"items"`
	Capacity int `json:"capacity"`
}

// Full reports whether the snapshot is at capacity.
func (s Snapshot[T]) Full() bool {
	return len(s.Items) >= s.Capacity
}
