package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/contend/internal/ring"
)

// AssertionError is returned when an assertion fails.
// It includes the trace so a failure can be read without re-running.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	commands := 0
	for _, event := range e.Trace {
		if event.Type == TraceCommand {
			commands++
		}
	}
	if commands > 0 {
		fmt.Fprintf(&buf, "\nCommands:\n")
		i := 0
		for _, event := range e.Trace {
			if event.Type != TraceCommand {
				continue
			}
			i++
			fmt.Fprintf(&buf, "  [%d] %s -> %s", i, event.Command, event.Status)
			if event.Code != "" {
				fmt.Fprintf(&buf, " (%s)", event.Code)
			}
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertBufferItems:
		return assertBufferItems(result, a)
	case AssertBufferSize:
		return assertBufferSize(result, a)
	case AssertActorStates:
		return assertActorStates(result, a)
	case AssertActivations:
		return assertActivations(result, a)
	case AssertInvariants:
		return assertInvariants(result)
	case AssertEventCount:
		return assertEventCount(result, a)
	case AssertStarved:
		return assertStarved(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertBufferItems(result *Result, a Assertion) error {
	got := result.Buffer.Items
	if len(got) == 0 && len(a.Items) == 0 {
		return nil
	}
	if slices.Equal(got, a.Items) {
		return nil
	}
	return &AssertionError{
		Type:     AssertBufferItems,
		Expected: fmt.Sprintf("%v", a.Items),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    result.Trace,
	}
}

func assertBufferSize(result *Result, a Assertion) error {
	if len(result.Buffer.Items) == *a.Size {
		return nil
	}
	return &AssertionError{
		Type:     AssertBufferSize,
		Expected: fmt.Sprintf("%d items", *a.Size),
		Actual:   fmt.Sprintf("%d items", len(result.Buffer.Items)),
		Trace:    result.Trace,
	}
}

func assertActorStates(result *Result, a Assertion) error {
	var mismatches []string
	for _, id := range sortedKeys(a.States) {
		want := a.States[id]
		if id < 0 || id >= result.Ring.Size() {
			mismatches = append(mismatches, fmt.Sprintf("actor %d does not exist", id))
			continue
		}
		if got := result.Ring.Actors[id].State; string(got) != want {
			mismatches = append(mismatches, fmt.Sprintf("actor %d is %s, want %s", id, got, want))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertActorStates,
		Expected: fmt.Sprintf("%v", a.States),
		Actual:   strings.Join(mismatches, "; "),
		Trace:    result.Trace,
	}
}

func assertActivations(result *Result, a Assertion) error {
	var mismatches []string
	for _, id := range sortedKeys(a.Counts) {
		want := a.Counts[id]
		if id < 0 || id >= result.Ring.Size() {
			mismatches = append(mismatches, fmt.Sprintf("actor %d does not exist", id))
			continue
		}
		if got := result.Ring.Actors[id].Activations; got != want {
			mismatches = append(mismatches, fmt.Sprintf("actor %d activated %d times, want %d", id, got, want))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertActivations,
		Expected: fmt.Sprintf("%v", a.Counts),
		Actual:   strings.Join(mismatches, "; "),
		Trace:    result.Trace,
	}
}

func assertInvariants(result *Result) error {
	if err := result.Ring.Check(); err != nil {
		return &AssertionError{
			Type:     AssertInvariants,
			Expected: "ring invariants hold",
			Actual:   err.Error(),
			Trace:    result.Trace,
		}
	}
	if n := len(result.Buffer.Items); n > result.Buffer.Capacity {
		return &AssertionError{
			Type:     AssertInvariants,
			Expected: fmt.Sprintf("buffer length <= %d", result.Buffer.Capacity),
			Actual:   fmt.Sprintf("%d items", n),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertEventCount(result *Result, a Assertion) error {
	count := 0
	for _, ev := range result.Trace {
		if ev.Type == TraceEngineEvent && ev.Source == a.Source && ev.Kind == a.Kind {
			count++
		}
	}
	if count == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventCount,
		Expected: fmt.Sprintf("%d %s %s events", *a.Count, a.Source, a.Kind),
		Actual:   fmt.Sprintf("%d", count),
		Trace:    result.Trace,
	}
}

func assertStarved(result *Result, a Assertion) error {
	got := result.Ring.Starved(a.Min)
	if len(got) == 0 && len(a.Actors) == 0 {
		return nil
	}
	if slices.Equal(got, a.Actors) {
		return nil
	}
	return &AssertionError{
		Type:     AssertStarved,
		Expected: fmt.Sprintf("actors %v below %d activations", a.Actors, a.Min),
		Actual:   fmt.Sprintf("%v (activations: %s)", got, activationSummary(result.Ring)),
		Trace:    result.Trace,
	}
}

func activationSummary(s ring.Snapshot) string {
	parts := make([]string, len(s.Actors))
	for i, a := range s.Actors {
		parts[i] = fmt.Sprintf("%d=%d", a.ID, a.Activations)
	}
	return strings.Join(parts, " ")
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
