// Package harness runs YAML scenarios against a real engine.
//
// # Scenario Format
//
//	name: buffer_capacity_two
//	description: "Producer outruns consumer on a two-slot buffer"
//	run_id: test-run-buffer       # optional, fixed for golden traces
//	config:                       # optional, merged over config.Default()
//	  buffer_capacity: 2
//	steps:
//	  - do: produce 1
//	    expect: { status: accepted, size: 1 }
//	  - do: produce 3
//	    expect: { status: rejected, code: FULL }
//	auto_steps: 20                # optional, needs config.policy
//	assertions:
//	  - type: buffer_items
//	    items: [2, 3]
//	  - type: invariants
//
// Steps use shell syntax (see engine.ParseCommand). After the steps, if
// auto_steps is set, the ring is driven by the configured policy for that
// many toggles with no delay between them.
//
// # Assertion Types
//
//   - buffer_items: final buffer contents, oldest first
//   - buffer_size: final buffer length
//   - actor_states: final state of the listed actors
//   - activations: final activation count of the listed actors
//   - invariants: ring invariants hold and the buffer is within bounds
//   - event_count: number of trace events with a given source and kind
//   - starved: exactly these actors have fewer than min activations
//
// # Deterministic Testing
//
// Each scenario gets a fresh engine with a fixed run id. Items produced
// without a value come from a generator seeded by config.policy.seed, and
// every policy is seeded or deterministic, so a scenario always yields the
// same trace. Traces are compared byte-for-byte as canonical JSON.
package harness
