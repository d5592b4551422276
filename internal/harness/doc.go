// Package harness runs persistence scenarios against the remember engine.
//
// A scenario configures an engine, seeds a memory driver, drives a store
// through a flow of dispatches and clock advances, and asserts on what the
// engine wrote and dispatched.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	remember:                  # same fields as a config file
//	  keys: [counter]
//	  initActionType: BOOT
//	preloaded: { counter: 0 }  # store state before rehydration
//	driver:                    # storage entries present at start
//	  "@@remember-counter": "1"
//	fail:                      # injected driver failures
//	  - op: set
//	    key: "@@remember-counter"
//	flow:
//	  - dispatch: BOOT
//	  - advance: 0             # milliseconds on the fake clock
//	  - await: ready
//	  - dispatch: SET
//	    payload: { counter: 2 }
//	  - heal: true             # drop injected failures
//	assertions:
//	  - type: driver_contains
//	    key: "@@remember-counter"
//	    value: "2"
//
// The store reducer merges object payloads into the root state; see
// MergeReducer. Without an initActionType the engine starts immediately and
// Run waits for it to become ready before executing the flow.
//
// # Assertion Types
//
//   - driver_contains: key is stored; value, when given, matches (JSON aware)
//   - driver_absent: key is not stored
//   - write_count: number of write attempts for key
//   - action_dispatched: action was dispatched; payload is a subset match
//   - action_order: actions were first dispatched in this order
//   - action_count: action was dispatched exactly count times
//   - final_state: final store state contains expect (subset match)
//   - error_count: count errors were reported, optionally of one kind
//
// # Deterministic Testing
//
// Every scenario runs on a fresh memory driver and a fake clock, so timers
// fire only when the flow advances time. The trace of dispatched actions and
// reported errors, the final driver contents, and the final state serialize
// to canonical JSON for golden file comparison (RunWithGolden).
package harness
