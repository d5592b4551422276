package harness

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remember/internal/remember"
	"github.com/roach88/remember/internal/store"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

// =============================================================================
// Golden scenarios
// =============================================================================

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"keyed_roundtrip", "deferred_failure"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

// =============================================================================
// Run
// =============================================================================

func TestRun_WholeStore(t *testing.T) {
	s := mustParse(t, `
name: whole_store
description: one entry holds every slice
remember:
  keys: [a, b]
  persistWholeStore: true
  persistThrottleMs: 0
flow:
  - dispatch: SET
    payload: { a: 1, b: [x] }
assertions:
  - type: driver_contains
    key: "@@remember-rootState"
    value: '{"b": ["x"], "a": 1}'
  - type: driver_absent
    key: "@@remember-a"
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_RehydrateFailureKeepsState(t *testing.T) {
	s := mustParse(t, `
name: rehydrate_failure
description: a failing read keeps preloaded state
remember:
  keys: [a]
preloaded: { a: local }
driver:
  "@@remember-a": '"stored"'
fail:
  - op: get
    key: "@@remember-a"
    panic: true
flow:
  - advance: 0
assertions:
  - type: error_count
    kind: rehydrate
    count: 1
  - type: final_state
    expect: { a: local }
  - type: action_count
    action: "@@REMEMBER_REHYDRATED"
    count: 1
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	var errEvents []TraceEvent
	for _, ev := range result.Trace {
		if ev.Type == EventError {
			errEvents = append(errEvents, ev)
		}
	}
	require.Len(t, errEvents, 1)
	assert.Equal(t, "a", errEvents[0].Key)
	assert.Contains(t, errEvents[0].Message, "*remember.ThrownError")
}

func TestRun_HealRecovers(t *testing.T) {
	s := mustParse(t, `
name: heal
description: writes succeed again after healing
remember:
  keys: [a]
  persistThrottleMs: 0
fail:
  - op: set
    key: "@@remember-a"
flow:
  - dispatch: SET
    payload: { a: 1 }
  - heal: true
  - dispatch: SET
    payload: { a: 2 }
assertions:
  - type: driver_contains
    key: "@@remember-a"
    value: "2"
  - type: write_count
    key: "@@remember-a"
    count: 2
  - type: error_count
    count: 1
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ReportsAssertionFailures(t *testing.T) {
	s := mustParse(t, `
name: failing
description: every assertion here is wrong
remember:
  keys: [a]
  persistThrottleMs: 0
flow:
  - dispatch: SET
    payload: { a: 1 }
assertions:
  - type: driver_absent
    key: "@@remember-a"
  - type: final_state
    expect: { a: 2 }
  - type: action_count
    action: SET
    count: 3
  - type: driver_contains
    key: "@@remember-zzz"
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "driver_absent")
	assert.Contains(t, result.Errors[1], `slice "a" = 2`)
	assert.Contains(t, result.Errors[2], "3 occurrences of SET")
	assert.Contains(t, result.Errors[3], "@@remember-a")
}

func TestRun_AwaitTimesOutWithoutInitAction(t *testing.T) {
	s := mustParse(t, `
name: never_ready
description: deferred start never triggered
remember:
  keys: [a]
  initActionType: BOOT
flow:
  - await: ready
assertions:
  - type: error_count
    count: 0
`)

	start := time.Now()
	_, err := Run(s, WithReadyTimeout(20*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine not ready after 20ms")
	assert.Less(t, time.Since(start), DefaultReadyTimeout)
}

func TestRun_UnknownSerializer(t *testing.T) {
	s := &Scenario{Name: "bad_codec"}
	s.Remember.Keys = []string{"a"}
	s.Remember.Serializer = "xml"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid engine config")
	assert.Contains(t, err.Error(), `unknown format "xml"`)
}

func TestWithReadyTimeout_IgnoresNonPositive(t *testing.T) {
	cfg := runConfig{readyTimeout: DefaultReadyTimeout}
	WithReadyTimeout(0)(&cfg)
	WithReadyTimeout(-time.Second)(&cfg)
	assert.Equal(t, DefaultReadyTimeout, cfg.readyTimeout)

	WithReadyTimeout(time.Millisecond)(&cfg)
	assert.Equal(t, time.Millisecond, cfg.readyTimeout)
}

// =============================================================================
// MergeReducer
// =============================================================================

func TestMergeReducer(t *testing.T) {
	base := store.State{"a": 1}

	assert.Equal(t, store.State{"a": 1, "b": 2},
		MergeReducer(base, store.Action{Type: "SET", Payload: map[string]any{"b": 2}}))
	assert.Equal(t, store.State{"a": 3},
		MergeReducer(base, store.Action{Type: "SET", Payload: store.State{"a": 3}}))
	assert.Equal(t, base,
		MergeReducer(base, store.Action{Type: "SET", Payload: "not an object"}))
	assert.Equal(t, base,
		MergeReducer(base, store.Action{Type: remember.ActionPersisted, Payload: map[string]any{"a": 9}}))
	assert.Equal(t, store.State{},
		MergeReducer(nil, store.Action{Type: "NOOP"}))
}

// =============================================================================
// Snapshot
// =============================================================================

func TestSnapshot_Canonical(t *testing.T) {
	result := NewResult()
	result.Trace = []TraceEvent{
		{Seq: 1, Type: EventAction, Action: "SET", Payload: map[string]any{"z": 1, "a": 2}},
		{Seq: 2, Type: EventError, Kind: KindPersist, Key: "k", Message: "boom"},
	}
	result.State = store.State{"a": 2.0}
	result.Driver = map[string]string{"p-a": "2"}
	result.Writes = map[string]int{"p-a": 1}

	snap := NewSnapshot("snap", result)
	data, err := snap.MarshalCanonical()
	require.NoError(t, err)

	assert.Equal(t,
		`{"driver":{"p-a":"2"},"scenario_name":"snap","state":{"a":2},`+
			`"trace":[{"action":"SET","payload":{"a":2,"z":1},"seq":1,"type":"action"},`+
			`{"key":"k","kind":"persist","message":"boom","seq":2,"type":"error"}],`+
			`"writes":{"p-a":1}}`,
		string(data))
}

// =============================================================================
// Assertions
// =============================================================================

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertActionCount,
		Expected: "1",
		Actual:   "0",
		Trace: []TraceEvent{
			{Seq: 1, Type: EventAction, Action: "SET"},
			{Seq: 2, Type: EventError, Kind: KindPersist, Message: "boom"},
		},
	}
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "Assertion failed: action_count\n"))
	assert.Contains(t, msg, "[1] SET")
	assert.Contains(t, msg, "[2] error(persist) boom")
}

func TestValuesEqual_NumberKinds(t *testing.T) {
	assert.True(t, valuesEqual(1.0, 1))
	assert.True(t, valuesEqual([]any{1.0, "x"}, []any{1, "x"}))
	assert.False(t, valuesEqual(1.5, 1))
	assert.False(t, valuesEqual("1", 1))
}

func TestStoredValuesEqual(t *testing.T) {
	assert.True(t, storedValuesEqual(`{"a":1,"b":2}`, `{"b":2,"a":1}`))
	assert.True(t, storedValuesEqual("plain", "plain"))
	assert.False(t, storedValuesEqual("plain", "other"))
	assert.False(t, storedValuesEqual(`1`, `2`))
}

func TestMatchSubset(t *testing.T) {
	actual := store.State{"a": 1.0, "b": "x"}
	assert.True(t, matchSubset(actual, map[string]any{"a": 1}))
	assert.True(t, matchSubset(actual, nil))
	assert.False(t, matchSubset(actual, map[string]any{"c": 1}))
	assert.False(t, matchSubset("scalar", map[string]any{"a": 1}))
}

func TestActionOrder(t *testing.T) {
	trace := []TraceEvent{
		{Type: EventAction, Action: "A"},
		{Type: EventAction, Action: "B"},
		{Type: EventAction, Action: "A"},
	}
	assert.NoError(t, assertActionOrder(trace, Assertion{Actions: []string{"A", "B"}}))
	assert.Error(t, assertActionOrder(trace, Assertion{Actions: []string{"B", "A"}}))
	assert.Error(t, assertActionOrder(trace, Assertion{Actions: []string{"A", "C"}}))
}
