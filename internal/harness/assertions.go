package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/remember/internal/codec"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			switch event.Type {
			case EventAction:
				fmt.Fprintf(&buf, "  [%d] %s %v\n", event.Seq, event.Action, event.Payload)
			case EventError:
				fmt.Fprintf(&buf, "  [%d] error(%s) %s\n", event.Seq, event.Kind, event.Message)
			}
		}
	}
	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertDriverContains:
			err = assertDriverContains(result, assertion)
		case AssertDriverAbsent:
			err = assertDriverAbsent(result, assertion)
		case AssertWriteCount:
			err = assertWriteCount(result, assertion)
		case AssertActionDispatched:
			err = assertActionDispatched(result.Trace, assertion)
		case AssertActionOrder:
			err = assertActionOrder(result.Trace, assertion)
		case AssertActionCount:
			err = assertActionCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertErrorCount:
			err = assertErrorCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func assertDriverContains(result *Result, a Assertion) error {
	actual, ok := result.Driver[a.Key]
	if !ok {
		return &AssertionError{
			Type:     AssertDriverContains,
			Expected: fmt.Sprintf("key %q stored", a.Key),
			Actual:   fmt.Sprintf("absent; stored keys: %v", sortedKeys(result.Driver)),
		}
	}
	if a.Value != nil && !storedValuesEqual(*a.Value, actual) {
		return &AssertionError{
			Type:     AssertDriverContains,
			Expected: fmt.Sprintf("key %q = %s", a.Key, *a.Value),
			Actual:   fmt.Sprintf("key %q = %s", a.Key, actual),
		}
	}
	return nil
}

func assertDriverAbsent(result *Result, a Assertion) error {
	if actual, ok := result.Driver[a.Key]; ok {
		return &AssertionError{
			Type:     AssertDriverAbsent,
			Expected: fmt.Sprintf("key %q not stored", a.Key),
			Actual:   fmt.Sprintf("key %q = %s", a.Key, actual),
		}
	}
	return nil
}

func assertWriteCount(result *Result, a Assertion) error {
	if n := result.Writes[a.Key]; n != a.Count {
		return &AssertionError{
			Type:     AssertWriteCount,
			Expected: fmt.Sprintf("%d writes of %q", a.Count, a.Key),
			Actual:   fmt.Sprintf("%d writes", n),
		}
	}
	return nil
}

// assertActionDispatched checks that an action with a matching payload
// (subset semantics) was dispatched.
func assertActionDispatched(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Type == EventAction && event.Action == a.Action && matchSubset(event.Payload, a.Payload) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertActionDispatched,
		Expected: fmt.Sprintf("action %s with payload %v", a.Action, a.Payload),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertActionOrder checks that actions were first dispatched in the
// specified order. Intervening actions are allowed.
func assertActionOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != EventAction {
			continue
		}
		if _, seen := positions[event.Action]; !seen {
			positions[event.Action] = i + 1
		}
	}

	for _, action := range a.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertActionOrder,
				Expected: fmt.Sprintf("all actions present: %v", a.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Actions); i++ {
		prev, curr := a.Actions[i-1], a.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertActionOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

func assertActionCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventAction && event.Action == a.Action {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertActionCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks every expected slice against the final state.
func assertFinalState(result *Result, a Assertion) error {
	for _, key := range sortedKeys(a.Expect) {
		actual, ok := result.State[key]
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("slice %q to exist", key),
				Actual:   fmt.Sprintf("slices present: %v", sortedKeys(result.State)),
			}
		}
		if !valuesEqual(actual, a.Expect[key]) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("slice %q = %v", key, a.Expect[key]),
				Actual:   fmt.Sprintf("slice %q = %v", key, actual),
			}
		}
	}
	return nil
}

func assertErrorCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventError && (a.Kind == "" || event.Kind == a.Kind) {
			count++
		}
	}
	if count != a.Count {
		kind := "errors"
		if a.Kind != "" {
			kind = a.Kind + " errors"
		}
		return &AssertionError{
			Type:     AssertErrorCount,
			Expected: fmt.Sprintf("%d %s", a.Count, kind),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    trace,
		}
	}
	return nil
}

// matchSubset checks if actual contains all expected keys with equal values.
// Extra keys in actual are ignored.
func matchSubset(actual any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}

	var actualMap map[string]any
	switch v := actual.(type) {
	case map[string]any:
		actualMap = v
	default:
		generic, ok := toGenericMap(actual)
		if !ok {
			return false
		}
		actualMap = generic
	}

	for key, expectedVal := range expected {
		actualVal, exists := actualMap[key]
		if !exists || !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares two values by their canonical JSON encoding, so a
// YAML integer matches the float64 JSON decoding produces.
func valuesEqual(actual, expected any) bool {
	a, errA := codec.MarshalCanonical(actual)
	b, errB := codec.MarshalCanonical(expected)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// storedValuesEqual compares stored strings as JSON when both parse,
// otherwise byte for byte.
func storedValuesEqual(expected, actual string) bool {
	var e, a any
	if json.Unmarshal([]byte(expected), &e) == nil && json.Unmarshal([]byte(actual), &a) == nil {
		return valuesEqual(a, e)
	}
	return expected == actual
}

func toGenericMap(v any) (map[string]any, bool) {
	data, err := codec.MarshalCanonical(v)
	if err != nil {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return out, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
